//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "purposepay/pkg/platform/audit"
	"purposepay/pkg/platform/audit/publishers/kafka"
	"purposepay/pkg/testutil/containers"
)

func TestSinkPublishesEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	redpanda := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := kafka.Config{Brokers: redpanda.Brokers, Topic: "purposepay.audit.test", Partitions: 1}
	require.NoError(t, kafka.EnsureTopic(ctx, cfg))
	require.NoError(t, kafka.EnsureTopic(ctx, cfg), "existing topic is not an error")

	sink, err := kafka.NewSink(cfg)
	require.NoError(t, err)
	require.NoError(t, sink.Ping(ctx))

	sent := audit.Event{
		Action:   string(audit.EventMerchantAdded),
		Category: audit.CategoryCompliance,
		Subject:  "0xD000000000000000000000000000000000000001",
		Reason:   "FOOD",
	}
	require.NoError(t, sink.Publish(ctx, sent))
	require.NoError(t, sink.Close())

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())

	var got []audit.Event
	fetches.EachRecord(func(r *kgo.Record) {
		var event audit.Event
		require.NoError(t, json.Unmarshal(r.Value, &event))
		assert.Equal(t, sent.Subject, string(r.Key))
		got = append(got, event)
	})
	require.Len(t, got, 1)
	assert.Equal(t, sent.Action, got[0].Action)
	assert.Equal(t, sent.Reason, got[0].Reason)
}
