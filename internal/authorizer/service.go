package authorizer

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"purposepay/internal/authorizer/metrics"
	"purposepay/internal/authorizer/ports"
	id "purposepay/pkg/domain"
	dErrors "purposepay/pkg/domain-errors"
)

// Service gathers whitelist facts for a (sender, recipient) pair and applies
// Evaluate. It never errors on the rule itself; errors come from the view.
type Service struct {
	view    ports.WhitelistView
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(view ports.WhitelistView, opts ...Option) *Service {
	s := &Service{
		view:   view,
		logger: slog.Default(),
		tracer: otel.Tracer("purposepay/authorizer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Decide resolves the sender's beneficiary status and, only when needed, the
// recipient's merchant status.
func (s *Service) Decide(ctx context.Context, sender, recipient id.Address) (Decision, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "authorizer.decide",
		trace.WithAttributes(
			attribute.String("sender", sender.String()),
			attribute.String("recipient", recipient.String()),
		))
	defer span.End()
	defer func() { s.metrics.ObserveDecideLatency(time.Since(start)) }()

	var facts Facts
	var err error
	facts.SenderActiveBeneficiary, err = s.view.IsActiveBeneficiary(ctx, sender)
	if err != nil {
		return s.fail(span, err, "failed to resolve sender status")
	}
	if facts.SenderActiveBeneficiary {
		facts.RecipientActiveMerchant, err = s.view.IsActiveMerchant(ctx, recipient)
		if err != nil {
			return s.fail(span, err, "failed to resolve recipient status")
		}
	}

	decision := Evaluate(facts)
	s.metrics.IncrementDecision(decision.Allowed, string(decision.Reason))
	span.SetAttributes(
		attribute.Bool("allowed", decision.Allowed),
		attribute.String("reason", string(decision.Reason)),
	)
	span.SetStatus(codes.Ok, "")
	return decision, nil
}

// IsAllowed is Decide without the reason.
func (s *Service) IsAllowed(ctx context.Context, sender, recipient id.Address) (bool, error) {
	decision, err := s.Decide(ctx, sender, recipient)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

func (s *Service) fail(span trace.Span, err error, msg string) (Decision, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	if _, coded := dErrors.As(err); coded {
		return Decision{}, err
	}
	return Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
