// Package models holds the rate limiting vocabulary shared by stores and the
// HTTP middleware.
package models

import (
	"strings"
	"time"
)

// Class groups routes that share a limit.
type Class string

const (
	// ClassRead covers the public query routes.
	ClassRead Class = "read"
	// ClassWrite covers admin, holder and ledger hook routes.
	ClassWrite Class = "write"
)

func (c Class) IsValid() bool {
	return c == ClassRead || c == ClassWrite
}

type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds
}

// Key builds the bucket key for a client in a class. Colons inside the
// client segment are escaped so IPv6 literals cannot collide with the
// delimiter.
func Key(class Class, client string) string {
	return "rl:" + string(class) + ":" + strings.ReplaceAll(client, ":", "_")
}
