package ratelimit

import (
	"context"
	"time"
)

// Default policy: at most 2 submissions per client key per rolling 24h
// window.
const (
	DefaultQuota  = 2
	DefaultWindow = 24 * time.Hour
)

// Result is what the limiter reports back to the orchestrator.
type Result struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
}

// Limiter admits or rejects one attempt for a key. Check is
// check-and-record in a single atomic step: if the attempt is allowed it
// has already been recorded when Check returns; if not, nothing was
// recorded. Remaining is computed after the new attempt is counted.
//
// Store errors propagate to the caller; the limiter never silently
// converts an outage into an allow or a deny.
type Limiter interface {
	Check(ctx context.Context, key string) (Result, error)
}
