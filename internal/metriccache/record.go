package metriccache

import (
	"fmt"
	"strings"
	"time"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
)

// Kind is the outcome a cache entry records
type Kind string

const (
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
)

// TTLs holds the independent lifetimes of each entry kind
type TTLs struct {
	Success time.Duration
	Failure time.Duration
}

// DefaultTTLs: 성공 24시간, 실패 1시간 (재시도 백오프)
func DefaultTTLs() TTLs {
	return TTLs{
		Success: 24 * time.Hour,
		Failure: time.Hour,
	}
}

// For returns the TTL of kind
func (t TTLs) For(kind Kind) time.Duration {
	if kind == KindFailure {
		return t.Failure
	}
	return t.Success
}

// Record is one persisted cache entry.
// Unknown JSON fields are ignored on read.
type Record struct {
	Kind      Kind                      `json:"kind"`
	FetchedAt time.Time                 `json:"fetched_at"`
	Payload   *contracts.MetricSnapshot `json:"payload,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

// Live reports whether the record is still within its kind's TTL
func (r Record) Live(now time.Time, ttls TTLs) bool {
	return now.Sub(r.FetchedAt) < ttls.For(r.Kind)
}

// ExpiresAt returns when the record stops being live
func (r Record) ExpiresAt(ttls TTLs) time.Time {
	return r.FetchedAt.Add(ttls.For(r.Kind))
}

// validate rejects structurally broken records read from storage
func (r Record) validate() error {
	if r.FetchedAt.IsZero() {
		return fmt.Errorf("%w: missing fetched_at", contracts.ErrCacheCorruption)
	}
	switch r.Kind {
	case KindSuccess:
		if r.Payload == nil {
			return fmt.Errorf("%w: success entry without payload", contracts.ErrCacheCorruption)
		}
	case KindFailure:
	default:
		return fmt.Errorf("%w: unknown kind %q", contracts.ErrCacheCorruption, r.Kind)
	}
	return nil
}

// NormalizeKey upper-cases and trims an identifier
func NormalizeKey(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
