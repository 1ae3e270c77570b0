package embedding

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/DreamCats/medindex/internal/config"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RealSleeper waits on the wall clock.
var RealSleeper Sleeper = realSleeper{}

// Policy is exponential backoff for rate-limited calls.
// Attempt n (0-based) that fails transiently waits BaseDelay*Multiplier^n,
// floored to QuotaFloor when the failure names a per-window quota.
// The last attempt never sleeps.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	QuotaFloor  time.Duration
}

// DefaultPolicy matches the configuration defaults.
var DefaultPolicy = Policy{
	MaxAttempts: 10,
	BaseDelay:   2 * time.Second,
	Multiplier:  2,
	QuotaFloor:  30 * time.Second,
}

// PolicyFromConfig builds a Policy from retry settings, falling back to
// DefaultPolicy for unset fields.
func PolicyFromConfig(cfg config.RetryConfig) Policy {
	p := DefaultPolicy
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelay > 0 {
		p.BaseDelay = cfg.BaseDelay
	}
	if cfg.Multiplier >= 1 {
		p.Multiplier = cfg.Multiplier
	}
	if cfg.QuotaFloor > 0 {
		p.QuotaFloor = cfg.QuotaFloor
	}
	return p
}

// Delay returns the wait after failed attempt n for the given class.
func (p Policy) Delay(attempt int, class Class) time.Duration {
	d := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt)))
	if class == ClassQuotaWindow && d < p.QuotaFloor {
		d = p.QuotaFloor
	}
	return d
}

// Class is how an embedding error is handled.
type Class int

const (
	ClassPermanent Class = iota
	ClassThrottled
	ClassQuotaWindow
)

func (c Class) String() string {
	switch c {
	case ClassThrottled:
		return "throttled"
	case ClassQuotaWindow:
		return "quota_window"
	default:
		return "permanent"
	}
}

// Classify decides whether err is worth retrying. Rate limits surface as
// HTTP 429 or as messages mentioning an exhausted resource or quota; a
// per-minute quota gets the longer floor.
func Classify(err error) Class {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassPermanent
	}

	msg := strings.ToLower(err.Error())
	transient := strings.Contains(msg, "429") ||
		strings.Contains(msg, "resource exhausted") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "resource has been exhausted") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit")

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		transient = true
	}

	if !transient {
		return ClassPermanent
	}
	if strings.Contains(msg, "per_minute") || strings.Contains(msg, "perminute") || strings.Contains(msg, "per minute") {
		return ClassQuotaWindow
	}
	return ClassThrottled
}
