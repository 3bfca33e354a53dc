package enforce

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds the driver's retry loop.
//
// The zero value retries forever with no delay beyond the polling cadence
// inside each attempt.
type RetryPolicy struct {
	// MaxAttempts caps enforcement attempts; 0 means unlimited.
	MaxAttempts int

	// InitialInterval is the first delay between attempts; 0 disables backoff.
	InitialInterval time.Duration

	// MaxInterval caps the exponential delay.
	MaxInterval time.Duration

	// Multiplier grows the delay after each failed attempt (default 2).
	Multiplier float64

	// MaxElapsed stops retrying once this much time has passed; 0 means unlimited.
	MaxElapsed time.Duration
}

// Validate checks the policy for negative values.
func (p RetryPolicy) Validate() error {
	switch {
	case p.MaxAttempts < 0:
		return fmt.Errorf("max attempts must not be negative, got %d", p.MaxAttempts)
	case p.InitialInterval < 0:
		return fmt.Errorf("initial interval must not be negative, got %v", p.InitialInterval)
	case p.MaxInterval < 0:
		return fmt.Errorf("max interval must not be negative, got %v", p.MaxInterval)
	case p.Multiplier < 0:
		return fmt.Errorf("multiplier must not be negative, got %v", p.Multiplier)
	case p.MaxElapsed < 0:
		return fmt.Errorf("max elapsed must not be negative, got %v", p.MaxElapsed)
	}
	return nil
}

// Unlimited reports whether the policy never gives up.
func (p RetryPolicy) Unlimited() bool {
	return p.MaxAttempts == 0 && p.MaxElapsed == 0
}

// String describes the limits of the policy for the operator log.
func (p RetryPolicy) String() string {
	if p.Unlimited() {
		return "unlimited attempts"
	}
	var limits []string
	if p.MaxAttempts > 0 {
		limits = append(limits, fmt.Sprintf("at most %d attempts", p.MaxAttempts))
	}
	if p.MaxElapsed > 0 {
		limits = append(limits, fmt.Sprintf("at most %v", p.MaxElapsed))
	}
	return strings.Join(limits, ", ")
}

func (p RetryPolicy) backOff() backoff.BackOff {
	if p.InitialInterval == 0 {
		return &backoff.ZeroBackOff{}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.RandomizationFactor = 0
	b.Multiplier = 2
	if p.Multiplier > 0 {
		b.Multiplier = p.Multiplier
	}
	b.MaxInterval = p.InitialInterval
	if p.MaxInterval > p.InitialInterval {
		b.MaxInterval = p.MaxInterval
	}
	return b
}

func (p RetryPolicy) options(notify backoff.Notify) []backoff.RetryOption {
	maxElapsed := time.Duration(math.MaxInt64)
	if p.MaxElapsed > 0 {
		maxElapsed = p.MaxElapsed
	}
	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxElapsedTime(maxElapsed),
		backoff.WithNotify(notify),
	}
	if p.MaxAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(uint(p.MaxAttempts)))
	}
	return opts
}
