package remote

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Policy configures the backoff between attempts.
type Policy struct {
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration `mapstructure:"base_delay"`
	// MaxDelay caps the delay between two attempts.
	MaxDelay time.Duration `mapstructure:"max_delay"`
	// Multiplier grows the delay after every failed attempt.
	Multiplier float64 `mapstructure:"multiplier"`
	// Jitter randomises delays, between 0 and 1.
	Jitter float64 `mapstructure:"jitter"`
	// Deadline bounds the whole operation, retries included.
	Deadline time.Duration `mapstructure:"deadline"`
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
		Deadline:   2 * time.Minute,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		p.Jitter = def.Jitter
	}
	if p.Deadline <= 0 {
		p.Deadline = def.Deadline
	}

	return p
}

func (p Policy) backOff() backoff.BackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: p.Jitter,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.MaxDelay,
	}
}

// Executor applies a retry policy to remote operations.
type Executor struct {
	policy Policy
	logger zerolog.Logger
}

// NewExecutor creates an executor. Zero fields of policy take their default value.
func NewExecutor(policy Policy, logger zerolog.Logger) *Executor {
	return &Executor{
		policy: policy.withDefaults(),
		logger: logger,
	}
}

// Policy returns the effective policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Permanent marks err as not retryable.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, the context is done, or the policy
// deadline elapses. The deadline also bounds a running attempt: op gets a context that expires
// with it. The result of the successful attempt is returned unchanged.
func Do[T any](ctx context.Context, e *Executor, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	dctx, cancel := context.WithTimeout(ctx, e.policy.Deadline)
	defer cancel()

	start := time.Now()
	attempts := 0
	permanent := false
	var lastErr error

	res, err := backoff.Retry(dctx, func() (T, error) {
		attempts++
		res, err := op(dctx)
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			permanent = true
		}
		if err != nil {
			lastErr = err
		}

		return res, err
	},
		backoff.WithBackOff(e.policy.backOff()),
		backoff.WithMaxElapsedTime(e.policy.Deadline),
		backoff.WithNotify(func(err error, next time.Duration) {
			e.logger.Warn().Err(err).Str("operation", name).Int("attempt", attempts).Dur("retry_in", next).Msg("remote call failed, retrying")
		}),
	)
	if err == nil {
		return res, nil
	}

	switch {
	case permanent:
		return zero, errors.Wrapf(err, "%s", name)
	case ctx.Err() != nil:
		return zero, errors.Wrapf(ctx.Err(), "%s interrupted after %d attempts", name, attempts)
	default:
		if lastErr == nil {
			lastErr = err
		}
		exhausted := &ExhaustedError{Name: name, Attempts: attempts, Elapsed: time.Since(start), Err: lastErr}
		e.logger.Error().Err(lastErr).Str("operation", name).Int("attempts", attempts).Msg("remote call gave up")

		return zero, exhausted
	}
}
