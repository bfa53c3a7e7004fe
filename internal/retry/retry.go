package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

var (
	// ErrAborted is returned when the operator confirms an abort during a retry wait.
	ErrAborted = errors.New("aborted by operator")
	// ErrAttemptsExhausted is returned when a bounded policy gives up.
	ErrAttemptsExhausted = errors.New("retry attempts exhausted")
)

// Policy configures how transient failures are retried.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int // total attempts per call; 0 retries forever
}

// DefaultPolicy waits ten seconds between attempts and gives up after 60.
func DefaultPolicy() Policy {
	return Policy{Interval: 10 * time.Second, MaxAttempts: 60}
}

// Confirmer asks the operator a yes/no question.
type Confirmer func(question string) (bool, error)

// Controller wraps every outbound network call. Transient failures are logged
// and retried after a fixed interval; anything else is returned at once.
type Controller struct {
	policy    Policy
	logger    *logrus.Logger
	interrupt <-chan os.Signal
	confirm   Confirmer
}

// Option configures a Controller.
type Option func(*Controller)

// WithInterrupt makes retry waits observe operator interrupts.
func WithInterrupt(ch <-chan os.Signal) Option {
	return func(c *Controller) { c.interrupt = ch }
}

// WithConfirmer replaces the terminal abort prompt.
func WithConfirmer(confirm Confirmer) Option {
	return func(c *Controller) { c.confirm = confirm }
}

// New creates a Controller. A nil logger discards log output.
func New(policy Policy, logger *logrus.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	c := &Controller{
		policy:  policy,
		logger:  logger,
		confirm: TerminalConfirm,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the controller's retry policy.
func (c *Controller) Policy() Policy {
	return c.policy
}

// newBackOff returns a fresh schedule; BackOff implementations are stateful.
func (c *Controller) newBackOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = backoff.NewConstantBackOff(c.policy.Interval)
	if c.policy.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(c.policy.MaxAttempts-1))
	}
	b = backoff.WithContext(b, ctx)
	b.Reset()
	return b
}

// Do runs fn until it succeeds, fails permanently, or the policy gives up.
// op names the call in log lines and errors.
func (c *Controller) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	b := c.newBackOff(ctx)

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return perm.Unwrap()
		}
		if !IsTransient(err) {
			return err
		}

		next := b.NextBackOff()
		if next == backoff.Stop {
			c.logger.WithFields(logrus.Fields{
				"op":       op,
				"attempts": attempt,
			}).WithError(err).Error("giving up after repeated transient failures")
			return fmt.Errorf("%s: %w after %d attempts: %w", op, ErrAttemptsExhausted, attempt, err)
		}

		c.logger.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
			"delay":   next,
		}).WithError(err).Warn("transient failure, retrying")

		if err := c.wait(ctx, next); err != nil {
			return err
		}
	}
}

// CheckInterrupt handles an interrupt that arrived outside a retry wait.
// It never blocks when no interrupt is pending.
func (c *Controller) CheckInterrupt(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.interrupt:
		return c.onInterrupt()
	default:
		return nil
	}
}

func (c *Controller) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-c.interrupt:
			if err := c.onInterrupt(); err != nil {
				return err
			}
		}
	}
}

func (c *Controller) onInterrupt() error {
	abort, err := c.confirm("Interrupted. Abort the run?")
	if err != nil {
		return fmt.Errorf("confirming abort: %w", err)
	}
	if abort {
		c.logger.Warn("run aborted by operator")
		return ErrAborted
	}
	c.logger.Info("continuing after interrupt")
	return nil
}
