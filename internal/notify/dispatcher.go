package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/portfolio-contact/internal/observability/metrics"
	"github.com/wolfman30/portfolio-contact/pkg/logging"
)

const defaultChannelTimeout = 10 * time.Second

// Dispatcher fans a submission out to every registered channel and waits for
// all of them to settle. A channel failure, panic or timeout becomes a failure
// Outcome and never reaches the caller as an error.
type Dispatcher struct {
	channels []Channel
	timeout  time.Duration
	metrics  *metrics.NotificationMetrics
	logger   *logging.Logger
}

// NewDispatcher creates a dispatcher over the given channels. Outcomes are
// returned in registration order.
func NewDispatcher(logger *logging.Logger, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		channels: channels,
		timeout:  defaultChannelTimeout,
		logger:   logger,
	}
}

// WithTimeout bounds every single channel attempt.
func (d *Dispatcher) WithTimeout(timeout time.Duration) *Dispatcher {
	if timeout > 0 {
		d.timeout = timeout
	}
	return d
}

func (d *Dispatcher) WithMetrics(m *metrics.NotificationMetrics) *Dispatcher {
	d.metrics = m
	return d
}

// Dispatch invokes each channel concurrently and returns one Outcome per channel.
func (d *Dispatcher) Dispatch(ctx context.Context, p Payload) []Outcome {
	outcomes := make([]Outcome, len(d.channels))

	var g errgroup.Group
	for i, ch := range d.channels {
		g.Go(func() error {
			outcomes[i] = d.invoke(ctx, ch, p)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

type attempt struct {
	outcome Outcome
	err     error
}

func (d *Dispatcher) invoke(ctx context.Context, ch Channel, p Payload) Outcome {
	kind := ch.Kind()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	// Buffered so a channel that outlives the timeout can still finish its send.
	done := make(chan attempt, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- attempt{err: transportError(kind, fmt.Errorf("panic: %v", r))}
			}
		}()
		out, err := ch.Notify(ctx, p)
		done <- attempt{outcome: out, err: err}
	}()

	var out Outcome
	select {
	case res := <-done:
		out = settle(kind, res)
	case <-ctx.Done():
		out = failed(kind, transportError(kind, fmt.Errorf("timed out after %s", d.timeout)))
	}

	d.record(kind, out, time.Since(start), p.ContactID)
	return out
}

func settle(kind Kind, res attempt) Outcome {
	if res.err != nil {
		return failed(kind, res.err)
	}
	out := res.outcome
	out.Channel = kind
	if !out.Success && out.Error == "" {
		out.Error = ErrTransport.Error()
	}
	return out
}

func (d *Dispatcher) record(kind Kind, out Outcome, elapsed time.Duration, contactID string) {
	status := "sent"
	switch {
	case out.Success:
		d.logger.Info("notification sent", "channel", kind, "contact_id", contactID, "reference_id", out.ReferenceID)
	case out.Error == ErrNotConfigured.Error():
		status = "not_configured"
		d.logger.Warn("notification channel not configured", "channel", kind, "contact_id", contactID)
	default:
		status = "failed"
		d.logger.Error("notification failed", "channel", kind, "contact_id", contactID, "error", out.Error)
	}
	d.metrics.ObserveOutcome(string(kind), status, elapsed.Seconds())
}

// IsNotConfigured reports whether err marks an unconfigured channel.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}
