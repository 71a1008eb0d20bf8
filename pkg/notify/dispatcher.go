package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single background delivery.
const DefaultTimeout = 30 * time.Second

// FailureRecorder observes failed deliveries. WorkflowMetrics implements it.
type FailureRecorder interface {
	NotificationFailed(kind string)
}

// Dispatcher delivers notices asynchronously. Calls never block the caller
// and never return errors; failures are logged and counted.
type Dispatcher struct {
	notifier Notifier
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *slog.Logger
	failures FailureRecorder

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRate limits deliveries to perSecond with the given burst. A
// non-positive rate disables limiting.
func WithRate(perSecond float64, burst int) DispatcherOption {
	return func(d *Dispatcher) {
		if perSecond <= 0 {
			d.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithTimeout bounds each delivery.
func WithTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) { disp.timeout = d }
}

// WithDispatchLogger sets the logger.
func WithDispatchLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l.With("component", "notify") }
}

// WithFailureRecorder reports failed deliveries to r.
func WithFailureRecorder(r FailureRecorder) DispatcherOption {
	return func(d *Dispatcher) { d.failures = r }
}

// NewDispatcher wraps n.
func NewDispatcher(n Notifier, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		notifier: n,
		timeout:  DefaultTimeout,
		logger:   slog.Default().With("component", "notify"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Validators queues a validator notice.
func (d *Dispatcher) Validators(ctx context.Context, n ValidatorNotice) {
	d.dispatch(ctx, "validators", n.EntityID, func(ctx context.Context) error {
		return d.notifier.NotifyValidators(ctx, n)
	})
}

// Submitter queues a submitter notice.
func (d *Dispatcher) Submitter(ctx context.Context, n SubmitterNotice) {
	d.dispatch(ctx, "submitter", n.EntityID, func(ctx context.Context) error {
		return d.notifier.NotifySubmitter(ctx, n)
	})
}

func (d *Dispatcher) dispatch(parent context.Context, kind, entityID string, send func(context.Context) error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.WarnContext(parent, "notification dropped after close", "kind", kind, "entity_id", entityID)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	// Detach from the request so a finished HTTP call does not cancel delivery.
	base := context.WithoutCancel(parent)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.ErrorContext(base, "notifier panicked", "kind", kind, "entity_id", entityID, "panic", r)
				d.fail(kind)
			}
		}()

		ctx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()

		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				d.logger.WarnContext(ctx, "notification rate wait failed", "kind", kind, "entity_id", entityID, "error", err)
				d.fail(kind)
				return
			}
		}
		if err := send(ctx); err != nil {
			d.logger.ErrorContext(ctx, "notification failed", "kind", kind, "entity_id", entityID, "error", err)
			d.fail(kind)
		}
	}()
}

func (d *Dispatcher) fail(kind string) {
	if d.failures != nil {
		d.failures.NotificationFailed(kind)
	}
}

// Close stops accepting notices and waits for in-flight deliveries or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Multi fans a notice out to several notifiers and joins their errors.
type Multi []Notifier

func (m Multi) NotifyValidators(ctx context.Context, n ValidatorNotice) error {
	var errs []error
	for _, nt := range m {
		if err := nt.NotifyValidators(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) NotifySubmitter(ctx context.Context, n SubmitterNotice) error {
	var errs []error
	for _, nt := range m {
		if err := nt.NotifySubmitter(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

