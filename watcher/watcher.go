// Package watcher provides change notification for configuration sources.
//
// Sources that can observe their backing store (for example a file via
// fsnotify) implement Subscriber. Run fans in any number of subscriptions,
// coalesces bursts of events and invokes a single callback.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultDebounce is the default quiet period before a burst of change
// events is reported.
const DefaultDebounce = 200 * time.Millisecond

// NotifyFunc is called by a subscription when its source changed (err == nil)
// or when watching failed (err != nil).
type NotifyFunc func(err error)

// StopFunc stops a subscription.
// The context can be used for timeout/cancellation of cleanup operations.
type StopFunc func(ctx context.Context) error

// Subscriber is implemented by sources that can report changes.
type Subscriber interface {
	// Subscribe starts receiving change notifications.
	// Returns a StopFunc to unsubscribe, or an error if subscription failed.
	Subscribe(ctx context.Context, notify NotifyFunc) (StopFunc, error)
}

// SubscriberFunc is a function that implements Subscriber.
type SubscriberFunc func(ctx context.Context, notify NotifyFunc) (StopFunc, error)

// Subscribe implements Subscriber.
func (f SubscriberFunc) Subscribe(ctx context.Context, notify NotifyFunc) (StopFunc, error) {
	return f(ctx, notify)
}

// ErrNoSubscribers is returned by Run when there is nothing to watch.
var ErrNoSubscribers = errors.New("watcher: no subscribers")

// Config configures Run.
type Config struct {
	// Debounce is the quiet period after the last event before OnChange
	// runs. Zero uses DefaultDebounce; a negative value disables debouncing.
	Debounce time.Duration

	// OnError receives watch errors. Watching continues after an error.
	OnError func(err error)
}

// Option is a functional option for Config.
type Option func(*Config)

// WithDebounce sets the debounce period.
func WithDebounce(d time.Duration) Option {
	return func(c *Config) {
		c.Debounce = d
	}
}

// WithErrorHandler sets the error callback.
func WithErrorHandler(fn func(err error)) Option {
	return func(c *Config) {
		c.OnError = fn
	}
}

// Run subscribes to every subscriber and calls onChange after changes,
// until ctx is done. All subscriptions are stopped before Run returns.
// onChange is never called concurrently with itself.
//
// Run returns nil when ctx is cancelled, or an error if a subscription
// could not be started.
func Run(ctx context.Context, subs []Subscriber, onChange func(), opts ...Option) error {
	if len(subs) == 0 {
		return ErrNoSubscribers
	}

	cfg := Config{Debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = DefaultDebounce
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan struct{}, 1)
	errs := make(chan error, 1)

	notify := func(err error) {
		if err != nil {
			select {
			case errs <- err:
			case <-ctx.Done():
			}
			return
		}
		select {
		case events <- struct{}{}:
		default:
			// An event is already pending.
		}
	}

	var stops []StopFunc
	stopAll := func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		for _, stop := range stops {
			_ = stop(stopCtx)
		}
	}
	defer stopAll()

	for i, sub := range subs {
		stop, err := sub.Subscribe(ctx, notify)
		if err != nil {
			return fmt.Errorf("watcher: subscribe #%d: %w", i, err)
		}
		stops = append(stops, stop)
	}

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	fire := onChange

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case err := <-errs:
			if cfg.OnError != nil {
				cfg.OnError(err)
			}
		case <-events:
			if cfg.Debounce < 0 {
				fire()
				continue
			}
			if timer == nil {
				timer = time.NewTimer(cfg.Debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(cfg.Debounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			fire()
		}
	}
}
