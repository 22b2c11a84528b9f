package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatcher delivers notifications in the background so request handlers
// can answer immediately.
type Dispatcher struct {
	notifier *Notifier

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher creates a dispatcher that sends through n.
func NewDispatcher(n *Notifier) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		notifier: n,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Dispatch queues a notification. It does not block on delivery.
// Notifications dispatched after Stop are dropped.
func (d *Dispatcher) Dispatch(url string, payload any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		slog.Warn("Dispatcher stopped, dropping notification", "url", url)
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.notifier.Notify(d.ctx, url, payload)
	}()
}

// Stop waits for in-flight notifications. When ctx expires first, pending
// retries are abandoned.
func (d *Dispatcher) Stop(ctx context.Context) error {
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
		d.cancel()
		return nil
	case <-ctx.Done():
		slog.Warn("Abandoning in-flight notifications", "error", ctx.Err())
		d.cancel()
		<-done
		return ctx.Err()
	}
}
