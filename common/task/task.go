// Package task runs a background worker that owns its cancellation signal
// and can be stopped with a blocking join.
package task

import (
	"context"
	"sync"
)

// Handle refers to one running worker.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start runs fn on a new goroutine. fn must return once ctx is cancelled.
func Start(fn func(ctx context.Context)) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		fn(ctx)
	}()
	return h
}

// Stop cancels the worker and waits for it to exit. Safe to call more than once.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed when the worker has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
