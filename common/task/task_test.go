package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestStopJoinsWorker(t *testing.T) {
	is := is.New(t)

	var exited atomic.Bool
	h := Start(func(ctx context.Context) {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		exited.Store(true)
	})

	h.Stop()
	is.True(exited.Load()) // Stop returns only after the worker exits

	select {
	case <-h.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	h := Start(func(ctx context.Context) { <-ctx.Done() })
	h.Stop()
	h.Stop()

	var nilHandle *Handle
	nilHandle.Stop()
}

func TestWorkerExitingOnItsOwn(t *testing.T) {
	is := is.New(t)

	h := Start(func(ctx context.Context) {})
	<-h.Done()
	h.Stop() // no deadlock after a natural exit
	is.True(true)
}
