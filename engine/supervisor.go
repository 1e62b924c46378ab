// Package engine runs the audio bridge on a background worker, reports its
// status and tears it down on request.
package engine

import (
	"context"
	"sync"
	"time"

	"micctl/audio"
	"micctl/common"
	"micctl/common/logger"
	"micctl/common/task"
	"micctl/gate"
)

const (
	DefaultStartTimeout = 5 * time.Second
	DefaultPollInterval = 150 * time.Millisecond
)

// runtime is the part of a running bridge the supervisor needs.
type runtime interface {
	Status(gate.State) audio.RuntimeStatus
	Close() error
}

type opener func(audio.Route) (runtime, error)

// Supervisor owns at most one running bridge.
type Supervisor struct {
	gate         *gate.Controller
	open         opener
	startTimeout time.Duration
	pollInterval time.Duration
	onChange     func(audio.RuntimeStatus)

	// mu serializes Start and Stop.
	mu     sync.Mutex
	worker *task.Handle

	statusMu sync.RWMutex
	status   audio.RuntimeStatus
}

type Option func(*Supervisor)

// WithOnChange registers fn to be called whenever the engine state or the
// last error changes. fn runs on the supervisor's goroutines and must not
// call Start, Stop or Running.
func WithOnChange(fn func(audio.RuntimeStatus)) Option {
	return func(s *Supervisor) { s.onChange = fn }
}

func WithStartTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.startTimeout = d }
}

func WithPollInterval(d time.Duration) Option {
	return func(s *Supervisor) { s.pollInterval = d }
}

func withOpener(o opener) Option {
	return func(s *Supervisor) { s.open = o }
}

// New creates an idle supervisor that opens bridges from dir.
func New(dir audio.Directory, g *gate.Controller, opts ...Option) *Supervisor {
	s := &Supervisor{
		gate:         g,
		startTimeout: DefaultStartTimeout,
		pollInterval: DefaultPollInterval,
		status:       audio.RuntimeStatus{EngineState: audio.EngineIdle},
	}
	s.open = func(r audio.Route) (runtime, error) {
		b, err := audio.Start(dir, r, g)
		if err != nil {
			return nil, err
		}
		logger.Info("Bridge running: in %+v, out %+v", b.InputFormat(), b.Format())
		return b, nil
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start brings the bridge up for route and waits for the worker to report
// back. Starting a running engine is a no-op.
func (s *Supervisor) Start(route audio.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.worker != nil {
		return nil
	}
	if err := route.Validate(); err != nil {
		return err
	}

	ready := make(chan startResult, 1)
	accepted := make(chan struct{})
	w := task.Start(func(ctx context.Context) {
		s.run(ctx, route, ready, accepted)
	})

	timer := time.NewTimer(s.startTimeout)
	defer timer.Stop()

	select {
	case res := <-ready:
		if res.err != nil {
			w.Stop()
			logger.Error("Engine failed to start: %v", res.err)
			s.setStatus(failedStatus(res.err))
			return res.err
		}
		s.worker = w
		s.setStatus(res.rt.Status(s.gate.Snapshot()))
		close(accepted)
		logger.Info("Engine started")
		return nil
	case <-timer.C:
		// Join the worker so a late bridge is closed before we report.
		w.Stop()
		err := common.Errorf(common.KindSystem, "engine start timed out")
		logger.Error("%v after %s", err, s.startTimeout)
		s.setStatus(failedStatus(err))
		return err
	}
}

type startResult struct {
	rt  runtime
	err error
}

func failedStatus(err error) audio.RuntimeStatus {
	msg := err.Error()
	return audio.RuntimeStatus{EngineState: audio.EngineError, LastError: &msg}
}

func closeRuntime(rt runtime) {
	if err := rt.Close(); err != nil {
		logger.Warn("Bridge close: %v", err)
	}
}

// run opens the bridge and hands it to Start. Nothing is published until
// Start accepts the bridge; a bridge that arrives after Start gave up is
// closed silently.
func (s *Supervisor) run(ctx context.Context, route audio.Route, ready chan<- startResult, accepted <-chan struct{}) {
	rt, err := s.open(route)
	if err != nil {
		ready <- startResult{err: err}
		return
	}
	if ctx.Err() != nil {
		closeRuntime(rt)
		return
	}
	ready <- startResult{rt: rt}

	select {
	case <-accepted:
	case <-ctx.Done():
		closeRuntime(rt)
		return
	}
	defer func() {
		closeRuntime(rt)
		s.setStatus(audio.RuntimeStatus{EngineState: audio.EngineIdle})
	}()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.setStatus(rt.Status(s.gate.Snapshot()))
		}
	}
}

// Stop tears the bridge down and returns once the worker has exited.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.worker == nil {
		return
	}
	s.worker.Stop()
	s.worker = nil
	logger.Info("Engine stopped")
}

// Running reports whether a bridge is up.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.worker != nil
}

// Status returns the last polled engine status with a fresh gate snapshot.
func (s *Supervisor) Status() audio.RuntimeStatus {
	s.statusMu.RLock()
	st := s.status
	s.statusMu.RUnlock()

	st.GateState = s.gate.Snapshot()
	return st
}

func (s *Supervisor) setStatus(st audio.RuntimeStatus) {
	s.statusMu.Lock()
	prev := s.status
	s.status = st
	s.statusMu.Unlock()

	if s.onChange != nil && (prev.EngineState != st.EngineState || !sameError(prev.LastError, st.LastError)) {
		st.GateState = s.gate.Snapshot()
		s.onChange(st)
	}
}

func sameError(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
