package agent

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Agent is one named background task with a lifecycle. Implementations are
// TimerAgent and DaemonAgent, built by a Factory.
type Agent interface {
	Name() string
	Kind() Kind
	Config() Configuration
	State() State
	Start(ctx context.Context) error
	Stop(ctx context.Context, timeout time.Duration) error
	RunNow(ctx context.Context) error
	Snapshot() Snapshot

	attach(emit func(Event))
	retire() error
}

type RunInfo struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

type session struct {
	// sched is done once no new cycle may be scheduled.
	sched  context.Context
	disarm context.CancelFunc
	// run is the parent of every cycle context; cancelling it interrupts the
	// in-flight cycle.
	run       context.Context
	interrupt context.CancelFunc
	stop      chan struct{}
	stopOnce  *sync.Once
	worker    chan struct{}
}

func newSession() *session {
	sched, disarm := context.WithCancel(context.Background())
	run, interrupt := context.WithCancel(context.Background())
	return &session{
		sched:     sched,
		disarm:    disarm,
		run:       run,
		interrupt: interrupt,
		stop:      make(chan struct{}),
		stopOnce:  new(sync.Once),
		worker:    make(chan struct{}),
	}
}

func (s *session) requestStop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

type base struct {
	logger  *zap.Logger
	config  Configuration
	binding *Binding
	grace   time.Duration
	work    func(s *session)

	// lifecycle serializes Start, Stop and retirement; lock guards the fields
	// below.
	lifecycle *sync.Mutex
	lock      *sync.Mutex
	state     atomic.Value

	session   *session
	inflight  chan struct{}
	stopping  bool
	retired   bool
	startedAt time.Time
	stoppedAt time.Time
	lastRun   *RunInfo
	runs      int64
	failures  int64
	skipped   int64
	emit      func(Event)
}

func newBase(logger *zap.Logger, config Configuration, binding *Binding, grace time.Duration) *base {
	if grace <= 0 {
		grace = DefaultStopGrace
	}
	a := &base{
		logger:    logger.Named(config.Name),
		config:    config,
		binding:   binding,
		grace:     grace,
		lifecycle: new(sync.Mutex),
		lock:      new(sync.Mutex),
	}
	a.state.Store(StateSet)
	return a
}

func (a *base) Name() string          { return a.config.Name }
func (a *base) Kind() Kind            { return a.config.Kind }
func (a *base) Config() Configuration { return a.config }

func (a *base) State() State {
	return a.state.Load().(State)
}

// setState must be called with lock held.
func (a *base) setState(next State) bool {
	prev := a.State()
	if !ValidTransition(prev, next) {
		a.logger.Error("illegal state transition",
			zap.String("from", prev.String()),
			zap.String("to", next.String()),
		)
		return false
	}
	a.state.Store(next)
	a.logger.Debug("state changed", zap.String("from", prev.String()), zap.String("to", next.String()))
	return true
}

func (a *base) attach(emit func(Event)) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.emit = emit
}

func (a *base) notify(typ EventType, err error) {
	a.lock.Lock()
	emit := a.emit
	state := a.State()
	a.lock.Unlock()

	if emit == nil {
		return
	}
	event := Event{
		ID:    uuid.NewString(),
		Type:  typ,
		Agent: a.config.Name,
		Kind:  a.config.Kind,
		State: state,
		Time:  time.Now(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	emit(event)
}

func (a *base) errRetired() error {
	return fmt.Errorf("%w: %s", ErrNotFound, a.config.Name)
}

func (a *base) Start(ctx context.Context) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.lock.Lock()
	if a.retired {
		a.lock.Unlock()
		return a.errRetired()
	}
	state := a.State()
	if state != StateSet && state != StateStopped {
		a.lock.Unlock()
		return &StateError{Agent: a.config.Name, Op: "start", State: state, Reason: "already started"}
	}

	s := newSession()
	a.session = s
	a.stopping = false
	a.startedAt = time.Now()
	a.setState(StateStarted)
	a.lock.Unlock()

	go func() {
		defer close(s.worker)
		a.work(s)
	}()

	a.logger.Info("agent started")
	a.notify(EventStarted, nil)
	return nil
}

// Stop disarms the agent and waits for the in-flight cycle, if any, for
// min(timeout, StopTimeout). The cycle is then interrupted through its
// context and given the grace period to return. An agent whose cycle is
// still alive after that is left STUCK.
func (a *base) Stop(ctx context.Context, timeout time.Duration) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.lock.Lock()
	if a.retired {
		a.lock.Unlock()
		return a.errRetired()
	}
	state := a.State()
	if state != StateStarted && state != StateRunning && state != StateStuck {
		a.lock.Unlock()
		return &StateError{Agent: a.config.Name, Op: "stop", State: state, Reason: "not started"}
	}
	s := a.session
	a.stopping = true
	inflight := a.inflight
	a.lock.Unlock()

	begin := time.Now()
	s.disarm()
	s.requestStop()

	if inflight != nil && state != StateStuck {
		wait := effectiveTimeout(timeout, a.config.StopTimeout)
		if !waitFor(ctx, inflight, wait) {
			a.logger.Warn("interrupting running task", zap.Duration("waited", time.Since(begin)))
		}
	}
	s.interrupt()

	if inflight != nil && !waitFor(context.Background(), inflight, a.grace) {
		a.lock.Lock()
		stuck := false
		if a.State() == StateRunning {
			stuck = a.setState(StateStuck)
		}
		still := a.State() == StateStuck
		a.lock.Unlock()

		if still {
			elapsed := time.Since(begin)
			a.logger.Error("task did not stop", zap.Duration("elapsed", elapsed))
			if stuck {
				a.notify(EventStuck, nil)
			}
			return &StopTimeoutError{Agent: a.config.Name, Elapsed: elapsed}
		}
	}
	<-s.worker

	a.lock.Lock()
	stopped := false
	if a.State() != StateStopped {
		stopped = a.setState(StateStopped)
		a.startedAt = time.Time{}
		a.stoppedAt = time.Now()
	}
	a.lock.Unlock()

	if stopped {
		a.logger.Info("agent stopped", zap.Duration("elapsed", time.Since(begin)))
		a.notify(EventStopped, nil)
	}
	return nil
}

func (a *base) runNow(ctx context.Context) error {
	a.lock.Lock()
	if a.retired {
		a.lock.Unlock()
		return a.errRetired()
	}
	state := a.State()
	if state != StateStarted || a.stopping {
		a.lock.Unlock()
		reason := "not started"
		switch {
		case state == StateRunning:
			reason = "already running"
		case a.stopping && state == StateStarted:
			reason = "stopping"
		}
		return &StateError{Agent: a.config.Name, Op: "run", State: state, Reason: reason}
	}
	s := a.session
	a.beginLocked()
	a.lock.Unlock()

	a.execute(ctx, s)
	return nil
}

// fire starts a scheduled cycle, unless the agent is not idle.
func (a *base) fire(s *session) {
	a.lock.Lock()
	if a.session != s || a.stopping {
		a.lock.Unlock()
		return
	}
	if state := a.State(); state != StateStarted {
		if state == StateRunning {
			a.skipped++
			a.logger.Debug("skipped firing, cycle in flight")
		}
		a.lock.Unlock()
		return
	}
	a.beginLocked()
	a.lock.Unlock()

	a.execute(context.Background(), s)
}

func (a *base) beginLocked() {
	a.setState(StateRunning)
	a.inflight = make(chan struct{})
}

func (a *base) execute(caller context.Context, s *session) {
	ctx, cancel := context.WithCancel(s.run)
	defer cancel()
	stopAfter := context.AfterFunc(caller, cancel)
	defer stopAfter()

	logger := a.logger.With(zap.String("run", uuid.NewString()))
	ctx = taskContext(ctx, a.config.Name, s.stop, logger)

	startedAt := time.Now()
	err := a.binding.Invoke(ctx)
	a.finish(startedAt, time.Since(startedAt), err)

	if err != nil {
		logger.Warn("task failed", zap.Error(err))
	}
}

func (a *base) finish(startedAt time.Time, duration time.Duration, err error) {
	a.lock.Lock()
	a.runs++
	run := &RunInfo{StartedAt: startedAt, Duration: duration}
	if err != nil {
		a.failures++
		run.Error = err.Error()
	}
	a.lastRun = run

	late := false
	switch a.State() {
	case StateRunning:
		a.setState(StateStarted)
	case StateStuck:
		late = a.setState(StateStopped)
		a.startedAt = time.Time{}
		a.stoppedAt = time.Now()
	}
	close(a.inflight)
	a.inflight = nil
	a.lock.Unlock()

	if err != nil {
		a.notify(EventRunFailed, err)
	} else {
		a.notify(EventRunCompleted, nil)
	}
	if late {
		a.logger.Info("stuck task returned, agent stopped")
		a.notify(EventStopped, nil)
	}
}

func (a *base) retire() error {
	if !a.lifecycle.TryLock() {
		return &StateError{Agent: a.config.Name, Op: "retire", State: a.State(), Reason: "busy"}
	}
	defer a.lifecycle.Unlock()

	a.lock.Lock()
	defer a.lock.Unlock()

	if a.retired {
		return a.errRetired()
	}
	if state := a.State(); !state.Removable() {
		return &StateError{Agent: a.config.Name, Op: "retire", State: state, Reason: "not stopped"}
	}
	a.retired = true
	return nil
}

func effectiveTimeout(requested time.Duration, configured time.Duration) time.Duration {
	switch {
	case requested <= 0:
		return configured
	case configured <= 0:
		return requested
	case requested < configured:
		return requested
	default:
		return configured
	}
}

// waitFor waits until done is closed, timeout elapses or ctx is done. A
// non-positive timeout waits without bound.
func waitFor(ctx context.Context, done <-chan struct{}, timeout time.Duration) bool {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-done:
		return true
	case <-expired:
		return false
	case <-ctx.Done():
		return false
	}
}
