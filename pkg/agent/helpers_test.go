package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// probe observes the cycles of the test tasks below. Tasks find their probe
// through the "probe" param.
type probe struct {
	calls     atomic.Int32
	altCalls  atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
	entered   chan struct{}
	// release blocks cycles until closed. Cycles also return on
	// cancellation unless stubborn is set.
	release  chan struct{}
	stubborn bool
	err      error
}

var (
	probes   sync.Map
	probeSeq atomic.Int64
)

func newProbe(t *testing.T) (string, *probe) {
	id := fmt.Sprintf("%s#%d", t.Name(), probeSeq.Add(1))
	p := &probe{entered: make(chan struct{}, 1024)}
	probes.Store(id, p)
	t.Cleanup(func() { probes.Delete(id) })
	return id, p
}

func findProbe(params map[string]string) (*probe, error) {
	v, ok := probes.Load(params["probe"])
	if !ok {
		return nil, errors.New("unknown probe")
	}
	return v.(*probe), nil
}

func (p *probe) enter() func() {
	n := p.active.Add(1)
	for {
		top := p.maxActive.Load()
		if n <= top || p.maxActive.CompareAndSwap(top, n) {
			break
		}
	}
	p.calls.Add(1)
	select {
	case p.entered <- struct{}{}:
	default:
	}
	return func() { p.active.Add(-1) }
}

func (p *probe) block(ctx context.Context) error {
	if p.release == nil {
		return nil
	}
	if p.stubborn {
		<-p.release
		return nil
	}
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type probeTask struct{ p *probe }

func (t *probeTask) Configure(params map[string]string) error {
	p, err := findProbe(params)
	t.p = p
	return err
}

func (t *probeTask) Run(ctx context.Context) error {
	defer t.p.enter()()
	if err := t.p.block(ctx); err != nil {
		return err
	}
	return t.p.err
}

type altTask struct{ probeTask }

func (t *altTask) Run(ctx context.Context) error {
	t.p.altCalls.Add(1)
	return t.probeTask.Run(ctx)
}

type loopTask struct{ p *probe }

func (t *loopTask) Configure(params map[string]string) error {
	p, err := findProbe(params)
	t.p = p
	return err
}

func (t *loopTask) Execute(ctx context.Context) {
	defer t.p.enter()()
	for {
		select {
		case <-StopRequested(ctx):
			return
		case <-time.After(5 * time.Millisecond):
		}
	}
}

type panicTask struct{}

func (panicTask) Run(ctx context.Context) error {
	panic("boom")
}

func newTestCatalog() *Catalog {
	c := NewCatalog()
	c.Register("probe", probeTask{})
	c.Register("loop", loopTask{})
	c.Register("panic", panicTask{})
	return c
}

func newTestFactory() *Factory {
	return NewFactory(zap.NewNop(), newTestCatalog(), 100*time.Millisecond)
}

func timerConfig(name string, probeID string, interval time.Duration) Configuration {
	return Configuration{
		Name:                 name,
		Kind:                 KindTimer,
		Interval:             interval,
		AutomaticallyStarted: true,
		Task:                 "probe",
		Params:               map[string]string{"probe": probeID},
	}
}

func daemonConfig(name string, task string, probeID string) Configuration {
	return Configuration{
		Name:                 name,
		Kind:                 KindDaemon,
		AutomaticallyStarted: true,
		Task:                 task,
		Params:               map[string]string{"probe": probeID},
	}
}

func mustBuild(t *testing.T, f *Factory, config Configuration) Agent {
	a, err := f.Build(config)
	if err != nil {
		t.Fatalf("cannot build agent: %s", err)
	}
	return a
}

func eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

func waitEntered(p *probe, timeout time.Duration) bool {
	select {
	case <-p.entered:
		return true
	case <-time.After(timeout):
		return false
	}
}
