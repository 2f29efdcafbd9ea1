package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oursky/agent-manager/pkg/utils/channels"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Manager is the registry of agents. Its lock only guards membership; agent
// operations run outside of it and are serialized by each agent.
type Manager struct {
	logger  *zap.Logger
	config  *Config
	factory *Factory

	lock   *sync.RWMutex
	agents map[string]Agent

	listenerLock *sync.RWMutex
	listeners    []func(Event)
	state        *channels.Broadcaster[[]Snapshot]
}

func NewManager(logger *zap.Logger, config *Config, factory *Factory) *Manager {
	return &Manager{
		logger:       logger.Named("manager"),
		config:       config,
		factory:      factory,
		lock:         new(sync.RWMutex),
		agents:       make(map[string]Agent),
		listenerLock: new(sync.RWMutex),
		listeners:    nil,
		state:        channels.NewBroadcaster[[]Snapshot](nil),
	}
}

func (m *Manager) Factory() *Factory {
	return m.factory
}

// State publishes the snapshots of all agents after every lifecycle event.
func (m *Manager) State() *channels.Broadcaster[[]Snapshot] {
	return m.state
}

// OnEvent registers fn to be called for every lifecycle event. fn is called
// on the goroutine that caused the event and must not block.
func (m *Manager) OnEvent(fn func(Event)) {
	m.listenerLock.Lock()
	defer m.listenerLock.Unlock()

	m.listeners = append(m.listeners, fn)
}

func (m *Manager) emit(event Event) {
	m.state.Publish(m.DescribeAgents())

	m.listenerLock.RLock()
	listeners := m.listeners
	m.listenerLock.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}

func (m *Manager) announce(typ EventType, a Agent) {
	m.emit(Event{
		ID:    uuid.NewString(),
		Type:  typ,
		Agent: a.Name(),
		Kind:  a.Kind(),
		State: a.State(),
		Time:  time.Now(),
	})
}

func (m *Manager) Start(ctx context.Context, g *errgroup.Group) error {
	if !m.config.DisableAutoStart {
		if err := m.StartAllAutomatic(ctx); err != nil {
			m.logger.Warn("some agents failed to start", zap.Error(err))
		}
	}

	g.Go(func() error {
		<-ctx.Done()

		timeout := m.config.GetShutdownTimeout()
		stopCtx, cancel := context.WithTimeout(context.Background(), timeout+m.factory.grace)
		defer cancel()

		if err := m.StopAll(stopCtx, timeout); err != nil {
			m.logger.Warn("some agents failed to stop", zap.Error(err))
		}
		return nil
	})
	return nil
}

func (m *Manager) Add(a Agent) error {
	m.lock.Lock()
	if _, ok := m.agents[a.Name()]; ok {
		m.lock.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateName, a.Name())
	}
	a.attach(m.emit)
	m.agents[a.Name()] = a
	m.lock.Unlock()

	m.logger.Debug("agent added", zap.String("agent", a.Name()), zap.String("kind", string(a.Kind())))
	m.announce(EventAdded, a)
	return nil
}

// Load builds and adds an agent for every configuration. Agents that fail
// are logged and reported in the returned error; the others are added.
func (m *Manager) Load(configs []Configuration) error {
	var errs []error
	for _, config := range configs {
		a, err := m.factory.Build(config)
		if err == nil {
			err = m.Add(a)
		}
		if err != nil {
			m.logger.Error("cannot load agent", zap.String("agent", config.Name), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) lookup(name string) (Agent, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	a, ok := m.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return a, nil
}

func (m *Manager) list() []Agent {
	m.lock.RLock()
	defer m.lock.RUnlock()

	agents := lo.Values(m.agents)
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name() < agents[j].Name() })
	return agents
}

func (m *Manager) StartAgent(ctx context.Context, name string) error {
	a, err := m.lookup(name)
	if err != nil {
		return err
	}
	return a.Start(ctx)
}

// StopAgent stops the agent, waiting for its in-flight cycle for at most
// timeout. A non-positive timeout defers to the agent stop timeout.
func (m *Manager) StopAgent(ctx context.Context, name string, timeout time.Duration) error {
	a, err := m.lookup(name)
	if err != nil {
		return err
	}
	return a.Stop(ctx, timeout)
}

func (m *Manager) RunNow(ctx context.Context, name string) error {
	a, err := m.lookup(name)
	if err != nil {
		return err
	}
	return a.RunNow(ctx)
}

// ResetAgent rebuilds a SET or STOPPED agent from its configuration,
// resolving its task type again.
func (m *Manager) ResetAgent(ctx context.Context, name string) error {
	old, err := m.lookup(name)
	if err != nil {
		return err
	}
	if state := old.State(); !state.Removable() {
		return &StateError{Agent: name, Op: "reset", State: state, Reason: "not stopped"}
	}

	next, err := m.factory.Build(old.Config())
	if err != nil {
		return err
	}

	m.lock.Lock()
	if current, ok := m.agents[name]; !ok || current != old {
		m.lock.Unlock()
		return fmt.Errorf("%w: %s was replaced concurrently", ErrNotFound, name)
	}
	if err := old.retire(); err != nil {
		m.lock.Unlock()
		return err
	}
	next.attach(m.emit)
	m.agents[name] = next
	m.lock.Unlock()

	m.logger.Info("agent reset", zap.String("agent", name))
	m.announce(EventReset, next)
	return nil
}

func (m *Manager) RemoveAgent(ctx context.Context, name string) error {
	m.lock.Lock()
	a, ok := m.agents[name]
	if !ok {
		m.lock.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err := a.retire(); err != nil {
		m.lock.Unlock()
		return err
	}
	delete(m.agents, name)
	m.lock.Unlock()

	m.logger.Info("agent removed", zap.String("agent", name))
	m.announce(EventRemoved, a)
	return nil
}

func (m *Manager) ListAgentNames(includeHidden bool) []string {
	agents := m.list()
	if !includeHidden {
		agents = lo.Filter(agents, func(a Agent, _ int) bool { return !a.Config().Hidden })
	}
	return lo.Map(agents, func(a Agent, _ int) string { return a.Name() })
}

func (m *Manager) DescribeAgents() []Snapshot {
	return lo.Map(m.list(), func(a Agent, _ int) Snapshot { return a.Snapshot() })
}

func (m *Manager) DescribeAgent(name string) (Snapshot, error) {
	a, err := m.lookup(name)
	if err != nil {
		return Snapshot{}, err
	}
	return a.Snapshot(), nil
}

func (m *Manager) IsRunning(name string) (bool, error) {
	a, err := m.lookup(name)
	if err != nil {
		return false, err
	}
	return a.State() == StateRunning, nil
}

func (m *Manager) IsStarted(name string) (bool, error) {
	a, err := m.lookup(name)
	if err != nil {
		return false, err
	}
	return a.State().Active(), nil
}

func (m *Manager) DescribeState(name string) (string, error) {
	s, err := m.DescribeAgent(name)
	if err != nil {
		return "", err
	}
	return s.Describe(), nil
}

// StartAllAutomatic starts every idle agent configured to start
// automatically. A failing agent does not prevent the others from starting.
func (m *Manager) StartAllAutomatic(ctx context.Context) error {
	agents := lo.Filter(m.list(), func(a Agent, _ int) bool {
		return a.Config().AutomaticallyStarted && a.State().Removable()
	})
	return m.fanOut(agents, "start", func(a Agent) error {
		return a.Start(ctx)
	})
}

// StopAll stops every started agent in parallel. A failing agent does not
// prevent the others from stopping.
func (m *Manager) StopAll(ctx context.Context, timeout time.Duration) error {
	agents := lo.Filter(m.list(), func(a Agent, _ int) bool {
		state := a.State()
		return state.Active() || state == StateStuck
	})
	return m.fanOut(agents, "stop", func(a Agent) error {
		return a.Stop(ctx, timeout)
	})
}

func (m *Manager) fanOut(agents []Agent, op string, fn func(a Agent) error) error {
	var g errgroup.Group
	errs := make([]error, len(agents))
	for i, a := range agents {
		i, a := i, a
		g.Go(func() error {
			if err := fn(a); err != nil {
				m.logger.Error("cannot "+op+" agent", zap.String("agent", a.Name()), zap.Error(err))
				errs[i] = err
			}
			return nil
		})
	}
	g.Wait()

	m.logger.Info(fmt.Sprintf("%s completed", op), zap.Int("agents", len(agents)))
	return errors.Join(errs...)
}
