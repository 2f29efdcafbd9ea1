package agent

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

const DefaultStopGrace = 5 * time.Second

type Factory struct {
	logger  *zap.Logger
	catalog *Catalog
	grace   time.Duration
}

func NewFactory(logger *zap.Logger, catalog *Catalog, grace time.Duration) *Factory {
	if grace <= 0 {
		grace = DefaultStopGrace
	}
	return &Factory{
		logger:  logger,
		catalog: catalog,
		grace:   grace,
	}
}

func (f *Factory) Catalog() *Catalog {
	return f.catalog
}

// Build resolves the task binding of config and returns an agent in SET
// state.
func (f *Factory) Build(config Configuration) (Agent, error) {
	binding, err := f.catalog.Bind(config.Task, config.Params)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", config.Name, err)
	}

	switch config.Kind {
	case KindTimer:
		if config.Interval <= 0 {
			return nil, fmt.Errorf("%w: agent %s: interval must be positive", ErrConfiguration, config.Name)
		}
		return NewTimerAgent(f.logger, config, binding, f.grace), nil
	case KindDaemon:
		return NewDaemonAgent(f.logger, config, binding, f.grace), nil
	}
	return nil, fmt.Errorf("%w: agent %s: unknown kind %q", ErrConfiguration, config.Name, config.Kind)
}
