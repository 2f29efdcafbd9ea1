package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DaemonAgent runs its task once, on a dedicated goroutine, for as long as
// the task keeps going. Tasks should return when StopRequested(ctx) is
// closed.
type DaemonAgent struct {
	*base
}

func NewDaemonAgent(logger *zap.Logger, config Configuration, binding *Binding, grace time.Duration) *DaemonAgent {
	a := &DaemonAgent{base: newBase(logger, config, binding, grace)}
	a.work = a.fire
	return a
}

func (a *DaemonAgent) RunNow(ctx context.Context) error {
	return fmt.Errorf("%w: cannot force a run of daemon agent %s", ErrUnsupported, a.config.Name)
}
