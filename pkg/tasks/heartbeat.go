package tasks

import (
	"context"
	"sync/atomic"

	"github.com/oursky/agent-manager/pkg/agent"
	"go.uber.org/zap"
)

var beats atomic.Int64

// Heartbeat logs a line on every run. It declares a hidden agent so that a
// fresh process always has one agent proving the scheduler is alive.
type Heartbeat struct{}

func (Heartbeat) Declare() agent.Spec {
	return agent.Spec{
		Name:     "heartbeat",
		Interval: "1",
		Hidden:   true,
	}
}

func (h *Heartbeat) Run(ctx context.Context) error {
	n := beats.Add(1)
	agent.Logger(ctx).Debug("heartbeat", zap.Int64("beats", n))
	return nil
}

// Beats returns the number of heartbeats of the process.
func Beats() int64 {
	return beats.Load()
}
