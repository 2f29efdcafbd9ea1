package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/oursky/agent-manager/pkg/agent"
	"go.uber.org/zap"
)

// Ticker is a daemon task logging a tick every period (param "period",
// default 1s) until it is asked to stop.
type Ticker struct {
	period time.Duration
}

func (t *Ticker) Configure(params map[string]string) error {
	t.period = time.Second
	if p := params["period"]; p != "" {
		d, err := time.ParseDuration(p)
		if err != nil {
			return err
		}
		if d <= 0 {
			return fmt.Errorf("period must be positive: %q", p)
		}
		t.period = d
	}
	return nil
}

func (t *Ticker) Execute(ctx context.Context) {
	logger := agent.Logger(ctx)
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-agent.StopRequested(ctx):
			logger.Info("ticker stopping", zap.Int("ticks", ticks))
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			ticks++
			logger.Debug("tick", zap.Int("ticks", ticks))
		}
	}
}
