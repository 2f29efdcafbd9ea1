package agent

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TimerAgent runs its task once when started and then every interval. A
// firing that finds a cycle in flight is skipped.
type TimerAgent struct {
	*base
	interval time.Duration
}

func NewTimerAgent(logger *zap.Logger, config Configuration, binding *Binding, grace time.Duration) *TimerAgent {
	a := &TimerAgent{
		base:     newBase(logger, config, binding, grace),
		interval: config.Interval,
	}
	a.work = a.schedule
	return a
}

func (a *TimerAgent) Interval() time.Duration {
	return a.interval
}

func (a *TimerAgent) schedule(s *session) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		a.fire(s)

		select {
		case <-s.sched.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunNow runs one cycle on the calling goroutine. It leaves the schedule
// untouched and reports task failures only through the agent statistics.
func (a *TimerAgent) RunNow(ctx context.Context) error {
	return a.runNow(ctx)
}
