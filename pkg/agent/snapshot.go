package agent

import (
	"fmt"
	"strings"
	"time"
)

// Snapshot is a read-only view of an agent at one instant.
type Snapshot struct {
	Name                 string        `json:"name"`
	Kind                 Kind          `json:"kind"`
	State                State         `json:"state"`
	Hidden               bool          `json:"hidden"`
	AutomaticallyStarted bool          `json:"automaticallyStarted"`
	Task                 string        `json:"task"`
	Interval             time.Duration `json:"interval,omitempty"`
	StopTimeout          time.Duration `json:"stopTimeout,omitempty"`
	StartedAt            *time.Time    `json:"startedAt,omitempty"`
	StoppedAt            *time.Time    `json:"stoppedAt,omitempty"`
	LastRun              *RunInfo      `json:"lastRun,omitempty"`
	Runs                 int64         `json:"runs"`
	Failures             int64         `json:"failures"`
	Skipped              int64         `json:"skipped"`
}

func (a *base) Snapshot() Snapshot {
	a.lock.Lock()
	defer a.lock.Unlock()

	s := Snapshot{
		Name:                 a.config.Name,
		Kind:                 a.config.Kind,
		State:                a.State(),
		Hidden:               a.config.Hidden,
		AutomaticallyStarted: a.config.AutomaticallyStarted,
		Task:                 a.config.Task,
		Interval:             a.config.Interval,
		StopTimeout:          a.config.StopTimeout,
		Runs:                 a.runs,
		Failures:             a.failures,
		Skipped:              a.skipped,
	}
	if !a.startedAt.IsZero() {
		t := a.startedAt
		s.StartedAt = &t
	}
	if !a.stoppedAt.IsZero() {
		t := a.stoppedAt
		s.StoppedAt = &t
	}
	if a.lastRun != nil {
		run := *a.lastRun
		s.LastRun = &run
	}
	return s
}

func (s Snapshot) IsRunning() bool {
	return s.State == StateRunning
}

func (s Snapshot) IsStarted() bool {
	return s.State.Active()
}

// Describe renders the state of the agent for humans.
func (s Snapshot) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) is %s", s.Name, strings.ToLower(string(s.Kind)), s.State)
	switch {
	case s.State == StateStuck:
		b.WriteString(", stop requested but the task is still running")
	case s.StartedAt != nil:
		fmt.Fprintf(&b, " since %s", s.StartedAt.Format(time.RFC3339))
	case s.StoppedAt != nil:
		fmt.Fprintf(&b, " since %s", s.StoppedAt.Format(time.RFC3339))
	}
	if s.Kind == KindTimer {
		fmt.Fprintf(&b, ", every %s", s.Interval)
	}
	if s.LastRun != nil {
		fmt.Fprintf(&b, "; last run %s took %s",
			s.LastRun.StartedAt.Format(time.RFC3339),
			s.LastRun.Duration.Round(time.Millisecond),
		)
		if s.LastRun.Error != "" {
			fmt.Fprintf(&b, " and failed: %s", s.LastRun.Error)
		}
	}
	fmt.Fprintf(&b, "; %d runs, %d failures", s.Runs, s.Failures)
	if s.Skipped > 0 {
		fmt.Fprintf(&b, ", %d skipped", s.Skipped)
	}
	return b.String()
}
