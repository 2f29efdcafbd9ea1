package agent

import (
	"github.com/oursky/agent-manager/pkg/utils/promutil"
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	manager *Manager

	state        *promutil.MetricDesc
	runs         *promutil.MetricDesc
	failures     *promutil.MetricDesc
	skipped      *promutil.MetricDesc
	lastDuration *promutil.MetricDesc
	lastRunTime  *promutil.MetricDesc
}

func NewCollector(manager *Manager) *Collector {
	return &Collector{
		manager: manager,

		state: promutil.NewMetricDesc(prometheus.Opts{
			Namespace: "agent_manager",
			Subsystem: "agent",
			Name:      "state",
			Help:      "Describes whether the agent is in the labelled state.",
		}),
		runs: promutil.NewMetricDesc(prometheus.Opts{
			Namespace: "agent_manager",
			Subsystem: "agent",
			Name:      "runs_total",
			Help:      "Number of completed task cycles of the agent.",
		}),
		failures: promutil.NewMetricDesc(prometheus.Opts{
			Namespace: "agent_manager",
			Subsystem: "agent",
			Name:      "failures_total",
			Help:      "Number of failed task cycles of the agent.",
		}),
		skipped: promutil.NewMetricDesc(prometheus.Opts{
			Namespace: "agent_manager",
			Subsystem: "agent",
			Name:      "skipped_total",
			Help:      "Number of scheduled firings skipped because a cycle was in flight.",
		}),
		lastDuration: promutil.NewMetricDesc(prometheus.Opts{
			Namespace: "agent_manager",
			Subsystem: "agent",
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last task cycle of the agent.",
		}),
		lastRunTime: promutil.NewMetricDesc(prometheus.Opts{
			Namespace: "agent_manager",
			Subsystem: "agent",
			Name:      "last_run_time",
			Help:      "Start time in unix timestamp of the last task cycle of the agent.",
		}),
	}
}

var allStates = []State{StateSet, StateStarted, StateRunning, StateStopped, StateStuck}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.manager.DescribeAgents() {
		labels := prometheus.Labels{"agent": s.Name, "kind": string(s.Kind)}
		for _, state := range allStates {
			ch <- c.state.GaugeBool(s.State == state, promutil.With(labels, prometheus.Labels{"state": string(state)}))
		}
		ch <- c.runs.Counter(s.Runs, labels)
		ch <- c.failures.Counter(s.Failures, labels)
		ch <- c.skipped.Counter(s.Skipped, labels)
		if s.LastRun != nil {
			ch <- c.lastDuration.Seconds(s.LastRun.Duration, labels)
			ch <- c.lastRunTime.Timestamp(s.LastRun.StartedAt, labels)
		}
	}
}
