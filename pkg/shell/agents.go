package shell

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/oursky/agent-manager/pkg/agent"
	"github.com/samber/lo"
)

// ParseTimeout accepts Go durations; a bare integer counts seconds.
func ParseTimeout(text string) (time.Duration, error) {
	if n, err := strconv.Atoi(text); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative timeout %q", text)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(text)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", text)
	}
	return d, nil
}

func includeHidden(args []string) bool {
	return len(args) > 0 && args[0] == "all"
}

func formatSnapshots(snapshots []agent.Snapshot) string {
	if len(snapshots) == 0 {
		return "No agents."
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tSTATE\tRUNS\tFAILURES\tLAST RUN")
	for _, s := range snapshots {
		lastRun := "-"
		if s.LastRun != nil {
			lastRun = s.LastRun.StartedAt.Format(time.RFC3339)
		}
		name := s.Name
		if s.Hidden {
			name += " (hidden)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", name, s.Kind, s.State, s.Runs, s.Failures, lastRun)
	}
	w.Flush()
	return "```\n" + strings.TrimRight(b.String(), "\n") + "\n```"
}

func agentCommands(ops Operations) []Command {
	nameArg := NewArgument("name", true, false, "The name of the agent.")

	return []Command{
		{
			Trigger: "list",
			Arguments: []Argument{
				NewArgument("all", false, false, "Include hidden agents."),
			},
			Description: "List the names of the agents.",
			Execute: func(env Env) Result {
				names, err := ops.ListAgentNames(env.Ctx, includeHidden(env.Args))
				if err != nil {
					return Fail(err, "Failed to list agents")
				}
				if len(names) == 0 {
					return Reply(true, "No agents.")
				}
				return Reply(true, strings.Join(names, "\n"))
			},
		},
		{
			Trigger: "describe",
			Arguments: []Argument{
				NewArgument("all", false, false, "Include hidden agents."),
			},
			Description: "Describe the state of the agents.",
			Execute: func(env Env) Result {
				snapshots, err := ops.DescribeAgents(env.Ctx)
				if err != nil {
					return Fail(err, "Failed to describe agents")
				}
				if !includeHidden(env.Args) {
					snapshots = lo.Filter(snapshots, func(s agent.Snapshot, _ int) bool { return !s.Hidden })
				}
				return Reply(true, formatSnapshots(snapshots))
			},
		},
		{
			Trigger:     "status",
			Arguments:   []Argument{nameArg},
			Description: "Describe the state of an agent.",
			Execute: func(env Env) Result {
				state, err := ops.DescribeState(env.Ctx, env.Args[0])
				if err != nil {
					return Fail(err, "Failed to get status of *%s*", env.Args[0])
				}
				return Reply(true, state)
			},
		},
		{
			Trigger:     "start",
			Arguments:   []Argument{nameArg},
			Description: "Start an agent.",
			Execute: func(env Env) Result {
				name := env.Args[0]
				if err := ops.StartAgent(env.Ctx, name); err != nil {
					return Fail(err, "Failed to start *%s*", name)
				}
				return Reply(true, fmt.Sprintf("Started *%s*", name))
			},
		},
		{
			Trigger: "stop",
			Arguments: []Argument{
				nameArg,
				NewArgument("timeout", false, false, "How long to wait for a running task before interrupting it, e.g. 30 or 1m."),
			},
			Description: "Stop an agent.",
			Execute: func(env Env) Result {
				name := env.Args[0]
				var timeout time.Duration
				if len(env.Args) > 1 {
					var err error
					if timeout, err = ParseTimeout(env.Args[1]); err != nil {
						return Fail(err, "Failed to stop *%s*", name)
					}
				}
				if err := ops.StopAgent(env.Ctx, name, timeout); err != nil {
					return Fail(err, "Failed to stop *%s*", name)
				}
				return Reply(true, fmt.Sprintf("Stopped *%s*", name))
			},
		},
		{
			Trigger:     "run",
			Arguments:   []Argument{nameArg},
			Description: "Run the task of a started agent now.",
			Execute: func(env Env) Result {
				name := env.Args[0]
				if err := ops.RunNow(env.Ctx, name); err != nil {
					return Fail(err, "Failed to run *%s*", name)
				}
				return Reply(true, fmt.Sprintf("Ran *%s*", name))
			},
		},
		{
			Trigger:     "reset",
			Arguments:   []Argument{nameArg},
			Description: "Rebuild a stopped agent from its configuration.",
			Execute: func(env Env) Result {
				name := env.Args[0]
				if err := ops.ResetAgent(env.Ctx, name); err != nil {
					return Fail(err, "Failed to reset *%s*", name)
				}
				return Reply(true, fmt.Sprintf("Reset *%s*", name))
			},
		},
		{
			Trigger:     "remove",
			Arguments:   []Argument{nameArg},
			Description: "Remove a stopped agent.",
			Execute: func(env Env) Result {
				name := env.Args[0]
				if err := ops.RemoveAgent(env.Ctx, name); err != nil {
					return Fail(err, "Failed to remove *%s*", name)
				}
				return Reply(true, fmt.Sprintf("Removed *%s*", name))
			},
		},
	}
}
