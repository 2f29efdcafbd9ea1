package shell

import (
	"context"
	"time"

	"github.com/oursky/agent-manager/pkg/agent"
)

// Operations is the management surface of an agent manager, either in
// process or remote.
type Operations interface {
	StartAgent(ctx context.Context, name string) error
	StopAgent(ctx context.Context, name string, timeout time.Duration) error
	RunNow(ctx context.Context, name string) error
	ResetAgent(ctx context.Context, name string) error
	RemoveAgent(ctx context.Context, name string) error
	ListAgentNames(ctx context.Context, includeHidden bool) ([]string, error)
	DescribeAgents(ctx context.Context) ([]agent.Snapshot, error)
	DescribeState(ctx context.Context, name string) (string, error)
}

type local struct {
	manager *agent.Manager
}

func Local(manager *agent.Manager) Operations {
	return local{manager: manager}
}

func (l local) StartAgent(ctx context.Context, name string) error {
	return l.manager.StartAgent(ctx, name)
}

func (l local) StopAgent(ctx context.Context, name string, timeout time.Duration) error {
	return l.manager.StopAgent(ctx, name, timeout)
}

func (l local) RunNow(ctx context.Context, name string) error {
	return l.manager.RunNow(ctx, name)
}

func (l local) ResetAgent(ctx context.Context, name string) error {
	return l.manager.ResetAgent(ctx, name)
}

func (l local) RemoveAgent(ctx context.Context, name string) error {
	return l.manager.RemoveAgent(ctx, name)
}

func (l local) ListAgentNames(ctx context.Context, includeHidden bool) ([]string, error) {
	return l.manager.ListAgentNames(includeHidden), nil
}

func (l local) DescribeAgents(ctx context.Context) ([]agent.Snapshot, error) {
	return l.manager.DescribeAgents(), nil
}

func (l local) DescribeState(ctx context.Context, name string) (string, error) {
	return l.manager.DescribeState(name)
}
