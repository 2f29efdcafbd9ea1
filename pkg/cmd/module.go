package cmd

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Module is a long running part of a process. Start must not block: work is
// spawned on g and ends when ctx is done.
type Module interface {
	Start(ctx context.Context, g *errgroup.Group) error
}
