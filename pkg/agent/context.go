package agent

import (
	"context"

	"go.uber.org/zap"
)

type contextKey int

const (
	stopKey contextKey = iota
	loggerKey
	nameKey
)

var never = make(chan struct{})

// StopRequested returns a channel closed once the owning agent has been asked
// to stop. Loops should check it between iterations; ctx.Done() follows later
// when the stop timeout expires.
func StopRequested(ctx context.Context) <-chan struct{} {
	if ch, ok := ctx.Value(stopKey).(chan struct{}); ok {
		return ch
	}
	return never
}

func Logger(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// Name returns the name of the agent running the task, if any.
func Name(ctx context.Context) string {
	name, _ := ctx.Value(nameKey).(string)
	return name
}

func taskContext(parent context.Context, name string, stop chan struct{}, logger *zap.Logger) context.Context {
	ctx := context.WithValue(parent, stopKey, stop)
	ctx = context.WithValue(ctx, loggerKey, logger)
	ctx = context.WithValue(ctx, nameKey, name)
	return ctx
}
