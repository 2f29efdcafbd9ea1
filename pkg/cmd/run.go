package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run starts modules in order and waits until they all return. The first
// SIGINT or SIGTERM cancels the modules' context; a second one exits
// immediately.
func Run(logger *zap.Logger, modules []Module) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sig)

	logger.Info("starting...", zap.Int("modules", len(modules)))
	for i, m := range modules {
		if err := m.Start(ctx, g); err != nil {
			cancel()
			g.Wait()
			return fmt.Errorf("error while starting module %d (%T): %w", i, m, err)
		}
	}

	go func() {
		select {
		case <-sig:
		case <-ctx.Done():
			return
		}
		logger.Info("exiting...")
		cancel()

		<-sig
		logger.Warn("forced exit")
		os.Exit(1)
	}()

	err := g.Wait()
	logger.Info("stopped")
	return err
}
