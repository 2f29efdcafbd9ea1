package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oursky/agent-manager/pkg/api"
	"github.com/oursky/agent-manager/pkg/shell"

	"go.uber.org/zap"
)

func main() {
	baseURL := flag.String("url", "http://127.0.0.1:8002", "agent manager API URL")
	authKey := flag.String("key", os.Getenv("AGENT_MANAGER_KEY"), "API auth key")
	timeout := flag.Duration("timeout", 0, "timeout of a single command, 0 for none")
	loglevel := zap.LevelFlag("loglevel", zap.WarnLevel, "log level")
	flag.Parse()

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(*loglevel)
	logger, _ := cfg.Build()
	defer logger.Sync()

	client, err := api.NewClient(*baseURL, *authKey)
	if err != nil {
		logger.Fatal("failed to setup client", zap.Error(err))
	}

	sh := shell.New(client)
	sh.Extend(systemCommand(client))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if flag.NArg() == 0 {
		if err := sh.Run(ctx, os.Stdin, os.Stdout, "agents> "); err != nil && ctx.Err() == nil {
			logger.Fatal("failed to read commands", zap.Error(err))
		}
		return
	}

	if *timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, *timeout)
		defer cancelTimeout()
	}

	result := sh.Execute(ctx, "", strings.Join(flag.Args(), " "))
	fmt.Println(result.Message)
	if result.Err != nil {
		logger.Debug("command failed", zap.Error(result.Err))
		if api.IsUnauthorized(result.Err) {
			logger.Error("the API key was rejected")
		}
		logger.Sync()
		os.Exit(1)
	}
}

func systemCommand(client *api.Client) shell.Command {
	return shell.Command{
		Trigger:     "system",
		Description: "Show information about the agent manager process.",
		Execute: func(env shell.Env) shell.Result {
			info, err := client.System(env.Ctx)
			if err != nil {
				return shell.Fail(err, "Failed to get system information")
			}
			return shell.Reply(false, fmt.Sprintf(
				"agent manager %s (%s, %s), up %s, %d agents, %d goroutines",
				info.Version,
				info.GoVersion,
				info.Platform,
				info.Uptime.Truncate(time.Second),
				info.Agents,
				info.Goroutines,
			))
		},
	}
}
