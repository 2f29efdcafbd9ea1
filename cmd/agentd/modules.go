package main

import (
	"fmt"

	"github.com/oursky/agent-manager/pkg/agent"
	"github.com/oursky/agent-manager/pkg/api"
	"github.com/oursky/agent-manager/pkg/cmd"
	"github.com/oursky/agent-manager/pkg/dashboard"
	"github.com/oursky/agent-manager/pkg/events"
	"github.com/oursky/agent-manager/pkg/kv"
	"github.com/oursky/agent-manager/pkg/shell"
	"github.com/oursky/agent-manager/pkg/slack"
	"github.com/oursky/agent-manager/pkg/tasks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func initModules(logger *zap.Logger, config *Config) ([]cmd.Module, error) {
	registry := prometheus.NewPedanticRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())

	catalog := agent.NewCatalog()
	if err := tasks.Register(catalog); err != nil {
		return nil, fmt.Errorf("cannot register tasks: %w", err)
	}

	configs, err := agent.LoadConfigurations(agent.Merge(catalog.Declared(), config.Agents))
	if err != nil {
		logger.Warn("some agents are invalid and were skipped", zap.Error(err))
	}

	factory := agent.NewFactory(logger, catalog, config.Manager.GetStopGrace())
	manager := agent.NewManager(logger, &config.Manager, factory)
	if err := manager.Load(configs); err != nil {
		logger.Warn("some agents could not be loaded", zap.Error(err))
	}
	registry.MustRegister(agent.NewCollector(manager))

	var modules []cmd.Module

	if !config.Slack.Disabled {
		store, err := kv.NewStore(logger, &config.Store)
		if err != nil {
			return nil, fmt.Errorf("cannot setup store: %w", err)
		}
		modules = append(modules, store)

		slackApp := slack.NewApp(logger, &config.Slack, store, shell.Local(manager))
		modules = append(modules, slackApp)

		notifier := slack.NewNotifier(logger, &config.Slack, slackApp)
		manager.OnEvent(notifier.Listen)
		modules = append(modules, notifier)
	}

	if !config.Events.Disabled {
		publisher := events.NewPublisher(logger, &config.Events)
		manager.OnEvent(publisher.Listen)
		modules = append(modules, publisher)
	}

	dashboard := dashboard.NewServer(logger, &config.Dashboard, manager)
	modules = append(modules, dashboard)

	api := api.NewServer(logger, &config.API, manager, registry)
	modules = append(modules, api)

	// Agents start last, after their listeners are running.
	modules = append(modules, manager)

	return modules, nil
}
