package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oursky/agent-manager/pkg/agent"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
)

func TestInitModules(t *testing.T) {
	Convey("Given agents with one invalid spec", t, func() {
		config := &Config{
			Manager: agent.Config{DisableAutoStart: true},
			Agents: []agent.Spec{
				{Name: "good", Task: "heartbeat", Interval: "1"},
				{Name: "bad", Task: "heartbeat", Interval: "abc"},
			},
		}
		config.Slack.Disabled = true
		config.Events.Disabled = true
		config.Dashboard.Disabled = true
		config.API.Disabled = true

		Convey("the valid agents are still registered", func() {
			modules, err := initModules(zap.NewNop(), config)
			So(err, ShouldBeNil)
			So(modules, ShouldNotBeEmpty)

			manager, ok := modules[len(modules)-1].(*agent.Manager)
			So(ok, ShouldBeTrue)
			names := manager.ListAgentNames(true)
			So(names, ShouldContain, "good")
			So(names, ShouldNotContain, "bad")
		})
	})
}

func TestNewConfig(t *testing.T) {
	Convey("Given a config file", t, func() {
		path := filepath.Join(t.TempDir(), "config.toml")
		write := func(text string) {
			So(os.WriteFile(path, []byte(text), 0o600), ShouldBeNil)
		}

		Convey("agent kinds are accepted in any case", func() {
			write(`
[[agents]]
name = "a"
task = "heartbeat"
kind = "Timer"

[[agents]]
name = "b"
task = "ticker"
kind = "Daemon"

[slack]
disabled = true

[events]
disabled = true

[api]
disabled = true
`)
			config, err := NewConfig(path)
			So(err, ShouldBeNil)

			configs, err := agent.LoadConfigurations(config.Agents)
			So(err, ShouldBeNil)
			So(configs[0].Kind, ShouldEqual, agent.KindTimer)
			So(configs[1].Kind, ShouldEqual, agent.KindDaemon)
		})
		Convey("unknown keys are rejected", func() {
			write("unknown = 1\n")
			_, err := NewConfig(path)
			So(err, ShouldNotBeNil)
		})
	})
}
