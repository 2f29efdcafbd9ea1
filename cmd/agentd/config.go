package main

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/oursky/agent-manager/pkg/agent"
	"github.com/oursky/agent-manager/pkg/api"
	"github.com/oursky/agent-manager/pkg/dashboard"
	"github.com/oursky/agent-manager/pkg/events"
	"github.com/oursky/agent-manager/pkg/kv"
	"github.com/oursky/agent-manager/pkg/slack"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Manager   agent.Config     `toml:"manager"`
	Agents    []agent.Spec     `toml:"agents" validate:"dive"`
	Dashboard dashboard.Config `toml:"dashboard"`
	Store     kv.Config        `toml:"store"`
	Slack     slack.Config     `toml:"slack"`
	Events    events.Config    `toml:"events"`
	API       api.Config       `toml:"api"`
}

func NewConfig(path string) (*Config, error) {
	var config Config
	meta, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config keys: %v", undecoded)
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
