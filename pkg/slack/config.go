package slack

import (
	"github.com/oursky/agent-manager/pkg/kv"
	"github.com/oursky/agent-manager/pkg/utils/defaults"
)

type Config struct {
	Disabled    bool
	BotToken    string  `validate:"required_if=Disabled false"`
	AppToken    string  `validate:"required_if=Disabled false"`
	CommandName *string `validate:"omitempty,printascii"`
	BufferSize  *int    `validate:"omitempty,min=1"`
}

func (c *Config) GetCommandName() string {
	return defaults.Value(c.CommandName, "agents")
}

func (c *Config) GetBufferSize() int {
	return defaults.Value(c.BufferSize, 64)
}

var kvNamespace = kv.RegisterNamespace("slack-subscriptions")
