package events

import (
	"time"

	"github.com/oursky/agent-manager/pkg/utils/defaults"
	"github.com/oursky/agent-manager/pkg/utils/tomltypes"
)

type Config struct {
	Disabled bool
	URL      string `validate:"required_if=Disabled false"`
	Subject  *string
	// Stream enables JetStream persistence of the events in the named
	// stream.
	Stream        *string
	BufferSize    *int `validate:"omitempty,min=1"`
	ReconnectWait *tomltypes.Duration
}

func (c *Config) GetSubject() string {
	return defaults.Value(c.Subject, "agents")
}

func (c *Config) GetBufferSize() int {
	return defaults.Value(c.BufferSize, 256)
}

func (c *Config) GetReconnectWait() time.Duration {
	return defaults.Value(c.ReconnectWait.Value(), 2*time.Second)
}
