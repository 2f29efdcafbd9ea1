package agent

import (
	"time"

	"github.com/oursky/agent-manager/pkg/utils/defaults"
	"github.com/oursky/agent-manager/pkg/utils/tomltypes"
)

type Config struct {
	StopGrace       *tomltypes.Duration
	ShutdownTimeout *tomltypes.Duration
	// DisableAutoStart skips starting automatically started agents at
	// bootstrap.
	DisableAutoStart bool
}

func (c *Config) GetStopGrace() time.Duration {
	return defaults.Value(c.StopGrace.Value(), DefaultStopGrace)
}

func (c *Config) GetShutdownTimeout() time.Duration {
	return defaults.Value(c.ShutdownTimeout.Value(), 30*time.Second)
}
