package dashboard

import "github.com/oursky/agent-manager/pkg/utils/defaults"

type Config struct {
	Disabled  bool    `toml:"disabled"`
	Addr      *string `toml:"addr,omitempty" validate:"omitempty,tcp_addr"`
	AssetsDir *string `toml:"assetsDir,omitempty" validate:"omitempty,dir"`
	// Refresh is the page reload interval in seconds; 0 disables reloading.
	Refresh *int `toml:"refresh,omitempty" validate:"omitempty,min=0"`
}

func (c *Config) GetAddr() string {
	return defaults.Value(c.Addr, "127.0.0.1:8000")
}

func (c *Config) GetRefresh() int {
	return defaults.Value(c.Refresh, 10)
}
