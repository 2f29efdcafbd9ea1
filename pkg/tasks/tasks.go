// Package tasks provides the task types shipped with agentd.
package tasks

import (
	"errors"

	"github.com/oursky/agent-manager/pkg/agent"
)

func Register(catalog *agent.Catalog) error {
	return errors.Join(
		catalog.Register("heartbeat", Heartbeat{}),
		catalog.Register("httpprobe", HTTPProbe{}),
		catalog.Register("ticker", Ticker{}),
	)
}
