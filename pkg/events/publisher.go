package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/oursky/agent-manager/pkg/agent"
	"github.com/oursky/agent-manager/pkg/utils/channels"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Publisher forwards agent lifecycle events to NATS, on the subject
// <subject>.<agent>.<event type>.
type Publisher struct {
	logger  *zap.Logger
	config  *Config
	events  chan agent.Event
	dropped *atomic.Int64
}

func NewPublisher(logger *zap.Logger, config *Config) *Publisher {
	return &Publisher{
		logger:  logger.Named("events"),
		config:  config,
		events:  make(chan agent.Event, config.GetBufferSize()),
		dropped: new(atomic.Int64),
	}
}

// Listen queues the event for publishing. Events are dropped when the
// queue is full.
func (p *Publisher) Listen(e agent.Event) {
	if p.config.Disabled {
		return
	}
	if !channels.TrySend(p.events, e) {
		n := p.dropped.Add(1)
		p.logger.Warn("event dropped", zap.String("agent", e.Agent), zap.String("type", string(e.Type)), zap.Int64("dropped", n))
	}
}

func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Publisher) Start(ctx context.Context, g *errgroup.Group) error {
	if p.config.Disabled {
		return nil
	}

	conn, err := nats.Connect(p.config.URL,
		nats.Name("agentd"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(p.config.GetReconnectWait()),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				p.logger.Warn("disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			p.logger.Info("reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return fmt.Errorf("nats connection failed: %w", err)
	}

	publish := conn.Publish
	if p.config.Stream != nil {
		js, err := conn.JetStream()
		if err != nil {
			conn.Close()
			return fmt.Errorf("jetstream init failed: %w", err)
		}

		_, err = js.AddStream(&nats.StreamConfig{
			Name:     *p.config.Stream,
			Subjects: []string{p.config.GetSubject() + ".>"},
			Storage:  nats.FileStorage,
		})
		if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			conn.Close()
			return fmt.Errorf("cannot setup stream %s: %w", *p.config.Stream, err)
		}

		publish = func(subject string, data []byte) error {
			_, err := js.Publish(subject, data)
			return err
		}
	}

	p.logger.Info("connected", zap.String("url", conn.ConnectedUrl()))

	g.Go(func() error {
		defer conn.Drain()
		p.run(ctx, publish)
		return nil
	})
	return nil
}

func (p *Publisher) run(ctx context.Context, publish func(subject string, data []byte) error) {
	for {
		select {
		case <-ctx.Done():
			return

		case e := <-p.events:
			data, err := json.Marshal(e)
			if err != nil {
				p.logger.Warn("cannot marshal event", zap.Error(err))
				continue
			}

			subject := Subject(p.config.GetSubject(), e)
			if err := publish(subject, data); err != nil {
				p.logger.Warn("cannot publish event", zap.String("subject", subject), zap.Error(err))
			}
		}
	}
}

var subjectReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_", "\t", "_")

func Subject(prefix string, e agent.Event) string {
	return fmt.Sprintf("%s.%s.%s", prefix, subjectReplacer.Replace(e.Agent), e.Type)
}
