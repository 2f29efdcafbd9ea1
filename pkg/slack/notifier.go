package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/oursky/agent-manager/pkg/agent"
	"github.com/oursky/agent-manager/pkg/utils/channels"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackutilsx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type sender func(ctx context.Context, channel string, options ...slack.MsgOption) error

// Notifier posts agent events to subscribed channels.
type Notifier struct {
	logger  *zap.Logger
	app     *App
	send    sender
	events  chan agent.Event
	dropped atomic.Int64
}

func NewNotifier(logger *zap.Logger, config *Config, app *App) *Notifier {
	logger = logger.Named("slack-notifier")
	return &Notifier{
		logger: logger,
		app:    app,
		send:   app.SendMessage,
		events: make(chan agent.Event, config.GetBufferSize()),
	}
}

// Listen queues an event without blocking; it is dropped if the queue is
// full.
func (n *Notifier) Listen(e agent.Event) {
	if n.app.Disabled() {
		return
	}
	if !channels.TrySend(n.events, e) {
		n.dropped.Add(1)
		n.logger.Warn("event dropped", zap.String("agent", e.Agent), zap.String("type", string(e.Type)))
	}
}

func (n *Notifier) Dropped() int64 {
	return n.dropped.Load()
}

func (n *Notifier) Start(ctx context.Context, g *errgroup.Group) error {
	if n.app.Disabled() {
		return nil
	}

	g.Go(func() error {
		n.run(ctx)
		return nil
	})
	return nil
}

func (n *Notifier) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-n.events:
			n.notify(ctx, e)
		}
	}
}

func (n *Notifier) recipients(ctx context.Context, e agent.Event) ([]string, error) {
	subs, err := n.app.GetSubscriptions(ctx)
	if err != nil {
		return nil, err
	}

	var channels []string
	for _, sub := range subs {
		if sub.Filter.Any(e) {
			channels = append(channels, sub.ChannelID)
		}
	}
	return channels, nil
}

func (n *Notifier) notify(ctx context.Context, e agent.Event) {
	channels, err := n.recipients(ctx, e)
	if err != nil {
		n.logger.Warn("failed to get channels", zap.Error(err), zap.String("agent", e.Agent))
		return
	}
	if len(channels) == 0 {
		return
	}

	msg := message(e)
	for _, channelID := range channels {
		err := n.send(ctx, channelID, slack.MsgOptionAttachments(msg))
		if err != nil {
			n.logger.Warn("failed to send message",
				zap.Error(err),
				zap.String("channelID", channelID),
			)
		}
	}
}

func message(e agent.Event) slack.Attachment {
	const colorGreen = "#16a34a"  // green-600
	const colorYellow = "#d97706" // amber-600
	const colorRed = "#7f1d1d"    // red-900
	const colorGray = "#94a3b8"   // slate-400

	name := slackutilsx.EscapeMessage(e.Agent)

	var title string
	color := colorGray
	switch e.Type {
	case agent.EventAdded:
		title = fmt.Sprintf("%s was added.", name)
	case agent.EventRemoved:
		title = fmt.Sprintf("%s was removed.", name)
	case agent.EventReset:
		title = fmt.Sprintf("%s was reset.", name)
	case agent.EventStarted:
		title = fmt.Sprintf("%s has started.", name)
		color = colorGreen
	case agent.EventStopped:
		title = fmt.Sprintf("%s has stopped.", name)
	case agent.EventStuck:
		title = fmt.Sprintf("%s is stuck and did not stop in time.", name)
		color = colorYellow
	case agent.EventRunCompleted:
		title = fmt.Sprintf("%s has completed a run.", name)
		color = colorGreen
	case agent.EventRunFailed:
		title = fmt.Sprintf("%s has failed.", name)
		color = colorRed
	default:
		title = fmt.Sprintf("%s: %s", name, e.Type)
	}

	attachment := slack.Attachment{
		Color:      color,
		Title:      title,
		AuthorName: string(e.Kind),
		MarkdownIn: []string{"fields"},
		Fields: []slack.AttachmentField{{
			Title: "State",
			Value: string(e.State),
			Short: true,
		}},
		Ts: json.Number(fmt.Sprintf("%d", e.Time.Unix())),
	}
	if e.Error != "" {
		attachment.Fields = append(attachment.Fields, slack.AttachmentField{
			Title: "Error",
			Value: fmt.Sprintf("```%s```", slackutilsx.EscapeMessage(e.Error)),
		})
	}
	return attachment
}

func (n *Notifier) capacity() int {
	return cap(n.events)
}
