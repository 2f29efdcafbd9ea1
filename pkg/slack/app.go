package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oursky/agent-manager/pkg/kv"
	"github.com/oursky/agent-manager/pkg/shell"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errNotSubscribed = errors.New("channel is not subscribed")

type App struct {
	logger      *zap.Logger
	disabled    bool
	api         *slack.Client
	store       kv.Store
	commandName string
	shell       *shell.Shell
}

// Subscription is the notification filter of a channel.
type Subscription struct {
	ChannelID string        `json:"channelID"`
	Filter    MessageFilter `json:"filter"`
}

func NewApp(logger *zap.Logger, config *Config, store kv.Store, ops shell.Operations) *App {
	logger = logger.Named("slack-app")
	app := &App{
		logger:   logger,
		disabled: config.Disabled,
		api: slack.New(
			config.BotToken,
			slack.OptionLog(zap.NewStdLog(logger)),
			slack.OptionAppLevelToken(config.AppToken),
		),
		store:       store,
		commandName: config.GetCommandName(),
		shell:       shell.New(ops),
	}
	app.shell.Extend(app.subscriptionCommands()...)
	return app
}

func (a *App) Disabled() bool {
	return a.disabled
}

func (a *App) GetSubscription(ctx context.Context, channelID string) (*Subscription, error) {
	data, err := a.store.Get(ctx, kvNamespace, channelID)
	if err != nil {
		return nil, err
	} else if data == "" {
		return nil, nil
	}

	sub := &Subscription{}
	if err := json.Unmarshal([]byte(data), sub); err != nil {
		return nil, fmt.Errorf("invalid subscription of %s: %w", channelID, err)
	}
	sub.ChannelID = channelID
	return sub, nil
}

func (a *App) GetSubscriptions(ctx context.Context) ([]Subscription, error) {
	channelIDs, err := a.store.Keys(ctx, kvNamespace)
	if err != nil {
		return nil, err
	}

	var subs []Subscription
	for _, channelID := range channelIDs {
		sub, err := a.GetSubscription(ctx, channelID)
		if err != nil {
			a.logger.Warn("skipping subscription", zap.String("channelID", channelID), zap.Error(err))
			continue
		} else if sub == nil {
			continue
		}
		subs = append(subs, *sub)
	}
	return subs, nil
}

// Subscribe replaces the filter of a channel.
func (a *App) Subscribe(ctx context.Context, channelID string, filter MessageFilter) error {
	data, err := json.Marshal(Subscription{ChannelID: channelID, Filter: filter})
	if err != nil {
		return err
	}
	return a.store.Set(ctx, kvNamespace, channelID, string(data))
}

func (a *App) Unsubscribe(ctx context.Context, channelID string) error {
	sub, err := a.GetSubscription(ctx, channelID)
	if err != nil {
		return err
	} else if sub == nil {
		return errNotSubscribed
	}
	return a.store.Delete(ctx, kvNamespace, channelID)
}

func (a *App) SendMessage(ctx context.Context, channel string, options ...slack.MsgOption) error {
	_, _, _, err := a.api.SendMessageContext(ctx, channel, options...)
	return err
}

func (a *App) Start(ctx context.Context, g *errgroup.Group) error {
	if a.disabled {
		return nil
	}

	client := socketmode.New(
		a.api,
		socketmode.OptionLog(zap.NewStdLog(a.logger)),
	)

	g.Go(func() error {
		a.messageLoop(ctx, client)
		return nil
	})

	g.Go(func() error {
		err := client.RunContext(ctx)
		if !errors.Is(err, context.Canceled) {
			return fmt.Errorf("slack: %w", err)
		}
		return nil
	})

	return nil
}

func (a *App) messageLoop(ctx context.Context, client *socketmode.Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-client.Events:
			switch data := e.Data.(type) {
			case *slack.ConnectingEvent:
				a.logger.Debug("connecting")
			case *slack.ConnectionErrorEvent:
				a.logger.Debug("connection error")
			case *socketmode.ConnectedEvent:
				a.logger.Debug("connected")

			case slack.SlashCommand:
				a.logger.Debug("slash command",
					zap.String("channel", data.ChannelName),
					zap.String("channelID", data.ChannelID),
					zap.String("user", data.UserName),
					zap.String("command", data.Command),
					zap.String("text", data.Text),
				)
				client.Ack(*e.Request, a.Handle(ctx, data))

			default:
				if e.Type == socketmode.EventTypeHello {
					continue
				}
				a.logger.Warn("unexpected event", zap.String("type", string(e.Type)))
			}
		}
	}
}
