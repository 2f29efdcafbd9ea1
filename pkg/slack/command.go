package slack

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oursky/agent-manager/pkg/shell"

	"github.com/samber/lo"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

func (a *App) Handle(ctx context.Context, data slack.SlashCommand) map[string]interface{} {
	if data.Command != "/"+a.commandName {
		return map[string]interface{}{"text": fmt.Sprintf("Unknown command '%s'\n", data.Command)}
	}

	result := a.shell.Execute(ctx, data.ChannelID, data.Text)
	if result.Err != nil {
		a.logger.Warn("command failed",
			zap.String("channelID", data.ChannelID),
			zap.String("text", data.Text),
			zap.Error(result.Err),
		)
	}

	response := map[string]interface{}{"text": result.Message}
	if result.Public {
		response["response_type"] = "in_channel"
	}
	return response
}

func (a *App) subscriptionCommands() []shell.Command {
	return []shell.Command{
		{
			Trigger: "subscribe",
			Arguments: []shell.Argument{
				shell.NewArgument("filters", false, true, "Either event1,event2 or agents:name1,name2:event1,event2. Without filters, stuck agents and failed runs are notified."),
			},
			Description: "Subscribe this channel to agent notifications.",
			Execute: func(env shell.Env) shell.Result {
				filter, err := NewFilter(env.Args)
				if err != nil {
					return shell.Fail(err, "Failed to subscribe")
				}

				if err := a.Subscribe(env.Ctx, env.Origin, filter); err != nil {
					return shell.Fail(err, "Failed to subscribe")
				}
				return shell.Reply(true, fmt.Sprintf("Subscribed to %s", filter))
			},
		},
		{
			Trigger:     "unsubscribe",
			Description: "Unsubscribe this channel from agent notifications.",
			Execute: func(env shell.Env) shell.Result {
				err := a.Unsubscribe(env.Ctx, env.Origin)
				if errors.Is(err, errNotSubscribed) {
					return shell.Reply(false, "This channel is not subscribed")
				} else if err != nil {
					return shell.Fail(err, "Failed to unsubscribe")
				}
				return shell.Reply(true, "Unsubscribed")
			},
		},
		{
			Trigger:     "subscriptions",
			Description: "List the channels receiving agent notifications.",
			Execute: func(env shell.Env) shell.Result {
				subs, err := a.GetSubscriptions(env.Ctx)
				if err != nil {
					return shell.Fail(err, "Failed to get subscriptions")
				}
				if len(subs) == 0 {
					return shell.Reply(true, "No channels are subscribed")
				}

				lines := lo.Map(subs, func(s Subscription, _ int) string {
					return fmt.Sprintf("<#%s>: %s", s.ChannelID, s.Filter)
				})
				return shell.Reply(true, strings.Join(lines, "\n"))
			},
		},
	}
}
