package slack

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oursky/agent-manager/pkg/agent"
	"github.com/slack-go/slack"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
)

func TestFilter(t *testing.T) {
	Convey("Filters", t, func() {
		stuck := agent.Event{Type: agent.EventStuck, Agent: "cleaner"}
		started := agent.Event{Type: agent.EventStarted, Agent: "cleaner"}
		otherFailed := agent.Event{Type: agent.EventRunFailed, Agent: "other"}

		Convey("without layers pass default events", func() {
			f, err := NewFilter(nil)
			So(err, ShouldBeNil)
			So(f.Any(stuck), ShouldBeTrue)
			So(f.Any(otherFailed), ShouldBeTrue)
			So(f.Any(started), ShouldBeFalse)
		})
		Convey("match any layer", func() {
			f, err := NewFilter([]string{"agents:cleaner", "run_failed"})
			So(err, ShouldBeNil)
			So(f.Any(stuck), ShouldBeTrue)
			So(f.Any(started), ShouldBeTrue)
			So(f.Any(otherFailed), ShouldBeTrue)
			So(f.Any(agent.Event{Type: agent.EventStarted, Agent: "other"}), ShouldBeFalse)
		})
		Convey("combine agents and events in a layer", func() {
			f, err := NewFilter([]string{"agents:cleaner,other:started"})
			So(err, ShouldBeNil)
			So(f.Any(started), ShouldBeTrue)
			So(f.Any(stuck), ShouldBeFalse)
			So(f.String(), ShouldEqual, "started of cleaner, other")
		})
	})
}

func TestNotifier(t *testing.T) {
	Convey("The notifier", t, func() {
		ctx := context.Background()
		app, m := newTestApp("agents")
		defer m.StopAll(ctx, time.Second)

		n := NewNotifier(zap.NewNop(), &Config{}, app)

		var lock sync.Mutex
		var sent []string
		n.send = func(ctx context.Context, channel string, options ...slack.MsgOption) error {
			lock.Lock()
			defer lock.Unlock()
			sent = append(sent, channel)
			if channel == "broken" {
				return errors.New("channel_not_found")
			}
			return nil
		}

		So(app.Subscribe(ctx, "ops", MessageFilter{}), ShouldBeNil)
		f, _ := NewFilter([]string{"agents:cleaner:started"})
		So(app.Subscribe(ctx, "dev", f), ShouldBeNil)
		So(app.Subscribe(ctx, "broken", MessageFilter{}), ShouldBeNil)

		Convey("sends to matching channels only", func() {
			n.notify(ctx, agent.Event{Type: agent.EventStuck, Agent: "cleaner"})
			So(sent, ShouldResemble, []string{"broken", "ops"})

			sent = nil
			n.notify(ctx, agent.Event{Type: agent.EventStarted, Agent: "cleaner"})
			So(sent, ShouldResemble, []string{"dev"})
		})
		Convey("drops events when the queue is full", func() {
			for i := 0; i < n.capacity()+3; i++ {
				n.Listen(agent.Event{Type: agent.EventStarted, Agent: "cleaner"})
			}
			So(n.Dropped(), ShouldEqual, int64(3))
		})
		Convey("delivers queued events when running", func() {
			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			done := make(chan struct{})
			go func() {
				n.run(runCtx)
				close(done)
			}()

			n.Listen(agent.Event{Type: agent.EventStarted, Agent: "cleaner"})
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				lock.Lock()
				count := len(sent)
				lock.Unlock()
				if count > 0 {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			cancel()
			<-done
			So(sent, ShouldResemble, []string{"dev"})
		})
	})
}

func TestMessage(t *testing.T) {
	Convey("Messages describe the event", t, func() {
		msg := message(agent.Event{
			Type:  agent.EventRunFailed,
			Agent: "cleaner<x>",
			Kind:  agent.KindTimer,
			State: agent.StateStarted,
			Time:  time.Unix(1700000000, 0),
			Error: "boom",
		})
		So(msg.Title, ShouldEqual, "cleaner&lt;x&gt; has failed.")
		So(msg.Color, ShouldEqual, "#7f1d1d")
		So(msg.AuthorName, ShouldEqual, "TIMER")
		So(len(msg.Fields), ShouldEqual, 2)
		So(msg.Fields[1].Value, ShouldContainSubstring, "boom")
		So(string(msg.Ts), ShouldEqual, "1700000000")

		msg = message(agent.Event{Type: agent.EventStuck, Agent: "cleaner"})
		So(msg.Color, ShouldEqual, "#d97706")
		So(len(msg.Fields), ShouldEqual, 1)
	})
}
