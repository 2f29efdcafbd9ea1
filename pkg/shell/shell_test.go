package shell

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/oursky/agent-manager/pkg/agent"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
)

type noopTask struct{}

func (noopTask) Run(ctx context.Context) error { return nil }

func newTestManager() *agent.Manager {
	catalog := agent.NewCatalog()
	catalog.Register("noop", noopTask{})
	m := agent.NewManager(zap.NewNop(), &agent.Config{}, agent.NewFactory(zap.NewNop(), catalog, time.Second))
	m.Load([]agent.Configuration{
		{Name: "visible", Kind: agent.KindTimer, Interval: time.Hour, Task: "noop"},
		{Name: "internal", Kind: agent.KindTimer, Interval: time.Hour, Task: "noop", Hidden: true},
	})
	return m
}

func TestShell(t *testing.T) {
	Convey("Given a shell over a manager", t, func() {
		ctx := context.Background()
		m := newTestManager()
		defer m.StopAll(ctx, time.Second)
		s := New(Local(m))

		Convey("help lists the commands", func() {
			result := s.Execute(ctx, "", "help")
			So(result.Message, ShouldContainSubstring, "`start`")
			So(result.Message, ShouldContainSubstring, "`remove`")

			result = s.Execute(ctx, "", "help stop")
			So(result.Message, ShouldContainSubstring, "stop name [timeout]")
		})
		Convey("unknown commands are rejected", func() {
			result := s.Execute(ctx, "", "fhqwhgads")
			So(result.Public, ShouldBeFalse)
			So(result.Message, ShouldContainSubstring, "fhqwhgads")
		})
		Convey("missing arguments are reported with usage", func() {
			result := s.Execute(ctx, "", "start")
			So(result.Message, ShouldContainSubstring, "Usage: `start name`")
		})
		Convey("hidden agents are only listed on request", func() {
			So(s.Execute(ctx, "", "list").Message, ShouldEqual, "visible")
			So(s.Execute(ctx, "", "list all").Message, ShouldEqual, "internal\nvisible")
			So(s.Execute(ctx, "", "describe").Message, ShouldNotContainSubstring, "internal")
			So(s.Execute(ctx, "", "describe all").Message, ShouldContainSubstring, "internal (hidden)")
		})
		Convey("agents can be driven through their lifecycle", func() {
			result := s.Execute(ctx, "", "start visible")
			So(result.Err, ShouldBeNil)
			So(result.Public, ShouldBeTrue)

			result = s.Execute(ctx, "", "start visible")
			So(errors.Is(result.Err, agent.ErrIllegalState), ShouldBeTrue)
			So(result.Message, ShouldContainSubstring, "already started")

			So(s.Execute(ctx, "", "status visible").Message, ShouldContainSubstring, "visible (timer) is")

			result = s.Execute(ctx, "", "remove visible")
			So(errors.Is(result.Err, agent.ErrIllegalState), ShouldBeTrue)

			So(s.Execute(ctx, "", "stop visible 5s").Err, ShouldBeNil)
			So(s.Execute(ctx, "", "reset visible").Err, ShouldBeNil)
			So(s.Execute(ctx, "", "remove visible").Err, ShouldBeNil)
			So(m.ListAgentNames(true), ShouldResemble, []string{"internal"})
		})
		Convey("an invalid timeout is rejected", func() {
			s.Execute(ctx, "", "start visible")
			result := s.Execute(ctx, "", "stop visible soon")
			So(result.Message, ShouldContainSubstring, "invalid timeout")
		})
		Convey("unknown agents are reported", func() {
			result := s.Execute(ctx, "", "run ghost")
			So(errors.Is(result.Err, agent.ErrNotFound), ShouldBeTrue)
		})
		Convey("the interactive loop runs until exit", func() {
			var out bytes.Buffer
			in := strings.NewReader("list\n\nstatus internal\nexit\nlist\n")
			So(s.Run(ctx, in, &out, "> "), ShouldBeNil)
			So(out.String(), ShouldContainSubstring, "visible")
			So(out.String(), ShouldContainSubstring, "internal (timer) is SET")
			So(strings.Count(out.String(), "> "), ShouldEqual, 4)
		})
	})
}

func TestParseTimeout(t *testing.T) {
	Convey("Timeouts accept seconds and durations", t, func() {
		d, err := ParseTimeout("30")
		So(err, ShouldBeNil)
		So(d, ShouldEqual, 30*time.Second)

		d, err = ParseTimeout("1m")
		So(err, ShouldBeNil)
		So(d, ShouldEqual, time.Minute)

		_, err = ParseTimeout("-1")
		So(err, ShouldNotBeNil)
	})
}
