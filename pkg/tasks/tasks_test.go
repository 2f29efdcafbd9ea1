package tasks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oursky/agent-manager/pkg/agent"
	"github.com/oursky/agent-manager/pkg/utils/httputil"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
)

func TestTasks(t *testing.T) {
	Convey("Given the built-in catalog", t, func() {
		catalog := agent.NewCatalog()
		So(Register(catalog), ShouldBeNil)

		Convey("all task types are registered", func() {
			So(catalog.Names(), ShouldResemble, []string{"heartbeat", "httpprobe", "ticker"})
		})
		Convey("the heartbeat is declared", func() {
			specs := catalog.Declared()
			So(specs, ShouldHaveLength, 1)
			So(specs[0].Task, ShouldEqual, "heartbeat")

			configs, err := agent.LoadConfigurations(specs)
			So(err, ShouldBeNil)
			So(configs[0].Interval, ShouldEqual, time.Minute)
			So(configs[0].Hidden, ShouldBeTrue)
		})
		Convey("the probe requires a url", func() {
			_, err := catalog.Bind("httpprobe", map[string]string{"url": "not a url"})
			So(errors.Is(err, agent.ErrConfiguration), ShouldBeTrue)
		})
		Convey("the probe reports unexpected statuses", func() {
			status := new(atomic.Int32)
			status.Store(http.StatusOK)
			server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
				rw.WriteHeader(int(status.Load()))
			}))
			defer server.Close()

			b, err := catalog.Bind("httpprobe", map[string]string{"url": server.URL, "rps": "100"})
			So(err, ShouldBeNil)
			So(b.Invoke(context.Background()), ShouldBeNil)

			status.Store(http.StatusBadGateway)
			err = b.Invoke(context.Background())
			var httpErr httputil.ErrHTTPStatus
			So(errors.As(err, &httpErr), ShouldBeTrue)
			So(int(httpErr), ShouldEqual, http.StatusBadGateway)
		})
		Convey("the ticker requires a positive period", func() {
			for _, period := range []string{"0", "-1s", "soon"} {
				_, err := catalog.Bind("ticker", map[string]string{"period": period})
				So(errors.Is(err, agent.ErrConfiguration), ShouldBeTrue)
			}
		})
		Convey("the ticker runs as a daemon until stopped", func() {
			factory := agent.NewFactory(zap.NewNop(), catalog, time.Second)
			a, err := factory.Build(agent.Configuration{
				Name:   "ticker",
				Kind:   agent.KindDaemon,
				Task:   "ticker",
				Params: map[string]string{"period": "5ms"},
			})
			So(err, ShouldBeNil)
			So(a.Start(context.Background()), ShouldBeNil)
			time.Sleep(20 * time.Millisecond)
			So(a.State(), ShouldEqual, agent.StateRunning)
			So(a.Stop(context.Background(), time.Second), ShouldBeNil)
			So(a.State(), ShouldEqual, agent.StateStopped)
		})
	})
}
