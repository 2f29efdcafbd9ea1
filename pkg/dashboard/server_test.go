package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oursky/agent-manager/pkg/agent"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
)

type failingTask struct{}

func (failingTask) Run(ctx context.Context) error { return context.DeadlineExceeded }

func TestServer(t *testing.T) {
	Convey("Given a dashboard", t, func() {
		ctx := context.Background()
		catalog := agent.NewCatalog()
		catalog.Register("failing", failingTask{})
		m := agent.NewManager(zap.NewNop(), &agent.Config{}, agent.NewFactory(zap.NewNop(), catalog, time.Second))
		So(m.Load([]agent.Configuration{
			{Name: "reporter", Kind: agent.KindTimer, Interval: time.Hour, Task: "failing"},
			{Name: "internal", Kind: agent.KindTimer, Interval: time.Hour, Task: "failing", Hidden: true},
		}), ShouldBeNil)
		defer m.StopAll(ctx, time.Second)

		s := NewServer(zap.NewNop(), &Config{}, m)
		get := func(path string) *httptest.ResponseRecorder {
			rw := httptest.NewRecorder()
			s.server.Handler.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, path, nil))
			return rw
		}

		Convey("the index lists visible agents", func() {
			rw := get("/")
			So(rw.Code, ShouldEqual, http.StatusOK)
			body := rw.Body.String()
			So(body, ShouldContainSubstring, `href="/agents/reporter"`)
			So(body, ShouldNotContainSubstring, `href="/agents/internal"`)
			So(body, ShouldContainSubstring, "1 hidden agent")
			So(body, ShouldContainSubstring, `http-equiv="refresh"`)

			body = get("/?hidden").Body.String()
			So(body, ShouldContainSubstring, `href="/agents/internal"`)
		})
		Convey("an agent page shows its last run", func() {
			So(m.StartAgent(ctx, "reporter"), ShouldBeNil)
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				if lo.ContainsBy(s.snapshots(), func(a agent.Snapshot) bool { return a.LastRun != nil }) {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}

			rw := get("/agents/reporter")
			So(rw.Code, ShouldEqual, http.StatusOK)
			body := rw.Body.String()
			So(body, ShouldContainSubstring, "state-started")
			So(body, ShouldContainSubstring, "deadline exceeded")
			So(body, ShouldContainSubstring, "reporter (timer) is STARTED")
		})
		Convey("unknown pages are not found", func() {
			So(get("/agents/ghost").Code, ShouldEqual, http.StatusNotFound)
			So(get("/nope").Code, ShouldEqual, http.StatusNotFound)
		})
		Convey("styles are served", func() {
			rw := get("/styles.css")
			So(rw.Code, ShouldEqual, http.StatusOK)
			So(rw.Header().Get("Content-Type"), ShouldStartWith, "text/css")
		})
	})
}
