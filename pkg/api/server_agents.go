package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/oursky/agent-manager/pkg/agent"
	"github.com/oursky/agent-manager/pkg/shell"
	"github.com/oursky/agent-manager/pkg/utils/channels"
	"github.com/oursky/agent-manager/pkg/utils/httputil"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type agentsResponse struct {
	Names []string `json:"names"`
}

type stateResponse struct {
	Snapshot agent.Snapshot `json:"snapshot"`
	State    string         `json:"state"`
	Running  bool           `json:"running"`
	Started  bool           `json:"started"`
}

type SystemInfo struct {
	Version    string        `json:"version"`
	GoVersion  string        `json:"goVersion"`
	Platform   string        `json:"platform"`
	Uptime     time.Duration `json:"uptime"`
	Goroutines int           `json:"goroutines"`
	Agents     int           `json:"agents"`
}

var Version = "dev"

func (s *Server) apiAgentsGet(rw http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	includeHidden := r.Form.Has("hidden") && r.Form.Get("hidden") != "false"
	httputil.RespondJSON(rw, agentsResponse{Names: s.manager.ListAgentNames(includeHidden)})
}

func (s *Server) apiSnapshotsGet(rw http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(rw, s.manager.DescribeAgents())
}

// apiSnapshotsWatch answers with the next published snapshots, or the
// current ones once the wait parameter (default 30s) elapses.
func (s *Server) apiSnapshotsWatch(rw http.ResponseWriter, r *http.Request) {
	wait := 30 * time.Second
	if text := r.URL.Query().Get("wait"); text != "" {
		var err error
		if wait, err = time.ParseDuration(text); err != nil {
			s.respondError(rw, r, fmt.Errorf("%w: invalid wait: %s", errBadRequest, err))
			return
		}
	}

	ctx := r.Context()
	sub := channels.NewSubscriber(ctx, s.manager.State())
	select {
	case <-sub.Wait():
	case <-ctx.Done():
		return
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case snapshots := <-sub.Wait():
		httputil.RespondJSON(rw, snapshots)
	case <-timer.C:
		httputil.RespondJSON(rw, s.manager.DescribeAgents())
	case <-ctx.Done():
	}
}

func (s *Server) apiAgentGet(rw http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	snapshot, err := s.manager.DescribeAgent(name)
	if err != nil {
		s.respondError(rw, r, err)
		return
	}

	httputil.RespondJSON(rw, stateResponse{
		Snapshot: snapshot,
		State:    snapshot.Describe(),
		Running:  snapshot.IsRunning(),
		Started:  snapshot.IsStarted(),
	})
}

func (s *Server) apiAgentDelete(rw http.ResponseWriter, r *http.Request) {
	s.operate(rw, r, "remove", s.manager.RemoveAgent)
}

func (s *Server) apiAgentStart(rw http.ResponseWriter, r *http.Request) {
	s.operate(rw, r, "start", s.manager.StartAgent)
}

func (s *Server) apiAgentRun(rw http.ResponseWriter, r *http.Request) {
	s.operate(rw, r, "run", s.manager.RunNow)
}

func (s *Server) apiAgentReset(rw http.ResponseWriter, r *http.Request) {
	s.operate(rw, r, "reset", s.manager.ResetAgent)
}

func (s *Server) apiAgentStop(rw http.ResponseWriter, r *http.Request) {
	var timeout time.Duration
	if text := r.URL.Query().Get("timeout"); text != "" {
		var err error
		if timeout, err = shell.ParseTimeout(text); err != nil {
			s.respondError(rw, r, fmt.Errorf("%w: %s", errBadRequest, err))
			return
		}
	}

	s.operate(rw, r, "stop", func(ctx context.Context, name string) error {
		return s.manager.StopAgent(ctx, name, timeout)
	})
}

func (s *Server) operate(rw http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, name string) error) {
	name := mux.Vars(r)["name"]
	s.logger.Info("operation requested", zap.String("op", op), zap.String("agent", name))

	if err := fn(r.Context(), name); err != nil {
		s.respondError(rw, r, err)
		return
	}

	snapshot, err := s.manager.DescribeAgent(name)
	if err != nil {
		rw.WriteHeader(http.StatusOK)
		return
	}
	httputil.RespondJSON(rw, snapshot)
}

func (s *Server) apiSystem(rw http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(rw, SystemInfo{
		Version:    Version,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		Uptime:     time.Since(s.startedAt),
		Goroutines: runtime.NumGoroutine(),
		Agents:     len(s.manager.ListAgentNames(true)),
	})
}
