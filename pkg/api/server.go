package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oursky/agent-manager/pkg/agent"
	"github.com/oursky/agent-manager/pkg/utils/httputil"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	logger    *zap.Logger
	enabled   bool
	server    *http.Server
	manager   *agent.Manager
	startedAt time.Time
}

func NewServer(logger *zap.Logger, config *Config, manager *agent.Manager, gatherer prometheus.Gatherer) *Server {
	if config.Disabled {
		return &Server{enabled: false}
	}

	logger = logger.Named("api")

	server := &Server{
		logger:  logger,
		enabled: true,
		server: &http.Server{
			Addr:        config.GetAddr(),
			ReadTimeout: 10 * time.Second,
			ErrorLog:    zap.NewStdLog(logger),
		},
		manager:   manager,
		startedAt: time.Now(),
	}
	server.server.Handler = server.routes(config.AuthKeys, gatherer)

	return server
}

func (s *Server) routes(authKeys []string, gatherer prometheus.Gatherer) http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(s.logger.Named("prom")),
	}))

	apiR := mux.NewRouter()
	r.PathPrefix("/api/v1/").Handler(httputil.UseKeyAuth(authKeys, apiR))

	apiR.HandleFunc("/api/v1/agents", s.apiAgentsGet).Methods("GET")
	apiR.HandleFunc("/api/v1/snapshots", s.apiSnapshotsGet).Methods("GET")
	apiR.HandleFunc("/api/v1/snapshots/watch", s.apiSnapshotsWatch).Methods("GET")
	apiR.HandleFunc("/api/v1/agents/{name}", s.apiAgentGet).Methods("GET")
	apiR.HandleFunc("/api/v1/agents/{name}", s.apiAgentDelete).Methods("DELETE")
	apiR.HandleFunc("/api/v1/agents/{name}/start", s.apiAgentStart).Methods("POST")
	apiR.HandleFunc("/api/v1/agents/{name}/stop", s.apiAgentStop).Methods("POST")
	apiR.HandleFunc("/api/v1/agents/{name}/run", s.apiAgentRun).Methods("POST")
	apiR.HandleFunc("/api/v1/agents/{name}/reset", s.apiAgentReset).Methods("POST")
	apiR.HandleFunc("/api/v1/system", s.apiSystem).Methods("GET")

	return r
}

func (s *Server) Start(ctx context.Context, g *errgroup.Group) error {
	if !s.enabled {
		return nil
	}

	g.Go(func() error {
		go func() {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			s.server.Shutdown(shutdownCtx)
		}()

		s.logger.Info("starting server", zap.String("addr", s.server.Addr))
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to run server: %w", err)
		}
		return nil
	})
	return nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, agent.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, agent.ErrDuplicateName), errors.Is(err, agent.ErrIllegalState):
		return http.StatusConflict
	case errors.Is(err, agent.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, agent.ErrStopTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, agent.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func (s *Server) respondError(rw http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	kind := agent.ErrorKind(err)
	if errors.Is(err, errBadRequest) {
		kind = "bad_request"
	}
	httputil.RespondError(rw, status, kind, err)
}
