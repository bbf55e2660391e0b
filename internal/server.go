package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/gardenops/grounds/internal/account"
	"github.com/gardenops/grounds/internal/attachment"
	"github.com/gardenops/grounds/internal/config"
	"github.com/gardenops/grounds/internal/session"
	"github.com/gardenops/grounds/internal/task"
	"github.com/gardenops/grounds/pkg/cerr"
	"github.com/gardenops/grounds/pkg/clog"
)

type Server struct {
	server        *http.Server
	env           *config.Env
	sessionServer *session.Server
	taskServer    *task.Server
	accountServer *account.Server
	attachments   *attachment.Store
}

func NewServer(
	env *config.Env,
	sessionServer *session.Server,
	taskServer *task.Server,
	accountServer *account.Server,
	attachments *attachment.Store,
) *Server {
	return &Server{
		env:           env,
		sessionServer: sessionServer,
		taskServer:    taskServer,
		accountServer: accountServer,
		attachments:   attachments,
	}
}

// Handler assembles the full route tree: the /api group with logging,
// error serialization and session middleware, plus health and uploads.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
			s.sessionServer.Middleware(),
		)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
		s.sessionServer.RegisterRoutes(r)
		s.taskServer.RegisterRoutes(r)
		s.accountServer.RegisterRoutes(r)
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)
	mux.Handle("/uploads/", http.HandlerFunc(s.serveUpload))
	return mux
}

// ListenAndServe starts the HTTP server. The provided context is used as
// the base context for all incoming requests via http.Server.BaseContext,
// so in-flight request contexts are cancelled on shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.Handler()), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) serveUpload(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Path
	if strings.Contains(ref, "..") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	data, err := s.attachments.Load(r.Context(), ref)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
