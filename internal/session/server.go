package session

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gardenops/grounds/internal/account"
	"github.com/gardenops/grounds/pkg/cerr"
	"github.com/gardenops/grounds/pkg/clog"
)

// Authenticator verifies a username/password pair. Implemented by the
// account server.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*account.Account, error)
}

type Server struct {
	manager *Manager
	auth    Authenticator
}

func NewServer(manager *Manager, auth Authenticator) *Server {
	return &Server{
		manager: manager,
		auth:    auth,
	}
}

// Middleware resolves the session cookie into a viewer on the request
// context. Requests without a valid session pass through unauthenticated;
// individual handlers decide whether that is acceptable.
func (s *Server) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err == nil {
				if viewer, ok := s.manager.Resolve(cookie.Value); ok {
					ctx := account.ContextWithViewer(r.Context(), viewer)
					clog.AddAttributes(ctx, map[string]any{
						"account_id": viewer.AccountID,
						"role":       string(viewer.Role),
					})
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Get("/session", s.handleSession)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	AccountID   string       `json:"accountId"`
	Username    string       `json:"username"`
	Role        account.Role `json:"role"`
	DisplayName string       `json:"displayName"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Username == "" || req.Password == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "username and password are required", nil)
		return
	}
	a, err := s.auth.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	token := s.manager.Create(account.Viewer{AccountID: a.ID, Role: a.Role})
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	cerr.SetJSONResponse(ctx, sessionResponse{
		AccountID:   a.ID,
		Username:    a.Username,
		Role:        a.Role,
		DisplayName: a.DisplayName,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if cookie, err := r.Cookie(CookieName); err == nil {
		s.manager.Destroy(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	cerr.SetJSONResponse(ctx, map[string]bool{"loggedOut": true})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, ok := account.ViewerFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "not logged in", nil)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{
		"accountId": viewer.AccountID,
		"role":      viewer.Role,
	})
}
