package account

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/gardenops/grounds/pkg/cerr"
)

// TaskUnassigner clears dangling assignee references after an account is
// deleted. Implemented by the task server and wired in at startup.
type TaskUnassigner interface {
	UnassignAccount(ctx context.Context, accountID string) (int, error)
}

// SessionInvalidator drops the live sessions of an account so a deleted
// account cannot keep acting on an old cookie. Implemented by the
// session manager.
type SessionInvalidator interface {
	DestroyAccount(accountID string)
}

type Server struct {
	repo       Repository
	unassigner TaskUnassigner
	sessions   SessionInvalidator
}

func NewServer(repo Repository, unassigner TaskUnassigner) *Server {
	return &Server{
		repo:       repo,
		unassigner: unassigner,
	}
}

// SetSessionInvalidator wires session teardown for deleted accounts. Set
// after construction because the session layer authenticates through this
// server.
func (s *Server) SetSessionInvalidator(si SessionInvalidator) {
	s.sessions = si
}

type CreateRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
}

type UpdateRequest struct {
	DisplayName *string `json:"displayName"`
	Role        *string `json:"role"`
	Password    *string `json:"password"`
}

// List returns all accounts for managers and admins.
func (s *Server) List(ctx context.Context, viewer Viewer) ([]View, error) {
	if !viewer.Role.CanListAccounts() {
		return nil, cerr.NewError(cerr.PermissionDenied, "role may not list accounts", nil)
	}
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]View, len(accounts))
	for i, a := range accounts {
		views[i] = a.View()
	}
	return views, nil
}

// Create registers a new account. Admin only; usernames are unique.
func (s *Server) Create(ctx context.Context, viewer Viewer, req CreateRequest) (*View, error) {
	if !viewer.Role.CanManageAccounts() {
		return nil, cerr.NewError(cerr.PermissionDenied, "role may not manage accounts", nil)
	}
	if req.Username == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "username is required", nil)
	}
	if req.Password == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "password is required", nil)
	}
	role, err := ParseRole(req.Role)
	if err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, "invalid role", err)
	}

	if _, err := s.repo.FindByUsername(ctx, req.Username); err == nil {
		return nil, cerr.NewError(cerr.AlreadyExists, "username already taken", nil)
	} else if !cerr.IsCode(err, cerr.NotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", err)
	}

	now := time.Now()
	a := &Account{
		ID:           ulid.Make().String(),
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         role,
		DisplayName:  req.DisplayName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	v := a.View()
	return &v, nil
}

// Update applies a partial update to an account. Admin only. The password,
// when present, is rehashed; lifecycle fields do not exist on accounts so
// every field is patchable.
func (s *Server) Update(ctx context.Context, viewer Viewer, id string, req UpdateRequest) (*View, error) {
	if !viewer.Role.CanManageAccounts() {
		return nil, cerr.NewError(cerr.PermissionDenied, "role may not manage accounts", nil)
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != nil {
		a.DisplayName = *req.DisplayName
	}
	if req.Role != nil {
		role, err := ParseRole(*req.Role)
		if err != nil {
			return nil, cerr.NewError(cerr.InvalidArgument, "invalid role", err)
		}
		a.Role = role
	}
	if req.Password != nil {
		if *req.Password == "" {
			return nil, cerr.NewError(cerr.InvalidArgument, "password must not be empty", nil)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, cerr.NewError(cerr.Internal, "server error", err)
		}
		a.PasswordHash = string(hash)
	}
	a.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	v := a.View()
	return &v, nil
}

// Delete removes an account. Admin only; an admin cannot delete their own
// account. Open tasks assigned to the deleted account have their assignee
// cleared so no dangling reference survives.
func (s *Server) Delete(ctx context.Context, viewer Viewer, id string) error {
	if !viewer.Role.CanManageAccounts() {
		return cerr.NewError(cerr.PermissionDenied, "role may not manage accounts", nil)
	}
	if id == viewer.AccountID {
		return cerr.NewError(cerr.FailedPrecondition, "cannot delete own account", nil)
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.unassigner != nil {
		if _, err := s.unassigner.UnassignAccount(ctx, id); err != nil {
			return err
		}
	}
	if s.sessions != nil {
		s.sessions.DestroyAccount(id)
	}
	return nil
}

// Authenticate verifies a username/password pair. The same error is
// returned for an unknown username and a wrong password.
func (s *Server) Authenticate(ctx context.Context, username, password string) (*Account, error) {
	a, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			return nil, cerr.NewError(cerr.Unauthenticated, "invalid credentials", nil)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, cerr.NewError(cerr.Unauthenticated, "invalid credentials", nil)
	}
	return a, nil
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/accounts", s.handleList)
	r.Post("/accounts", s.handleCreate)
	r.Patch("/accounts/{accountID}", s.handleUpdate)
	r.Delete("/accounts/{accountID}", s.handleDelete)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, ok := ViewerFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "not logged in", nil)
		return
	}
	views, err := s.List(ctx, viewer)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, views)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, ok := ViewerFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "not logged in", nil)
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	view, err := s.Create(ctx, viewer, req)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, view)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, ok := ViewerFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "not logged in", nil)
		return
	}
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	view, err := s.Update(ctx, viewer, chi.URLParam(r, "accountID"), req)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, view)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, ok := ViewerFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "not logged in", nil)
		return
	}
	if err := s.Delete(ctx, viewer, chi.URLParam(r, "accountID")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]bool{"deleted": true})
}
