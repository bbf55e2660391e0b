package task

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/gardenops/grounds/internal/account"
	"github.com/gardenops/grounds/internal/eventbus"
	"github.com/gardenops/grounds/internal/season"
	"github.com/gardenops/grounds/pkg/cerr"
)

// AttachmentStore turns uploaded bytes into a stored reference string.
type AttachmentStore interface {
	Save(ctx context.Context, filename string, data []byte) (string, error)
}

type Server struct {
	repo        Repository
	accountRepo account.Repository
	attachments AttachmentStore
	eventBus    *eventbus.Bus
}

func NewServer(repo Repository, accountRepo account.Repository, attachments AttachmentStore, eventBus *eventbus.Bus) *Server {
	return &Server{
		repo:        repo,
		accountRepo: accountRepo,
		attachments: attachments,
		eventBus:    eventBus,
	}
}

type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	DueDate     string `json:"dueDate"`
	Season      string `json:"season"`
	AssigneeID  string `json:"assigneeId"`
	Urgency     string `json:"urgency"`
	Attachment  string `json:"-"`
}

// UpdateRequest is the restricted field patch: lifecycle flags are not
// reachable here, only the named complete/archive operations move them.
type UpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	DueDate     *string `json:"dueDate"`
	Season      *string `json:"season"`
	AssigneeID  *string `json:"assigneeId"`
	Urgency     *string `json:"urgency"`
	Attachment  *string `json:"attachment"`
}

// List returns the tasks the viewer may see under the given filter, in
// display order.
func (s *Server) List(ctx context.Context, viewer account.Viewer, f Filter, now time.Time) ([]View, error) {
	tasks, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	visible := Apply(tasks, viewer, f, now)
	views := make([]View, len(visible))
	for i, t := range visible {
		views[i] = t.ViewAt(now)
	}
	return views, nil
}

// Create adds a new task in the Active state. Managers and admins only.
// The season is derived from the due date unless supplied explicitly.
func (s *Server) Create(ctx context.Context, viewer account.Viewer, req CreateRequest) (*View, error) {
	if !viewer.Role.CanMutateTasks() {
		return nil, cerr.NewError(cerr.PermissionDenied, "role may not create tasks", nil)
	}
	if req.Title == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "title is required", nil)
	}
	if req.Category == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "category is required", nil)
	}
	category, err := ParseCategory(req.Category)
	if err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, "invalid category", err)
	}
	if req.DueDate == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "dueDate is required", nil)
	}
	dueDate, err := time.Parse(DateLayout, req.DueDate)
	if err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, "invalid dueDate, want YYYY-MM-DD", err)
	}
	ssn := season.Of(dueDate)
	if req.Season != "" {
		ssn = season.Season(req.Season)
		if !season.Valid(ssn) {
			return nil, cerr.NewError(cerr.InvalidArgument, "invalid season", nil)
		}
	}
	urgency, err := ParseUrgency(req.Urgency)
	if err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, "invalid urgency", err)
	}
	if err := s.checkAssignee(ctx, req.AssigneeID); err != nil {
		return nil, err
	}

	now := time.Now()
	t := &Task{
		ID:          ulid.Make().String(),
		Title:       req.Title,
		Description: req.Description,
		Category:    category,
		DueDate:     dueDate,
		Season:      ssn,
		AssigneeID:  req.AssigneeID,
		Urgency:     urgency,
		Attachment:  req.Attachment,
		Completed:   false,
		Archived:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.eventBus.PublishNew(eventbus.TypeTaskCreated, t.ID, viewer.AccountID, map[string]string{
		"category": string(t.Category),
		"assignee": t.AssigneeID,
	})

	v := t.ViewAt(now)
	return &v, nil
}

// Complete marks a task as done. Allowed for managers and admins, and for
// the task's own assignee. Completing an already-completed task fails.
func (s *Server) Complete(ctx context.Context, viewer account.Viewer, id string) (*View, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.CanCompleteTask(t.AssigneeID) {
		return nil, cerr.NewError(cerr.PermissionDenied, "task is not assigned to you", nil)
	}
	if t.Completed {
		return nil, cerr.NewError(cerr.FailedPrecondition, "task is already completed", nil)
	}
	t.Completed = true
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.eventBus.PublishNew(eventbus.TypeTaskCompleted, t.ID, viewer.AccountID, nil)

	v := t.ViewAt(t.UpdatedAt)
	return &v, nil
}

// Archive moves a task into the archive regardless of completion state.
// Managers and admins only; archiving twice fails. There is no un-archive.
func (s *Server) Archive(ctx context.Context, viewer account.Viewer, id string) (*View, error) {
	if !viewer.Role.CanMutateTasks() {
		return nil, cerr.NewError(cerr.PermissionDenied, "role may not archive tasks", nil)
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Archived {
		return nil, cerr.NewError(cerr.FailedPrecondition, "task is already archived", nil)
	}
	t.Archived = true
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.eventBus.PublishNew(eventbus.TypeTaskArchived, t.ID, viewer.AccountID, nil)

	v := t.ViewAt(t.UpdatedAt)
	return &v, nil
}

// Delete permanently removes a task in any lifecycle state. Managers and
// admins only.
func (s *Server) Delete(ctx context.Context, viewer account.Viewer, id string) error {
	if !viewer.Role.CanMutateTasks() {
		return cerr.NewError(cerr.PermissionDenied, "role may not delete tasks", nil)
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.eventBus.PublishNew(eventbus.TypeTaskDeleted, id, viewer.AccountID, nil)
	return nil
}

// UpdateFields merges the provided non-lifecycle fields over the task.
// Managers and admins only. When the due date changes without an explicit
// season, the season is re-derived.
func (s *Server) UpdateFields(ctx context.Context, viewer account.Viewer, id string, req UpdateRequest) (*View, error) {
	if !viewer.Role.CanMutateTasks() {
		return nil, cerr.NewError(cerr.PermissionDenied, "role may not update tasks", nil)
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		if *req.Title == "" {
			return nil, cerr.NewError(cerr.InvalidArgument, "title must not be empty", nil)
		}
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Category != nil {
		category, err := ParseCategory(*req.Category)
		if err != nil {
			return nil, cerr.NewError(cerr.InvalidArgument, "invalid category", err)
		}
		t.Category = category
	}
	if req.DueDate != nil {
		dueDate, err := time.Parse(DateLayout, *req.DueDate)
		if err != nil {
			return nil, cerr.NewError(cerr.InvalidArgument, "invalid dueDate, want YYYY-MM-DD", err)
		}
		t.DueDate = dueDate
		if req.Season == nil {
			t.Season = season.Of(dueDate)
		}
	}
	if req.Season != nil {
		ssn := season.Season(*req.Season)
		if !season.Valid(ssn) {
			return nil, cerr.NewError(cerr.InvalidArgument, "invalid season", nil)
		}
		t.Season = ssn
	}
	if req.AssigneeID != nil {
		if err := s.checkAssignee(ctx, *req.AssigneeID); err != nil {
			return nil, err
		}
		t.AssigneeID = *req.AssigneeID
	}
	if req.Urgency != nil {
		urgency, err := ParseUrgency(*req.Urgency)
		if err != nil {
			return nil, cerr.NewError(cerr.InvalidArgument, "invalid urgency", err)
		}
		t.Urgency = urgency
	}
	if req.Attachment != nil {
		t.Attachment = *req.Attachment
	}
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.eventBus.PublishNew(eventbus.TypeTaskUpdated, t.ID, viewer.AccountID, nil)

	v := t.ViewAt(t.UpdatedAt)
	return &v, nil
}

// UnassignAccount clears the assignee on every task referencing the given
// account and returns how many tasks were touched. Called after an
// account is deleted so no dangling reference survives.
func (s *Server) UnassignAccount(ctx context.Context, accountID string) (int, error) {
	tasks, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	cleared := 0
	for _, t := range tasks {
		if t.AssigneeID != accountID {
			continue
		}
		t.AssigneeID = ""
		t.UpdatedAt = time.Now()
		if err := s.repo.Update(ctx, t); err != nil {
			return cleared, err
		}
		cleared++
	}
	return cleared, nil
}

// checkAssignee verifies that a non-empty assignee names an existing
// account at write time. The check is advisory: a later account deletion
// is handled by UnassignAccount, not rejected here.
func (s *Server) checkAssignee(ctx context.Context, assigneeID string) error {
	if assigneeID == "" {
		return nil
	}
	if _, err := s.accountRepo.Get(ctx, assigneeID); err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			return cerr.NewError(cerr.InvalidArgument, "assignee does not exist", err)
		}
		return err
	}
	return nil
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/tasks", s.handleList)
	r.Post("/tasks", s.handleCreate)
	r.Patch("/tasks/{taskID}", s.handleUpdate)
	r.Delete("/tasks/{taskID}", s.handleDelete)
	r.Post("/tasks/{taskID}/complete", s.handleComplete)
	r.Post("/tasks/{taskID}/archive", s.handleArchive)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, ok := account.ViewerFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "not logged in", nil)
		return
	}
	view, err := ParseViewContext(r.URL.Query().Get("view"))
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid view", err)
		return
	}
	f := Filter{
		View:       view,
		Category:   r.URL.Query().Get("category"),
		AssigneeID: r.URL.Query().Get("assignee"),
	}
	views, err := s.List(ctx, viewer, f, time.Now())
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, views)
}

// maxUploadBytes bounds the multipart form memory for task creation; the
// attachment store applies its own per-image limit.
const maxUploadBytes = 10 << 20

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, ok := account.ViewerFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "not logged in", nil)
		return
	}

	var req CreateRequest
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid multipart form", err)
			return
		}
		req = CreateRequest{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			Category:    r.FormValue("category"),
			DueDate:     r.FormValue("dueDate"),
			Season:      r.FormValue("season"),
			AssigneeID:  r.FormValue("assignee"),
			Urgency:     r.FormValue("urgency"),
		}
		file, header, err := r.FormFile("image")
		if err == nil {
			ref, saveErr := s.saveAttachment(ctx, file, header)
			if saveErr != nil {
				cerr.SetJSONError(ctx, saveErr)
				return
			}
			req.Attachment = ref
		} else if err != http.ErrMissingFile {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid image upload", err)
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
			return
		}
	}

	view, err := s.Create(ctx, viewer, req)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, view)
}

func (s *Server) saveAttachment(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", cerr.NewError(cerr.Internal, "server error", err)
	}
	return s.attachments.Save(ctx, header.Filename, data)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, ok := account.ViewerFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "not logged in", nil)
		return
	}
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	view, err := s.UpdateFields(ctx, viewer, chi.URLParam(r, "taskID"), req)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, view)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, ok := account.ViewerFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "not logged in", nil)
		return
	}
	if err := s.Delete(ctx, viewer, chi.URLParam(r, "taskID")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]bool{"deleted": true})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, ok := account.ViewerFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "not logged in", nil)
		return
	}
	view, err := s.Complete(ctx, viewer, chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, view)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, ok := account.ViewerFromContext(ctx)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unauthenticated, "not logged in", nil)
		return
	}
	view, err := s.Archive(ctx, viewer, chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, view)
}
