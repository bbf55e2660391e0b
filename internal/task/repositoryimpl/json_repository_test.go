package repositoryimpl

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardenops/grounds/internal/season"
	"github.com/gardenops/grounds/internal/task"
	"github.com/gardenops/grounds/pkg/cerr"
	"github.com/gardenops/grounds/pkg/storage"
)

func newTestRepo(t *testing.T) *JSONRepository {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewJSONRepository(store)
}

func newTask(title string) *task.Task {
	now := time.Now()
	return &task.Task{
		ID:        ulid.Make().String(),
		Title:     title,
		Category:  task.CategoryLawnCare,
		DueDate:   time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC),
		Season:    season.Spring,
		Urgency:   task.UrgencyNormal,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateGetRoundtrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := newTask("Mow lawn")
	created.AssigneeID = "u1"
	require.NoError(t, repo.Create(ctx, created))

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.Category, got.Category)
	assert.Equal(t, created.AssigneeID, got.AssigneeID)
	assert.Equal(t, created.Season, got.Season)
	assert.True(t, created.DueDate.Equal(got.DueDate))
}

func TestCreateExistingFails(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := newTask("Mow lawn")
	require.NoError(t, repo.Create(ctx, created))
	err := repo.Create(ctx, created)
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists), "got %v", err)
}

func TestGetMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), ulid.Make().String())
	assert.True(t, cerr.IsCode(err, cerr.NotFound), "got %v", err)
}

func TestListPreservesInsertionOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var want []string
	for _, title := range []string{"first", "second", "third"} {
		created := newTask(title)
		require.NoError(t, repo.Create(ctx, created))
		want = append(want, created.ID)
	}

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, id := range want {
		assert.Equal(t, id, got[i].ID)
	}
}

func TestUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := newTask("Mow lawn")
	require.NoError(t, repo.Create(ctx, created))

	created.Completed = true
	require.NoError(t, repo.Update(ctx, created))

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)

	missing := newTask("ghost")
	err = repo.Update(ctx, missing)
	assert.True(t, cerr.IsCode(err, cerr.NotFound), "got %v", err)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := newTask("Mow lawn")
	require.NoError(t, repo.Create(ctx, created))
	require.NoError(t, repo.Delete(ctx, created.ID))

	_, err := repo.Get(ctx, created.ID)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	err = repo.Delete(ctx, created.ID)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}
