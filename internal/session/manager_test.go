package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardenops/grounds/internal/account"
)

func TestCreateResolve(t *testing.T) {
	m := NewManager(time.Hour)

	viewer := account.Viewer{AccountID: "u1", Role: account.RoleGeneric}
	token := m.Create(viewer)
	require.NotEmpty(t, token)

	got, ok := m.Resolve(token)
	require.True(t, ok)
	assert.Equal(t, viewer, got)

	_, ok = m.Resolve("bogus")
	assert.False(t, ok)
}

func TestResolveExpired(t *testing.T) {
	m := NewManager(time.Hour)
	now := time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	token := m.Create(account.Viewer{AccountID: "u1", Role: account.RoleGeneric})

	now = now.Add(2 * time.Hour)
	_, ok := m.Resolve(token)
	assert.False(t, ok)

	// The expired session is gone for good, even if the clock rolls back.
	now = now.Add(-2 * time.Hour)
	_, ok = m.Resolve(token)
	assert.False(t, ok)
}

func TestDestroy(t *testing.T) {
	m := NewManager(time.Hour)

	token := m.Create(account.Viewer{AccountID: "u1", Role: account.RoleGeneric})
	m.Destroy(token)

	_, ok := m.Resolve(token)
	assert.False(t, ok)
}

func TestDestroyAccount(t *testing.T) {
	m := NewManager(time.Hour)

	t1 := m.Create(account.Viewer{AccountID: "u1", Role: account.RoleGeneric})
	t2 := m.Create(account.Viewer{AccountID: "u1", Role: account.RoleGeneric})
	t3 := m.Create(account.Viewer{AccountID: "u2", Role: account.RoleManager})

	m.DestroyAccount("u1")

	_, ok := m.Resolve(t1)
	assert.False(t, ok)
	_, ok = m.Resolve(t2)
	assert.False(t, ok)
	_, ok = m.Resolve(t3)
	assert.True(t, ok)
}
