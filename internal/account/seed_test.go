package account

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `accounts:
  - username: head-gardener
    password: changeme
    role: admin
    display_name: Head Gardener
  - username: alice
    password: changeme
    role: staff
    display_name: Alice
`

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSeedFile(t *testing.T) {
	seeds, err := LoadSeedFile(writeSeedFile(t, seedYAML))
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.Equal(t, "head-gardener", seeds[0].Username)
	assert.Equal(t, "admin", seeds[0].Role)
	assert.Equal(t, "Alice", seeds[1].DisplayName)
}

func TestLoadSeedFileMissing(t *testing.T) {
	_, err := LoadSeedFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSeedCreatesAccounts(t *testing.T) {
	repo := newMemRepo()
	ctx := context.Background()

	seeds, err := LoadSeedFile(writeSeedFile(t, seedYAML))
	require.NoError(t, err)

	created, err := Seed(ctx, repo, seeds)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	a, err := repo.FindByUsername(ctx, "head-gardener")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, a.Role)
	assert.NotEqual(t, "changeme", a.PasswordHash)

	// The legacy staff role maps to generic.
	a, err = repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, RoleGeneric, a.Role)

	// Seeding again is a no-op for existing usernames.
	created, err = Seed(ctx, repo, seeds)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestSeedRejectsInvalidEntries(t *testing.T) {
	repo := newMemRepo()
	ctx := context.Background()

	_, err := Seed(ctx, repo, []SeedAccount{{Username: "x", Password: "", Role: "admin"}})
	assert.Error(t, err)

	_, err = Seed(ctx, repo, []SeedAccount{{Username: "x", Password: "pw", Role: "emperor"}})
	assert.Error(t, err)
}
