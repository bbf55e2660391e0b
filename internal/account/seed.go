package account

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/gardenops/grounds/pkg/cerr"
)

// SeedAccount is one entry of a bootstrap file. Without at least one
// seeded admin there is no way to create further accounts.
type SeedAccount struct {
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	Role        string `yaml:"role"`
	DisplayName string `yaml:"display_name"`
}

type seedFile struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

func LoadSeedFile(path string) ([]SeedAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return f.Accounts, nil
}

// Seed creates the listed accounts, skipping usernames that already
// exist. Returns the number of accounts created.
func Seed(ctx context.Context, repo Repository, seeds []SeedAccount) (int, error) {
	created := 0
	for _, seed := range seeds {
		if seed.Username == "" || seed.Password == "" {
			return created, fmt.Errorf("seed account needs username and password")
		}
		role, err := ParseRole(seed.Role)
		if err != nil {
			return created, fmt.Errorf("seed account %s: %w", seed.Username, err)
		}

		_, err = repo.FindByUsername(ctx, seed.Username)
		if err == nil {
			continue
		}
		if !cerr.IsCode(err, cerr.NotFound) {
			return created, err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
		if err != nil {
			return created, fmt.Errorf("failed to hash password for %s: %w", seed.Username, err)
		}
		now := time.Now()
		a := &Account{
			ID:           ulid.Make().String(),
			Username:     seed.Username,
			PasswordHash: string(hash),
			Role:         role,
			DisplayName:  seed.DisplayName,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := repo.Create(ctx, a); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
