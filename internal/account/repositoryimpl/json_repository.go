package repositoryimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gardenops/grounds/internal/account"
	"github.com/gardenops/grounds/pkg/cerr"
	"github.com/gardenops/grounds/pkg/storage"
)

const accountsPrefix = "accounts"

// JSONRepository persists one JSON document per account. ULID ids sort by
// creation time, so listing by path yields insertion order.
type JSONRepository struct {
	storage storage.Storage
}

func NewJSONRepository(s storage.Storage) *JSONRepository {
	return &JSONRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.json", accountsPrefix, id)
}

func (r *JSONRepository) Create(ctx context.Context, a *account.Account) error {
	exists, err := r.storage.Exists(ctx, path(a.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("account", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "account already exists", nil)
	}
	return r.write(ctx, a)
}

func (r *JSONRepository) Get(ctx context.Context, id string) (*account.Account, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("account", err)
	}
	var a account.Account
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal account: %w", err))
	}
	return &a, nil
}

func (r *JSONRepository) FindByUsername(ctx context.Context, username string) (*account.Account, error) {
	accounts, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, "account not found", nil)
}

func (r *JSONRepository) List(ctx context.Context) ([]*account.Account, error) {
	paths, err := r.storage.List(ctx, accountsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("accounts", err)
	}

	sort.Strings(paths)

	var all []*account.Account
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			return nil, cerr.WrapStorageReadError("account", err)
		}
		var a account.Account
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal account %s: %w", p, err))
		}
		all = append(all, &a)
	}
	return all, nil
}

func (r *JSONRepository) Update(ctx context.Context, a *account.Account) error {
	exists, err := r.storage.Exists(ctx, path(a.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("account", err)
	}
	if !exists {
		return cerr.NewError(cerr.NotFound, "account not found", nil)
	}
	return r.write(ctx, a)
}

func (r *JSONRepository) Delete(ctx context.Context, id string) error {
	if err := r.storage.Delete(ctx, path(id)); err != nil {
		return cerr.WrapStorageDeleteError("account", err)
	}
	return nil
}

func (r *JSONRepository) write(ctx context.Context, a *account.Account) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal account: %w", err))
	}
	if err := r.storage.Write(ctx, path(a.ID), data); err != nil {
		return cerr.WrapStorageWriteError("account", err)
	}
	return nil
}
