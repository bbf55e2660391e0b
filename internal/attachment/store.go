// Package attachment stores task images and hands back an opaque
// reference string. Only common image formats are accepted, bounded in
// size; the content type is sniffed from the payload rather than trusted
// from the upload.
package attachment

import (
	"context"
	"fmt"
	"net/http"

	"github.com/oklog/ulid/v2"

	"github.com/gardenops/grounds/pkg/cerr"
	"github.com/gardenops/grounds/pkg/storage"
)

const (
	uploadsPrefix = "uploads"

	// MaxBytes is the upper bound for a single image upload.
	MaxBytes = 5 << 20
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

type Store struct {
	storage storage.Storage
}

func NewStore(s storage.Storage) *Store {
	return &Store{storage: s}
}

// Save validates and stores an uploaded image, returning its reference.
// The filename is only used for logging context; the stored name is a
// fresh ULID with an extension derived from the sniffed content type.
func (s *Store) Save(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", cerr.NewError(cerr.InvalidArgument, "empty upload", nil)
	}
	if len(data) > MaxBytes {
		return "", cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("upload exceeds %d bytes", MaxBytes), nil)
	}
	contentType := http.DetectContentType(data)
	ext, ok := extensions[contentType]
	if !ok {
		return "", cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("unsupported content type %s, want jpeg/png/gif", contentType), nil)
	}

	path := fmt.Sprintf("%s/%s%s", uploadsPrefix, ulid.Make().String(), ext)
	if err := s.storage.Write(ctx, path, data); err != nil {
		return "", cerr.WrapStorageWriteError(fmt.Sprintf("attachment %s", filename), err)
	}
	return "/" + path, nil
}

// Load reads a stored attachment back by its reference.
func (s *Store) Load(ctx context.Context, ref string) ([]byte, error) {
	data, err := s.storage.Read(ctx, ref[1:])
	if err != nil {
		return nil, cerr.WrapStorageReadError("attachment", err)
	}
	return data, nil
}
