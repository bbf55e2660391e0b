package attachment

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardenops/grounds/pkg/cerr"
	"github.com/gardenops/grounds/pkg/storage"
)

type memStorage struct {
	files map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{files: map[string][]byte{}}
}

func (s *memStorage) Read(_ context.Context, path string) ([]byte, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (s *memStorage) Write(_ context.Context, path string, data []byte) error {
	s.files[path] = data
	return nil
}

func (s *memStorage) Delete(_ context.Context, path string) error {
	if _, ok := s.files[path]; !ok {
		return storage.ErrNotFound
	}
	delete(s.files, path)
	return nil
}

func (s *memStorage) List(_ context.Context, prefix string) ([]string, error) {
	var paths []string
	for p := range s.files {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func (s *memStorage) Exists(_ context.Context, path string) (bool, error) {
	_, ok := s.files[path]
	return ok, nil
}

var (
	pngData  = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	jpegData = append([]byte("\xff\xd8\xff\xe0"), make([]byte, 64)...)
	gifData  = append([]byte("GIF89a"), make([]byte, 64)...)
)

func TestSaveAcceptedFormats(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantExt string
	}{
		{"png", pngData, ".png"},
		{"jpeg", jpegData, ".jpg"},
		{"gif", gifData, ".gif"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(newMemStorage())
			ref, err := store.Save(context.Background(), "photo.bin", tt.data)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(ref, "/uploads/"), "ref %q", ref)
			assert.True(t, strings.HasSuffix(ref, tt.wantExt), "ref %q", ref)

			got, err := store.Load(context.Background(), ref)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tt.data, got))
		})
	}
}

func TestSaveRejectsNonImages(t *testing.T) {
	store := NewStore(newMemStorage())

	_, err := store.Save(context.Background(), "notes.txt", []byte("hello, not an image"))
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "got %v", err)
}

func TestSaveRejectsOversizedUpload(t *testing.T) {
	store := NewStore(newMemStorage())

	big := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, MaxBytes)...)
	_, err := store.Save(context.Background(), "huge.png", big)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "got %v", err)
}

func TestSaveRejectsEmptyUpload(t *testing.T) {
	store := NewStore(newMemStorage())

	_, err := store.Save(context.Background(), "empty.png", nil)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}

func TestLoadMissing(t *testing.T) {
	store := NewStore(newMemStorage())

	_, err := store.Load(context.Background(), "/uploads/nope.png")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound), "got %v", err)
}
