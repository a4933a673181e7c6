package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"salterio-site/internal/backend"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir(), "http://localhost:8080/")
	require.NoError(t, err)
	return s
}

func TestUploadAndOpen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	data := []byte("fake jpeg data")

	err := s.Upload(ctx, backend.BucketGallery, "2026-03/1_abc123_choir.jpg", bytes.NewReader(data),
		backend.UploadOptions{ContentType: "image/jpeg", CacheControl: "3600"})
	require.NoError(t, err)

	rc, info, err := s.Open(ctx, backend.BucketGallery, "2026-03/1_abc123_choir.jpg")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, int64(len(data)), info.Size)
	assert.Equal(t, "image/jpeg", info.ContentType)
	assert.Equal(t, "3600", info.CacheControl)
}

func TestUploadWithoutOverwriteRejectsExistingKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, backend.BucketMembers, "a.png", bytes.NewReader([]byte("one")), backend.UploadOptions{}))
	err := s.Upload(ctx, backend.BucketMembers, "a.png", bytes.NewReader([]byte("two")), backend.UploadOptions{})
	assert.True(t, errors.Is(err, backend.ErrObjectExists))

	var serr *backend.StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "a.png", serr.Key)

	require.NoError(t, s.Upload(ctx, backend.BucketMembers, "a.png", bytes.NewReader([]byte("two")), backend.UploadOptions{Overwrite: true}))
	rc, info, err := s.Open(ctx, backend.BucketMembers, "a.png")
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "two", string(got))
	assert.Equal(t, "image/png", info.ContentType)
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, backend.BucketGallery, "x/y.jpg", bytes.NewReader([]byte("data")), backend.UploadOptions{}))
	require.NoError(t, s.Remove(ctx, backend.BucketGallery, []string{"x/y.jpg", "missing.jpg"}))

	_, _, err := s.Open(ctx, backend.BucketGallery, "x/y.jpg")
	assert.True(t, errors.Is(err, backend.ErrNotFound))
}

func TestPathTraversalIsRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Upload(ctx, backend.BucketGallery, "../../etc/passwd", bytes.NewReader(nil), backend.UploadOptions{})
	assert.True(t, errors.Is(err, backend.ErrInvalidKey))

	_, _, err = s.Open(ctx, "../gallery", "a.jpg")
	assert.True(t, errors.Is(err, backend.ErrInvalidKey))
}

func TestPublicURLRoundTrip(t *testing.T) {
	s := newTestStore(t)

	key := "2026-03/1709280000000_ab12cd_Grace Mwale.jpg"
	u := s.PublicURL(backend.BucketMembers, key)
	assert.Equal(t, "http://localhost:8080/storage/v1/object/public/members/2026-03/1709280000000_ab12cd_Grace%20Mwale.jpg", u)

	got, ok := s.KeyFromURL(backend.BucketMembers, u)
	require.True(t, ok)
	assert.Equal(t, key, got)
}

func TestKeyFromURLFailures(t *testing.T) {
	tests := []struct {
		name   string
		bucket string
		url    string
	}{
		{"empty", backend.BucketMembers, ""},
		{"other bucket", backend.BucketMembers, "http://h/storage/v1/object/public/gallery/a.jpg"},
		{"no marker", backend.BucketMembers, "https://cdn.example.com/photos/a.jpg"},
		{"nothing after marker", backend.BucketMembers, "http://h/storage/v1/object/public/members/"},
		{"unparseable", backend.BucketMembers, "http://[::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := KeyFromURL(tt.bucket, tt.url)
			assert.False(t, ok)
		})
	}
}
