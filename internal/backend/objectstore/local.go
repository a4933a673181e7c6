// Package objectstore keeps uploaded objects on local disk and serves them
// under public URLs of the form
// {base}/storage/v1/object/public/{bucket}/{key}.
package objectstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"salterio-site/internal/backend"
)

// PublicPrefix is the path every public object URL starts with.
const PublicPrefix = "/storage/v1/object/public/"

const metaDir = ".meta"

type LocalStore struct {
	basePath string
	baseURL  string
}

type objectMeta struct {
	ContentType  string `json:"contentType,omitempty"`
	CacheControl string `json:"cacheControl,omitempty"`
}

func NewLocalStore(basePath, publicBaseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{basePath: basePath, baseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

func (s *LocalStore) Upload(ctx context.Context, bucket, key string, body io.Reader, opts backend.UploadOptions) error {
	if err := ctx.Err(); err != nil {
		return backend.WrapStorage(bucket, key, "upload", err)
	}
	target, err := s.objectPath(bucket, key)
	if err != nil {
		return backend.WrapStorage(bucket, key, "upload", err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return backend.WrapStorage(bucket, key, "upload", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if opts.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(target, flags, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return backend.WrapStorage(bucket, key, "upload", backend.ErrObjectExists)
		}
		return backend.WrapStorage(bucket, key, "upload", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		if cerr := f.Close(); cerr != nil {
			slog.Error("failed to close object after write error", "bucket", bucket, "key", key, "error", cerr)
		}
		if rerr := os.Remove(target); rerr != nil {
			slog.Error("failed to remove object after write error", "bucket", bucket, "key", key, "error", rerr)
		}
		return backend.WrapStorage(bucket, key, "upload", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(target)
		return backend.WrapStorage(bucket, key, "upload", err)
	}

	if opts.ContentType != "" || opts.CacheControl != "" {
		if err := s.writeMeta(bucket, key, objectMeta{ContentType: opts.ContentType, CacheControl: opts.CacheControl}); err != nil {
			slog.Warn("failed to record object metadata", "bucket", bucket, "key", key, "error", err)
		}
	}
	return nil
}

func (s *LocalStore) PublicURL(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + PublicPrefix + bucket + "/" + strings.Join(segments, "/")
}

func (s *LocalStore) KeyFromURL(bucket, raw string) (string, bool) {
	return KeyFromURL(bucket, raw)
}

// KeyFromURL extracts the object key that follows the
// "/object/public/{bucket}/" marker and URL-decodes it. Any URL without the
// marker, or with an undecodable key, yields ok == false.
func KeyFromURL(bucket, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || bucket == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	marker := "/object/public/" + bucket + "/"
	path := u.EscapedPath()
	idx := strings.Index(path, marker)
	if idx < 0 {
		return "", false
	}
	key, err := url.PathUnescape(path[idx+len(marker):])
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

func (s *LocalStore) Remove(ctx context.Context, bucket string, keys []string) error {
	var errs []error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			errs = append(errs, backend.WrapStorage(bucket, key, "remove", err))
			break
		}
		target, err := s.objectPath(bucket, key)
		if err != nil {
			errs = append(errs, backend.WrapStorage(bucket, key, "remove", err))
			continue
		}
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, backend.WrapStorage(bucket, key, "remove", err))
			continue
		}
		if metaPath, err := s.metaPath(bucket, key); err == nil {
			_ = os.Remove(metaPath)
		}
	}
	return errors.Join(errs...)
}

func (s *LocalStore) Open(ctx context.Context, bucket, key string) (io.ReadCloser, backend.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, backend.ObjectInfo{}, backend.WrapStorage(bucket, key, "open", err)
	}
	target, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, backend.ObjectInfo{}, backend.WrapStorage(bucket, key, "open", err)
	}
	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, backend.ObjectInfo{}, backend.WrapStorage(bucket, key, "open", backend.ErrNotFound)
		}
		return nil, backend.ObjectInfo{}, backend.WrapStorage(bucket, key, "open", err)
	}
	st, err := f.Stat()
	if err != nil || st.IsDir() {
		_ = f.Close()
		return nil, backend.ObjectInfo{}, backend.WrapStorage(bucket, key, "open", backend.ErrNotFound)
	}

	meta := s.readMeta(bucket, key)
	info := backend.ObjectInfo{
		Size:         st.Size(),
		ContentType:  meta.ContentType,
		ModifiedAt:   st.ModTime(),
		CacheControl: meta.CacheControl,
	}
	if info.ContentType == "" {
		info.ContentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(key)))
	}
	if info.ContentType == "" {
		info.ContentType = "application/octet-stream"
	}
	return f, info, nil
}

func (s *LocalStore) objectPath(bucket, key string) (string, error) {
	if err := validateBucket(bucket); err != nil {
		return "", err
	}
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", backend.ErrInvalidKey
	}
	return safeJoin(filepath.Join(s.basePath, bucket), key)
}

func (s *LocalStore) metaPath(bucket, key string) (string, error) {
	if err := validateBucket(bucket); err != nil {
		return "", err
	}
	return safeJoin(filepath.Join(s.basePath, metaDir, bucket), key+".json")
}

func (s *LocalStore) writeMeta(bucket, key string, meta objectMeta) error {
	path, err := s.metaPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0644)
}

func (s *LocalStore) readMeta(bucket, key string) objectMeta {
	var meta objectMeta
	path, err := s.metaPath(bucket, key)
	if err != nil {
		return meta
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return meta
	}
	_ = json.Unmarshal(raw, &meta)
	return meta
}

// safeJoin resolves key relative to base and rejects directory traversal.
func safeJoin(base, key string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(base, filepath.FromSlash(key)))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path traversal attempt", backend.ErrInvalidKey)
	}
	return absPath, nil
}

func validateBucket(bucket string) error {
	if bucket == "" {
		return fmt.Errorf("%w: empty bucket", backend.ErrInvalidKey)
	}
	for _, r := range bucket {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
		if !ok {
			return fmt.Errorf("%w: bucket %q", backend.ErrInvalidKey, bucket)
		}
	}
	return nil
}
