package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"salterio-site/internal/backend"
	"salterio-site/internal/backend/objectstore"

	"github.com/go-chi/chi/v5"
)

const objectRoute = objectstore.PublicPrefix + "{bucket}/*"

// ServeObject serves a stored object at its public URL. "?download" turns
// the response into an attachment.
func (s *Server) ServeObject(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	key, ok := s.Objects.KeyFromURL(bucket, r.URL.String())
	if !ok {
		WriteError(w, http.StatusNotFound, MsgNotFound)
		return
	}
	body, info, err := s.Objects.Open(r.Context(), bucket, key)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) || errors.Is(err, backend.ErrInvalidKey) {
			WriteError(w, http.StatusNotFound, MsgNotFound)
			return
		}
		s.fail(w, r, err, "")
		return
	}
	defer body.Close()

	h := w.Header()
	h.Set("Content-Type", info.ContentType)
	if info.CacheControl != "" {
		if secs, err := strconv.Atoi(info.CacheControl); err == nil {
			h.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", secs))
		} else {
			h.Set("Cache-Control", info.CacheControl)
		}
	}
	if _, download := r.URL.Query()["download"]; download {
		h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	}

	if rs, ok := body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, path.Base(key), info.ModifiedAt, rs)
		return
	}
	h.Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
