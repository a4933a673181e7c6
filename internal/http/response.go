package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"salterio-site/internal/backend"
	"salterio-site/internal/intake"
)

const (
	MsgAuthFailed     = "Authentication failed"
	MsgInvalidPayload = "Invalid payload"
	MsgInternal       = "Internal server error"
	MsgNotFound       = "Not found"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

// mapError is the single place errors become HTTP statuses. fallback is the
// message shown for server-side failures.
func mapError(err error, fallback string) (int, ErrorResponse) {
	var (
		verr    intake.ValidationError
		confirm intake.ConfirmationError
		aerr    backend.AuthError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorResponse{Message: verr.Message, Field: verr.Field}
	case errors.As(err, &confirm):
		return http.StatusConflict, ErrorResponse{Message: confirm.Prompt, Prompt: confirm.Prompt}
	case errors.As(err, &aerr):
		return http.StatusUnauthorized, ErrorResponse{Message: aerr.Message}
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Message: MsgNotFound}
	case errors.Is(err, backend.ErrObjectExists):
		return http.StatusConflict, ErrorResponse{Message: "Object already exists"}
	}
	if fallback == "" {
		fallback = MsgInternal
	}
	return http.StatusInternalServerError, ErrorResponse{Message: fallback}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, body := mapError(err, fallback)
	if status >= http.StatusInternalServerError {
		s.Log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	WriteJSON(w, status, body)
}

// writeView sends a rendered listing. Read paths carry their inline message
// in the view, so a failed load keeps the view body with an error status.
func (s *Server) writeView(w http.ResponseWriter, r *http.Request, view interface{}, err error) {
	if err != nil {
		status, _ := mapError(err, "")
		if status >= http.StatusInternalServerError {
			s.Log.Error("view load failed", "path", r.URL.Path, "error", err)
		}
		WriteJSON(w, status, view)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(dst)
}
