package httpapi

import (
	"net/http"

	"salterio-site/internal/authgate"
	"salterio-site/internal/backend"
)

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type UserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type TokenResponse struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	ExpiresAt    int64         `json:"expiresAt"`
	User         UserDTO       `json:"user"`
	Gate         authgate.View `json:"gate"`
}

type CurrentUserResponse struct {
	User UserDTO       `json:"user"`
	Gate authgate.View `json:"gate"`
}

func (s *Server) tokenResponse(sess backend.Session) TokenResponse {
	user := sess.User
	return TokenResponse{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.ExpiresAt,
		User:         UserDTO{ID: user.ID, Email: user.Email},
		Gate:         s.Gate.Evaluate(&user),
	}
}

func (s *Server) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, MsgInvalidPayload)
		return
	}
	sess, err := s.Identity.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	WriteJSON(w, http.StatusOK, s.tokenResponse(sess))
}

func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		WriteError(w, http.StatusBadRequest, MsgInvalidPayload)
		return
	}
	sess, err := s.Identity.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	WriteJSON(w, http.StatusOK, s.tokenResponse(sess))
}

func (s *Server) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.Identity.SignOut(r.Context(), bearerToken(r)); err != nil {
		s.fail(w, r, err, "")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"signedOut": true})
}

func (s *Server) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	WriteJSON(w, http.StatusOK, CurrentUserResponse{
		User: UserDTO{ID: user.ID, Email: user.Email},
		Gate: s.Gate.Evaluate(user),
	})
}

// GateView answers for signed-out callers too, with every panel hidden.
func (s *Server) GateView(w http.ResponseWriter, r *http.Request) {
	view, err := s.Gate.Resolve(r.Context(), s.Identity, bearerToken(r))
	if err != nil {
		s.Log.Warn("gate lookup failed", "error", err)
	}
	WriteJSON(w, http.StatusOK, view)
}
