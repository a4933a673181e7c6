package httpapi

import (
	"net/http"
	"strconv"

	"salterio-site/internal/ops"

	"github.com/gorilla/websocket"
)

type OpsHistoryResponse struct {
	Items []ops.Sample `json:"items"`
}

func (s *Server) OpsHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = 120
	}
	items, err := s.Ops.History(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	WriteJSON(w, http.StatusOK, OpsHistoryResponse{Items: items})
}

// OpsSocket streams samples to an admin. Browsers cannot set headers on a
// websocket, so the access token arrives as a query parameter.
func (s *Server) OpsSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		WriteError(w, http.StatusUnauthorized, MsgAuthFailed)
		return
	}
	user, err := s.Identity.CurrentUser(r.Context(), token)
	if err != nil || user == nil {
		WriteError(w, http.StatusUnauthorized, MsgAuthFailed)
		return
	}
	if !s.Gate.IsAdmin(user.Email) {
		WriteError(w, http.StatusForbidden, "Not allowed")
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.Hub.Add(conn)
	defer func() {
		s.Hub.Remove(conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
