package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"salterio-site/internal/gallery"
	"salterio-site/internal/intake"
	"salterio-site/internal/site"
)

const themeCookieMaxAge = 365 * 24 * time.Hour

type MessageResponse struct {
	Message string `json:"message"`
}

func themeFrom(r *http.Request) string {
	if c, err := r.Cookie(site.ThemeCookie); err == nil {
		return site.ParseTheme(c.Value)
	}
	return site.ThemeLight
}

func (s *Server) SitePage(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, site.BuildPage(s.Content, themeFrom(r), s.Now()))
}

func (s *Server) GetTheme(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, site.Theme(themeFrom(r)))
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}

// PutTheme stores the requested theme, or toggles the current one when the
// body names none.
func (s *Server) PutTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, MsgInvalidPayload)
			return
		}
	}
	theme := site.ToggleTheme(themeFrom(r))
	if req.Theme != "" {
		theme = site.ParseTheme(req.Theme)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     site.ThemeCookie,
		Value:    theme,
		Path:     "/",
		MaxAge:   int(themeCookieMaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
		HttpOnly: false,
	})
	WriteJSON(w, http.StatusOK, site.Theme(theme))
}

func (s *Server) RepertoireView(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, site.Repertoire(s.Content.Repertoire, r.URL.Query().Get("category")))
}

func (s *Server) PublicGallery(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 0 {
		page = 0
	}
	state := s.GalleryViewer.Open(r.Context(), r.URL.Query().Get("tag"), page)
	WriteJSON(w, http.StatusOK, state.Snapshot())
}

type GalleryViewRequest struct {
	State   gallery.State   `json:"state"`
	Command gallery.Command `json:"command"`
}

// PublicGalleryView applies one user command to a state the client holds.
func (s *Server) PublicGalleryView(w http.ResponseWriter, r *http.Request) {
	req := GalleryViewRequest{State: s.GalleryViewer.NewState()}
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, MsgInvalidPayload)
		return
	}
	event, err := req.Command.Event()
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	state := req.State
	state.PageSize = s.Config.GalleryPageSize
	state = s.GalleryViewer.Dispatch(r.Context(), state, event)
	WriteJSON(w, http.StatusOK, state.Snapshot())
}

func (s *Server) PublicEvents(w http.ResponseWriter, r *http.Request) {
	view, err := s.Events.Upcoming(r.Context())
	s.writeView(w, r, view, err)
}

func (s *Server) PublicMembers(w http.ResponseWriter, r *http.Request) {
	view, err := s.Members.List(r.Context())
	s.writeView(w, r, view, err)
}

func (s *Server) SubmitEnquiry(w http.ResponseWriter, r *http.Request) {
	var form intake.EnquiryForm
	if err := decodeJSON(w, r, &form); err != nil {
		WriteError(w, http.StatusBadRequest, MsgInvalidPayload)
		return
	}
	msg, err := s.Intake.SubmitEnquiry(r.Context(), form)
	if err != nil {
		s.fail(w, r, err, "Sorry, something went wrong. Please try again.")
		return
	}
	WriteJSON(w, http.StatusCreated, MessageResponse{Message: msg})
}

func (s *Server) Subscribe(w http.ResponseWriter, r *http.Request) {
	var form intake.SubscribeForm
	if err := decodeJSON(w, r, &form); err != nil {
		WriteError(w, http.StatusBadRequest, MsgInvalidPayload)
		return
	}
	msg, err := s.Intake.Subscribe(r.Context(), form)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	WriteJSON(w, http.StatusOK, MessageResponse{Message: msg})
}
