package httpapi

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"salterio-site/internal/backend"
	"salterio-site/internal/events"
	"salterio-site/internal/gallery"
	"salterio-site/internal/intake"
	"salterio-site/internal/members"

	"github.com/go-chi/chi/v5"
)

const (
	maxGalleryUpload = 100 << 20
	maxMemberUpload  = 20 << 20

	MsgSaveFailed = "Could not save"
)

type DeleteResponse struct {
	ID      string               `json:"id"`
	Cleanup backend.CleanupState `json:"cleanup,omitempty"`
}

func confirmed(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return err == nil && v
}

// Events

func (s *Server) AdminListEvents(w http.ResponseWriter, r *http.Request) {
	upcoming, _ := strconv.ParseBool(r.URL.Query().Get("upcoming"))
	view, err := s.Events.List(r.Context(), upcoming)
	s.writeView(w, r, view, err)
}

func (s *Server) AdminCreateEvent(w http.ResponseWriter, r *http.Request) {
	var form events.Form
	if err := decodeJSON(w, r, &form); err != nil {
		WriteError(w, http.StatusBadRequest, MsgInvalidPayload)
		return
	}
	res, err := s.Events.Create(r.Context(), form)
	if err != nil {
		s.fail(w, r, err, MsgSaveFailed)
		return
	}
	WriteJSON(w, http.StatusCreated, res)
}

func (s *Server) AdminDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Events.Delete(r.Context(), id, confirmed(r)); err != nil {
		s.fail(w, r, err, "")
		return
	}
	WriteJSON(w, http.StatusOK, DeleteResponse{ID: id})
}

// Gallery

type UploadResponse struct {
	gallery.BatchResult
	Progress []string `json:"progress"`
}

func (s *Server) AdminListGallery(w http.ResponseWriter, r *http.Request) {
	view, err := s.GalleryAdmin.List(r.Context(), r.URL.Query().Get("tag"))
	s.writeView(w, r, view, err)
}

func (s *Server) AdminUploadGallery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxGalleryUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteError(w, http.StatusBadRequest, gallery.MsgChooseImage)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	files := make([]gallery.UploadFile, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			s.Log.Warn("multipart part unreadable", "file", h.Filename, "error", err)
			files = append(files, gallery.UploadFile{Name: h.Filename, Err: err})
			continue
		}
		defer f.Close()
		files = append(files, gallery.UploadFile{Name: h.Filename, ContentType: partType(h), Body: f})
	}

	var progress []string
	res, err := s.GalleryAdmin.Upload(r.Context(), gallery.UploadRequest{
		Files:         files,
		CaptionPrefix: r.FormValue("caption"),
		Tag:           r.FormValue("tag"),
	}, func(line string) { progress = append(progress, line) })
	if err != nil {
		s.fail(w, r, err, MsgSaveFailed)
		return
	}
	for _, o := range res.Outcomes {
		s.Metrics.ObserveUpload(string(o.State))
	}
	status := http.StatusCreated
	if res.Done == 0 {
		status = http.StatusBadGateway
	}
	WriteJSON(w, status, UploadResponse{BatchResult: res, Progress: progress})
}

func (s *Server) AdminDeleteGallery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.GalleryAdmin.Delete(r.Context(), id, confirmed(r))
	if state != "" {
		s.Metrics.ObserveCleanup(backend.BucketGallery, state)
	}
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	WriteJSON(w, http.StatusOK, DeleteResponse{ID: id, Cleanup: state})
}

// Members

func (s *Server) AdminListMembers(w http.ResponseWriter, r *http.Request) {
	view, err := s.Members.List(r.Context())
	s.writeView(w, r, view, err)
}

func (s *Server) AdminCreateMember(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMemberUpload)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		WriteError(w, http.StatusBadRequest, MsgInvalidPayload)
		return
	}
	defer r.MultipartForm.RemoveAll()

	sort, err := members.ParseSort(r.FormValue("sort"))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	form := members.Form{
		Name:    r.FormValue("name"),
		Section: r.FormValue("section"),
		Role:    r.FormValue("role"),
		Sort:    sort,
	}
	if file, header, err := r.FormFile("photo"); err == nil {
		defer file.Close()
		if header.Size > 0 {
			form.Photo = &members.Photo{Name: header.Filename, ContentType: partType(header), Body: file}
		}
	}

	m, err := s.Members.Create(r.Context(), form)
	if err != nil {
		s.fail(w, r, err, MsgSaveFailed)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{"member": m, "status": members.MsgSaved})
}

func (s *Server) AdminDeleteMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.Members.Delete(r.Context(), id, confirmed(r))
	if state != "" {
		s.Metrics.ObserveCleanup(backend.BucketMembers, state)
	}
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	WriteJSON(w, http.StatusOK, DeleteResponse{ID: id, Cleanup: state})
}

// Enquiries

func (s *Server) AdminListEnquiries(w http.ResponseWriter, r *http.Request) {
	view, err := s.Enquiries.List(r.Context(), r.URL.Query().Get("filter"))
	s.writeView(w, r, view, err)
}

func (s *Server) AdminMarkHandled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Enquiries.MarkHandled(r.Context(), id); err != nil {
		s.fail(w, r, err, MsgSaveFailed)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"id": id, "status": intake.StatusHandled})
}

func partType(h *multipart.FileHeader) string {
	if ct := h.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
