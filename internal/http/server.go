package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"salterio-site/internal/authgate"
	"salterio-site/internal/backend"
	"salterio-site/internal/config"
	"salterio-site/internal/enquiries"
	"salterio-site/internal/events"
	"salterio-site/internal/gallery"
	"salterio-site/internal/intake"
	"salterio-site/internal/members"
	"salterio-site/internal/ops"
	"salterio-site/internal/site"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps are the capabilities the server is built over.
type Deps struct {
	Identity backend.Identity
	Rows     backend.RowStore
	Objects  backend.ObjectStore
	Gate     *authgate.Gate
	Content  *site.Content
	Hub      *ops.Hub
	Metrics  *Metrics
	Log      *slog.Logger
}

type Server struct {
	Config   config.Config
	Log      *slog.Logger
	Identity backend.Identity
	Objects  backend.ObjectStore
	Gate     *authgate.Gate
	Content  *site.Content
	Hub      *ops.Hub
	Metrics  *Metrics

	GalleryViewer *gallery.Viewer
	GalleryAdmin  *gallery.Admin
	Events        *events.Service
	Members       *members.Service
	Enquiries     *enquiries.Service
	Intake        *intake.Service
	Ops           *ops.Collector

	Now func() time.Time

	formLimiter *IPRateLimiter
}

func NewServer(cfg config.Config, d Deps) (*Server, error) {
	if d.Identity == nil || d.Rows == nil || d.Objects == nil {
		return nil, fmt.Errorf("httpapi: identity, row store and object store are required")
	}
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	content := d.Content
	if content == nil {
		var err error
		if content, err = site.Load(cfg.ContentFile); err != nil {
			return nil, err
		}
	}
	gate := d.Gate
	if gate == nil {
		gate = authgate.New(cfg.AdminEmails)
	}
	hub := d.Hub
	if hub == nil {
		hub = ops.NewHub(log)
	}
	metrics := d.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	loc := cfg.Location()

	return &Server{
		Config:   cfg,
		Log:      log,
		Identity: d.Identity,
		Objects:  d.Objects,
		Gate:     gate,
		Content:  content,
		Hub:      hub,
		Metrics:  metrics,

		GalleryViewer: gallery.NewViewer(d.Rows, cfg.GalleryPageSize, log),
		GalleryAdmin:  gallery.NewAdmin(d.Rows, d.Objects, log),
		Events:        events.NewService(d.Rows, loc, log),
		Members:       members.NewService(d.Rows, d.Objects, log),
		Enquiries:     enquiries.NewService(d.Rows, loc, log),
		Intake:        intake.NewService(d.Rows, log),
		Ops:           ops.NewCollector(d.Rows, cfg.MetricsDiskPath, log),

		Now: time.Now,

		formLimiter: NewIPRateLimiter(rate.Limit(float64(cfg.FormRatePerMinute)/60.0), cfg.FormRateBurst),
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.Log, s.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders)
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", s.Health)
	r.Handle("/metrics", s.Metrics.Handler())
	r.Get(objectRoute, s.ServeObject)
	r.Get("/ws/ops", s.OpsSocket)

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/sign-in", s.SignIn)
			auth.Post("/refresh", s.Refresh)
			auth.Post("/sign-out", s.SignOut)
			auth.With(WithAuth(s.Identity)).Get("/user", s.CurrentUser)
		})

		api.Get("/admin/gate", s.GateView)
		api.Route("/admin", func(admin chi.Router) {
			admin.Use(WithAuth(s.Identity))
			admin.Use(RequireAdmin(s.Gate))

			admin.Get("/events", s.AdminListEvents)
			admin.Post("/events", s.AdminCreateEvent)
			admin.Delete("/events/{id}", s.AdminDeleteEvent)

			admin.Get("/gallery", s.AdminListGallery)
			admin.Post("/gallery", s.AdminUploadGallery)
			admin.Delete("/gallery/{id}", s.AdminDeleteGallery)

			admin.Get("/members", s.AdminListMembers)
			admin.Post("/members", s.AdminCreateMember)
			admin.Delete("/members/{id}", s.AdminDeleteMember)

			admin.Get("/enquiries", s.AdminListEnquiries)
			admin.Post("/enquiries/{id}/handled", s.AdminMarkHandled)

			admin.Get("/ops/history", s.OpsHistory)
		})

		api.Route("/public", func(pub chi.Router) {
			pub.Get("/site", s.SitePage)
			pub.Get("/theme", s.GetTheme)
			pub.Put("/theme", s.PutTheme)
			pub.Get("/repertoire", s.RepertoireView)
			pub.Get("/gallery", s.PublicGallery)
			pub.Post("/gallery/view", s.PublicGalleryView)
			pub.Get("/events", s.PublicEvents)
			pub.Get("/members", s.PublicMembers)

			pub.Group(func(forms chi.Router) {
				forms.Use(RateLimit(s.formLimiter))
				forms.Post("/enquiries", s.SubmitEnquiry)
				forms.Post("/newsletter", s.Subscribe)
			})
		})
	})
	return r
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
