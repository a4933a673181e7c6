package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salterio-site/internal/authgate"
	"salterio-site/internal/backend"
	"salterio-site/internal/backend/identity"
	"salterio-site/internal/backend/memstore"
	"salterio-site/internal/backend/objectstore"
	"salterio-site/internal/backend/sqlstore"
	"salterio-site/internal/config"
	"salterio-site/internal/db"
	httpapi "salterio-site/internal/http"
	"salterio-site/internal/logging"
	"salterio-site/internal/migrations"
	"salterio-site/internal/ops"
	"salterio-site/internal/site"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, closeLogs, err := logging.New(cfg.LogLevel, cfg.LogDir, cfg.LogRetentionDays)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer closeLogs()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rows, closeRows, err := openRows(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("row store", "error", err)
		os.Exit(1)
	}
	defer closeRows()

	objects, err := objectstore.NewLocalStore(cfg.MediaStoragePath, cfg.PublicBaseURL)
	if err != nil {
		logger.Error("object store", "error", err)
		os.Exit(1)
	}

	ident := identity.New(rows, identity.TokenService{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
	})

	content, err := site.Load(cfg.ContentFile)
	if err != nil {
		logger.Error("site content", "error", err)
		os.Exit(1)
	}
	if err := content.SelfCheck(); err != nil {
		logger.Warn("site content self-check", "error", err)
	}

	gate := authgate.New(cfg.AdminEmails)
	metrics := httpapi.NewMetrics()
	ident.OnAuthStateChange(func(event backend.AuthEvent, user *backend.User) {
		email := ""
		if user != nil {
			email = user.Email
		}
		logger.Info("auth state changed", "event", event, "email", email)
	})
	ident.OnAuthStateChange(metrics.AuthListener)
	ident.OnAuthStateChange(gate.HandleAuthEvent)

	hub := ops.NewHub(logger)
	go hub.Run(ctx)

	server, err := httpapi.NewServer(cfg, httpapi.Deps{
		Identity: ident,
		Rows:     rows,
		Objects:  objects,
		Gate:     gate,
		Content:  content,
		Hub:      hub,
		Metrics:  metrics,
		Log:      logger,
	})
	if err != nil {
		logger.Error("server", "error", err)
		os.Exit(1)
	}
	go server.Ops.Run(ctx, time.Duration(cfg.MetricsSampleSeconds)*time.Second, hub.Broadcast)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
	logger.Info("shutdown complete")
}

// openRows picks the row store for dsn. SQL stores are migrated before use.
func openRows(ctx context.Context, dsn string, logger *slog.Logger) (backend.RowStore, func(), error) {
	if db.IsMemory(dsn) {
		logger.Warn("using in-memory row store; data is lost on restart")
		return memstore.New(), func() {}, nil
	}
	conn, err := db.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.Apply(conn); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return sqlstore.New(conn), func() { _ = conn.Close() }, nil
}
