package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "")
	t.Setenv("GALLERY_PAGE_SIZE", "")
	t.Setenv("PUBLIC_BASE_URL", "")

	cfg := Load()

	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "salterio", cfg.JWTIssuer)
	assert.Equal(t, 12, cfg.GalleryPageSize)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.Equal(t, 4*time.Hour, cfg.AccessTTL())
	assert.Equal(t, cfg.MediaStoragePath, cfg.MetricsDiskPath)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("ADMIN_EMAILS", " admin@salterio.org, ,Choir@Salterio.org ")
	t.Setenv("GALLERY_PAGE_SIZE", "24")
	t.Setenv("PUBLIC_BASE_URL", "https://salterio.example/")
	t.Setenv("FORM_RATE_BURST", "-3")
	t.Setenv("SITE_TIMEZONE", "Europe/London")

	cfg := Load()

	assert.Equal(t, "memory://", cfg.DatabaseURL)
	assert.Equal(t, []string{"admin@salterio.org", "Choir@Salterio.org"}, cfg.AdminEmails)
	assert.Equal(t, 24, cfg.GalleryPageSize)
	assert.Equal(t, "https://salterio.example", cfg.PublicBaseURL)
	assert.Equal(t, 5, cfg.FormRateBurst)
	assert.Equal(t, "Europe/London", cfg.Location().String())
}

func TestLoadPanicsWithoutSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	assert.Panics(t, func() { Load() })
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := Config{SiteTimezone: "Nowhere/Atlantis"}
	assert.Equal(t, time.UTC, cfg.Location())
}
