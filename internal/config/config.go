package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config holds runtime configuration loaded from environment variables. It
// is built once at startup and handed to each component.
type Config struct {
	DatabaseURL          string
	JWTSecret            string
	JWTIssuer            string
	AccessTTLSeconds     int64
	RefreshTTLSeconds    int64
	MediaStoragePath     string
	PublicBaseURL        string
	AdminEmails          []string
	CorsOrigins          []string
	GalleryPageSize      int
	SiteTimezone         string
	ContentFile          string
	FormRatePerMinute    int
	FormRateBurst        int
	MetricsDiskPath      string
	MetricsSampleSeconds int
	LogDir               string
	LogLevel             string
	LogRetentionDays     int
	Port                 string
}

func Load() Config {
	media := envOr("MEDIA_STORAGE_PATH", "storage/media")
	port := envOr("PORT", "8080")
	return Config{
		DatabaseURL:          envOr("DATABASE_URL", "sqlite://storage/salterio.db"),
		JWTSecret:            mustEnv("JWT_SECRET"),
		JWTIssuer:            envOr("JWT_ISSUER", "salterio"),
		AccessTTLSeconds:     int64(envOrInt("ACCESS_TTL_SECONDS", 14400)),
		RefreshTTLSeconds:    int64(envOrInt("REFRESH_TTL_SECONDS", 1209600)),
		MediaStoragePath:     media,
		PublicBaseURL:        strings.TrimRight(envOr("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		AdminEmails:          parseCSV(envOr("ADMIN_EMAILS", "")),
		CorsOrigins:          parseCSV(envOr("CORS_ORIGINS", "")),
		GalleryPageSize:      positive(envOrInt("GALLERY_PAGE_SIZE", 12), 12),
		SiteTimezone:         envOr("SITE_TIMEZONE", "Africa/Lusaka"),
		ContentFile:          envOr("CONTENT_FILE", ""),
		FormRatePerMinute:    positive(envOrInt("FORM_RATE_PER_MINUTE", 10), 10),
		FormRateBurst:        positive(envOrInt("FORM_RATE_BURST", 5), 5),
		MetricsDiskPath:      envOr("METRICS_DISK_PATH", media),
		MetricsSampleSeconds: positive(envOrInt("METRICS_SAMPLE_INTERVAL", 5), 5),
		LogDir:               envOr("LOG_DIR", "storage/logs"),
		LogLevel:             envOr("LOG_LEVEL", "info"),
		LogRetentionDays:     envOrInt("LOG_RETENTION_DAYS", 7),
		Port:                 port,
	}
}

// Location resolves SiteTimezone, falling back to UTC when the zone is
// unknown to the host.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SiteTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLSeconds) * time.Second
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLSeconds) * time.Second
}

func mustEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		panic("missing env var: " + key)
	}
	return value
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func positive(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
