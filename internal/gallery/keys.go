package gallery

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	unsafeRun    = regexp.MustCompile(`[^A-Za-z0-9_.\-]+`)
	lastExt      = regexp.MustCompile(`\.[^.]+$`)
	unsafeDLChar = regexp.MustCompile(`[^A-Za-z0-9_\-.\s]`)
)

// SanitizeName replaces every run of characters outside [A-Za-z0-9_.-]
// with a single underscore.
func SanitizeName(name string) string {
	return unsafeRun.ReplaceAllString(name, "_")
}

// Stem drops the last extension of an already sanitized name.
func Stem(safe string) string {
	return lastExt.ReplaceAllString(safe, "")
}

// RandomSuffix returns six lowercase hex characters.
func RandomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// ObjectKey builds {YYYY-MM}/{unixMillis}_{random6}_{sanitized}. The month
// folder is taken in UTC.
func ObjectKey(now time.Time, random, filename string) string {
	now = now.UTC()
	return fmt.Sprintf("%s/%d_%s_%s", now.Format("2006-01"), now.UnixMilli(), random, SanitizeName(filename))
}

// Caption joins the optional prefix directly onto the file stem.
func Caption(prefix, safeName string) string {
	stem := Stem(safeName)
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return stem
	}
	return prefix + stem
}

// DownloadURL appends the download flag to a public URL.
func DownloadURL(url string) string {
	if strings.Contains(url, "?") {
		return url + "&download"
	}
	return url + "?download"
}

// DownloadName turns a caption into a file name: unsafe characters become
// underscores, the result is cut to 80 characters and trimmed, with "image"
// as the fallback, and ".jpg" is appended.
func DownloadName(caption string) string {
	if caption == "" {
		caption = "image"
	}
	s := unsafeDLChar.ReplaceAllString(caption, "_")
	if r := []rune(s); len(r) > 80 {
		s = string(r[:80])
	}
	s = strings.TrimSpace(s)
	if s == "" {
		s = "image"
	}
	return s + ".jpg"
}
