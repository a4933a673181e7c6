package gallery

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"my photo (1).JPG", "my_photo_1_.JPG"},
		{"Kwaya ya Bwana — 2026.png", "Kwaya_ya_Bwana_2026.png"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{"a-b_c.d", "a-b_c.d"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 5, 10, 30, 0, 0, time.UTC)
	key := ObjectKey(now, "a1b2c3", "Choir Day.jpg")
	assert.Equal(t, fmt.Sprintf("2026-03/%d_a1b2c3_Choir_Day.jpg", now.UnixMilli()), key)

	// month folder follows UTC, not the caller's zone
	lusaka := time.FixedZone("CAT", 2*60*60)
	assert.True(t, strings.HasPrefix(ObjectKey(time.Date(2026, 4, 1, 1, 0, 0, 0, lusaka), "x", "a.jpg"), "2026-03/"))
}

func TestRandomSuffix(t *testing.T) {
	s := RandomSuffix()
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{6}$`), s)
	assert.NotEqual(t, s, RandomSuffix())
}

func TestCaption(t *testing.T) {
	assert.Equal(t, "Easter-photo", Caption("Easter-", "photo.jpg"))
	assert.Equal(t, "photo", Caption("   ", "photo.jpg"))
	assert.Equal(t, "archive.tar", Caption("", "archive.tar.gz"))
}

func TestDownloadURLAndName(t *testing.T) {
	assert.Equal(t, "http://x/a.jpg?download", DownloadURL("http://x/a.jpg"))
	assert.Equal(t, "http://x/a.jpg?v=1&download", DownloadURL("http://x/a.jpg?v=1"))

	assert.Equal(t, "Choir_ Easter_2026.jpg", DownloadName("Choir: Easter/2026"))
	assert.Equal(t, "image.jpg", DownloadName(""))
	assert.Equal(t, "image.jpg", DownloadName("   "))
	assert.Equal(t, strings.Repeat("a", 80)+".jpg", DownloadName(strings.Repeat("a", 100)))
}
