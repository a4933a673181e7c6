package site

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultContent(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.NoError(t, c.SelfCheck())

	assert.Equal(t, "Salterio Music Ensemble", c.Name)
	require.Len(t, c.Repertoire, 5)
	assert.Equal(t, Piece{Title: "Hymn: Blessed Assurance", Category: "Hymns", Duration: "3:42", Emoji: "📘"}, c.Repertoire[0])
	assert.Contains(t, string(c.AboutHTML), "<strong>Salterio</strong>")
}

func TestLoadOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: Test Choir
about: "Hello <script>x</script> *hi*"
nav: [{id: home, label: Home}]
repertoire:
  - {title: Song, category: Hymns, duration: "1:00"}
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "🎵", c.Repertoire[0].Emoji)
	assert.NotContains(t, string(c.AboutHTML), "<script>")
	assert.Contains(t, string(c.AboutHTML), "<em>hi</em>")

	err = c.SelfCheck()
	require.ErrorIs(t, err, ErrSelfCheck)
	assert.Contains(t, err.Error(), "repertoire section missing")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("name: [unterminated"))
	assert.Error(t, err)
}

func TestRepertoireChips(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"All", "Hymns", "Scripture Song", "Anthem", "Chorale", "Medley"}, Categories(c.Repertoire))

	v := Repertoire(c.Repertoire, "Anthem")
	require.Len(t, v.Pieces, 1)
	assert.Equal(t, "Anthem: The Lord Is My Light", v.Pieces[0].Title)
	assert.Equal(t, Chip{Label: "Anthem", Active: true}, v.Chips[3])
	assert.False(t, v.Chips[0].Active)

	assert.Len(t, Repertoire(c.Repertoire, "").Pieces, 5)
	assert.Empty(t, Repertoire(c.Repertoire, "Gospel").Pieces)
}

func TestTheme(t *testing.T) {
	assert.Equal(t, ThemeView{Theme: ThemeLight, Label: "🌙 Dark Mode"}, Theme(""))
	assert.Equal(t, ThemeView{Theme: ThemeDark, Label: "☀️ Light Mode"}, Theme("DARK"))
	assert.Equal(t, ThemeLight, ParseTheme("sepia"))
	assert.Equal(t, ThemeDark, ToggleTheme(ThemeLight))
	assert.Equal(t, ThemeLight, ToggleTheme(ThemeDark))
}

func TestPlayer(t *testing.T) {
	p := Player{}
	assert.Equal(t, "▶️", p.Label())
	assert.Equal(t, 0, p.Tick().Progress, "paused player does not advance")

	p = p.Toggle()
	assert.Equal(t, "⏸", p.Label())
	for i := 0; i < 100; i++ {
		p = p.Tick()
	}
	assert.Equal(t, 100, p.Progress)
	assert.Equal(t, 0, p.Tick().Progress)
}

func TestNav(t *testing.T) {
	n := Nav{}.Toggle()
	assert.True(t, n.Open)
	n, target := n.ScrollTo("events")
	assert.False(t, n.Open)
	assert.Equal(t, "#events", target)
}

func TestBuildPage(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	p := BuildPage(c, "dark", time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2026, p.Year)
	assert.Equal(t, ThemeDark, p.Theme.Theme)
	assert.Equal(t, int64(120), p.Player.TickMs)
	assert.Equal(t, "▶️", p.Player.Label)
	assert.Len(t, p.Repertoire.Chips, 6)
}
