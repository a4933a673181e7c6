package site

import (
	"strings"
	"time"
)

const (
	CategoryAll = "All"

	ThemeCookie = "salterio-theme"
	ThemeLight  = "light"
	ThemeDark   = "dark"

	PlayerTick = 120 * time.Millisecond
)

// Categories returns "All" then each category in first-seen order.
func Categories(pieces []Piece) []string {
	out := []string{CategoryAll}
	seen := map[string]bool{CategoryAll: true}
	for _, p := range pieces {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}

func FilterRepertoire(pieces []Piece, category string) []Piece {
	if category == "" || category == CategoryAll {
		return append([]Piece{}, pieces...)
	}
	out := []Piece{}
	for _, p := range pieces {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

type Chip struct {
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

type RepertoireView struct {
	Category string  `json:"category"`
	Chips    []Chip  `json:"chips"`
	Pieces   []Piece `json:"pieces"`
}

func Repertoire(pieces []Piece, category string) RepertoireView {
	if category == "" {
		category = CategoryAll
	}
	cats := Categories(pieces)
	chips := make([]Chip, 0, len(cats))
	for _, c := range cats {
		chips = append(chips, Chip{Label: c, Active: c == category})
	}
	return RepertoireView{Category: category, Chips: chips, Pieces: FilterRepertoire(pieces, category)}
}

// ParseTheme falls back to light for anything but "dark".
func ParseTheme(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), ThemeDark) {
		return ThemeDark
	}
	return ThemeLight
}

// ThemeLabel is the toggle caption, which names the mode it switches to.
func ThemeLabel(theme string) string {
	if theme == ThemeDark {
		return "☀️ Light Mode"
	}
	return "🌙 Dark Mode"
}

func ToggleTheme(theme string) string {
	if theme == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

type ThemeView struct {
	Theme string `json:"theme"`
	Label string `json:"label"`
}

func Theme(theme string) ThemeView {
	theme = ParseTheme(theme)
	return ThemeView{Theme: theme, Label: ThemeLabel(theme)}
}

// Player is the simulated mini player.
type Player struct {
	Playing  bool `json:"playing"`
	Progress int  `json:"progress"`
}

func (p Player) Toggle() Player {
	p.Playing = !p.Playing
	return p
}

// Tick advances progress by one percent, wrapping after 100. It does
// nothing while paused.
func (p Player) Tick() Player {
	if p.Playing {
		p.Progress = (p.Progress + 1) % 101
	}
	return p
}

func (p Player) Label() string {
	if p.Playing {
		return "⏸"
	}
	return "▶️"
}

// Nav is the mobile menu.
type Nav struct {
	Open bool `json:"open"`
}

func (n Nav) Toggle() Nav {
	n.Open = !n.Open
	return n
}

// ScrollTo closes an open menu; the page scrolls to section itself.
func (n Nav) ScrollTo(section string) (Nav, string) {
	n.Open = false
	return n, "#" + strings.TrimPrefix(section, "#")
}

type PlayerView struct {
	Player
	Label  string `json:"label"`
	TickMs int64  `json:"tickMs"`
}

// Page is everything the marketing page renders at load.
type Page struct {
	*Content
	Theme      ThemeView      `json:"theme"`
	Repertoire RepertoireView `json:"repertoire"`
	Player     PlayerView     `json:"player"`
	Nav        Nav            `json:"mobileNav"`
	Year       int            `json:"year"`
}

func BuildPage(c *Content, theme string, now time.Time) Page {
	p := Player{}
	return Page{
		Content:    c,
		Theme:      Theme(theme),
		Repertoire: Repertoire(c.Repertoire, CategoryAll),
		Player:     PlayerView{Player: p, Label: p.Label(), TickMs: PlayerTick.Milliseconds()},
		Year:       now.Year(),
	}
}
