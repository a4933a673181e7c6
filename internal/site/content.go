// Package site serves the marketing page: static content, the repertoire
// filter, the theme preference, the simulated player and the mobile nav.
package site

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

//go:embed content/content.yaml
var defaultContent embed.FS

// RepertoireSection is the nav id the self-check looks for.
const RepertoireSection = "repertoire"

var ErrSelfCheck = errors.New("content self-check failed")

// markdown escapes raw HTML in the about text.
var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

type Hero struct {
	Title    string `yaml:"title" json:"title"`
	Subtitle string `yaml:"subtitle" json:"subtitle"`
	CTA      string `yaml:"cta" json:"cta"`
}

type Section struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

type Piece struct {
	Title    string `yaml:"title" json:"title"`
	Category string `yaml:"category" json:"category"`
	Duration string `yaml:"duration" json:"duration"`
	Emoji    string `yaml:"emoji" json:"emoji"`
}

type Content struct {
	Name       string        `yaml:"name" json:"name"`
	Hero       Hero          `yaml:"hero" json:"hero"`
	About      string        `yaml:"about" json:"-"`
	AboutHTML  template.HTML `yaml:"-" json:"aboutHtml"`
	Nav        []Section     `yaml:"nav" json:"nav"`
	Repertoire []Piece       `yaml:"repertoire" json:"repertoire"`
}

// Load reads the content file at path, or the built-in content when path is
// empty, and renders the about text.
func Load(path string) (*Content, error) {
	var (
		raw []byte
		err error
	)
	if path == "" {
		raw, err = defaultContent.ReadFile("content/content.yaml")
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	for i := range c.Repertoire {
		if c.Repertoire[i].Emoji == "" {
			c.Repertoire[i].Emoji = "🎵"
		}
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(c.About), &buf); err != nil {
		return nil, fmt.Errorf("render about: %w", err)
	}
	c.AboutHTML = template.HTML(buf.String())
	return &c, nil
}

// SelfCheck reports missing sections the page cannot render without.
func (c *Content) SelfCheck() error {
	var problems []string
	found := false
	for _, s := range c.Nav {
		if s.ID == RepertoireSection {
			found = true
			break
		}
	}
	if !found {
		problems = append(problems, "repertoire section missing")
	}
	if len(c.Repertoire) == 0 {
		problems = append(problems, "repertoire has no items")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrSelfCheck, strings.Join(problems, "; "))
	}
	return nil
}
