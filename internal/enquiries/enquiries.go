// Package enquiries is the admin inbox for partner enquiries.
package enquiries

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"salterio-site/internal/backend"
	"salterio-site/internal/intake"
)

const (
	FilterAll     = "all"
	FilterOpen    = intake.StatusOpen
	FilterHandled = intake.StatusHandled

	MsgNone       = "No enquiries."
	MsgLoadFailed = "Could not load enquiries."
)

// ParseFilter maps anything unknown to "all".
func ParseFilter(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case FilterOpen:
		return FilterOpen
	case FilterHandled:
		return FilterHandled
	default:
		return FilterAll
	}
}

type Enquiry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Message   string    `json:"message,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// CanMarkHandled is false once the enquiry has been handled.
func (e Enquiry) CanMarkHandled() bool {
	return e.Status != intake.StatusHandled
}

type Card struct {
	Enquiry
	MarkHandled bool   `json:"markHandled"`
	HTML        string `json:"html"`
}

type Listing struct {
	Filter  string `json:"filter"`
	Cards   []Card `json:"cards"`
	Message string `json:"message,omitempty"`
}

var cardTmpl = template.Must(template.New("card").Parse(
	`<div class="card" data-id="{{.ID}}">` +
		`<div><strong>{{.Name}}</strong> — <a href="mailto:{{.Email}}">{{.Email}}</a>{{if .Phone}} — {{.Phone}}{{end}}</div>` +
		`<div class="muted small">{{.When}}</div>` +
		`<div class="message">{{.Message}}</div>` +
		`<span class="badge">{{.Status}}</span>` +
		`{{if .MarkHandled}}<button class="btn btn-outline" data-mark="{{.ID}}">Mark handled</button>{{end}}` +
		`</div>`))

// RenderCard builds the markup fragment for e. Every field is escaped.
func RenderCard(e Enquiry, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.UTC
	}
	status := e.Status
	if status == "" {
		status = intake.StatusOpen
	}
	var buf bytes.Buffer
	err := cardTmpl.Execute(&buf, struct {
		Enquiry
		Status      string
		When        string
		MarkHandled bool
	}{e, status, e.CreatedAt.In(loc).Format("02 Jan 2006 15:04"), e.CanMarkHandled()})
	if err != nil {
		return "", fmt.Errorf("render enquiry %s: %w", e.ID, err)
	}
	return buf.String(), nil
}

type Service struct {
	rows backend.RowStore
	loc  *time.Location
	log  *slog.Logger
}

func NewService(rows backend.RowStore, loc *time.Location, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{rows: rows, loc: loc, log: log}
}

func (s *Service) List(ctx context.Context, filter string) (Listing, error) {
	filter = ParseFilter(filter)
	q := backend.Query{}.OrderBy("created_at", false)
	if filter != FilterAll {
		q = q.Where(backend.Eq("status", filter))
	}

	out := Listing{Filter: filter, Cards: []Card{}}
	rows, err := s.rows.Select(ctx, backend.TableEnquiries, q)
	if err != nil {
		s.log.Error("enquiries fetch failed", "filter", filter, "error", err)
		out.Message = MsgLoadFailed
		return out, err
	}
	for _, r := range rows {
		e := fromRow(r)
		html, err := RenderCard(e, s.loc)
		if err != nil {
			return out, err
		}
		out.Cards = append(out.Cards, Card{Enquiry: e, MarkHandled: e.CanMarkHandled(), HTML: html})
	}
	if len(out.Cards) == 0 {
		out.Message = MsgNone
	}
	return out, nil
}

// MarkHandled moves an open enquiry to handled. Calling it again is a no-op.
func (s *Service) MarkHandled(ctx context.Context, id string) error {
	err := s.rows.Update(ctx, backend.TableEnquiries,
		backend.Row{"status": intake.StatusHandled},
		[]backend.Filter{backend.Eq("id", id), backend.Eq("status", intake.StatusOpen)})
	if err != nil {
		s.log.Error("enquiry status update failed", "id", id, "error", err)
		return err
	}
	return nil
}

func fromRow(r backend.Row) Enquiry {
	status := r.String("status")
	if status == "" {
		status = intake.StatusOpen
	}
	return Enquiry{
		ID:        r.String("id"),
		Name:      r.String("name"),
		Email:     r.String("email"),
		Phone:     r.String("phone"),
		Message:   r.String("message"),
		Status:    status,
		CreatedAt: r.Time("created_at"),
	}
}
