// Package events manages the concert calendar: admin create, list and
// delete, and the public list of upcoming events.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"salterio-site/internal/backend"
	"salterio-site/internal/intake"
)

const (
	DateLayout    = "2006-01-02"
	DisplayLayout = "January 2, 2006"

	MsgRequired     = "Date and Title are required."
	MsgBadDate      = "Date must be a calendar date (YYYY-MM-DD)."
	MsgSaved        = "Saved ✔"
	StatusReady     = "Ready"
	PromptDelete    = "Delete this event?"
	MsgNoEvents     = "No events yet."
	MsgNoUpcoming   = "No upcoming events yet."
	MsgLoadFailed   = "Could not load events."
	SavedResetAfter = 1200 * time.Millisecond
)

type Event struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	DisplayDate string    `json:"displayDate"`
	Title       string    `json:"title"`
	Venue       string    `json:"venue,omitempty"`
	Type        string    `json:"type,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Form struct {
	Date  string `json:"date"`
	Title string `json:"title"`
	Venue string `json:"venue"`
	Type  string `json:"type"`
}

func (f Form) Normalize() Form {
	return Form{
		Date:  strings.TrimSpace(f.Date),
		Title: strings.TrimSpace(f.Title),
		Venue: strings.TrimSpace(f.Venue),
		Type:  strings.TrimSpace(f.Type),
	}
}

func (f Form) Validate() error {
	if f.Date == "" || f.Title == "" {
		field := "date"
		if f.Date != "" {
			field = "title"
		}
		return intake.ValidationError{Field: field, Message: MsgRequired}
	}
	if _, err := time.Parse(DateLayout, f.Date); err != nil {
		return intake.ValidationError{Field: "date", Message: MsgBadDate}
	}
	return nil
}

// FormatDate renders a stored date for people, or returns raw unchanged
// when it is not a calendar date.
func FormatDate(raw string) string {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return t.Format(DisplayLayout)
}

// Today is the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}

type Listing struct {
	Events  []Event `json:"events"`
	Message string  `json:"message,omitempty"`
}

type SaveResult struct {
	Event        Event  `json:"event"`
	Status       string `json:"status"`
	ResetAfterMs int64  `json:"resetAfterMs"`
}

type Service struct {
	rows backend.RowStore
	loc  *time.Location
	now  func() time.Time
	log  *slog.Logger
}

func NewService(rows backend.RowStore, loc *time.Location, log *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{rows: rows, loc: loc, now: time.Now, log: log}
}

// WithClock replaces the time source used for "today".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Today() string {
	return Today(s.now(), s.loc)
}

func (s *Service) Create(ctx context.Context, form Form) (SaveResult, error) {
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return SaveResult{}, err
	}
	row := backend.Row{"date": form.Date, "title": form.Title, "venue": form.Venue, "type": form.Type}
	rows, err := s.rows.Insert(ctx, backend.TableEvents, row)
	if err != nil {
		s.log.Error("event insert failed", "title", form.Title, "error", err)
		return SaveResult{}, err
	}
	return SaveResult{
		Event:        fromRow(rows[0]),
		Status:       MsgSaved,
		ResetAfterMs: SavedResetAfter.Milliseconds(),
	}, nil
}

// List is the admin view: every event by date, or only upcoming ones.
func (s *Service) List(ctx context.Context, upcomingOnly bool) (Listing, error) {
	q := backend.Query{}.OrderBy("date", true)
	empty := MsgNoEvents
	if upcomingOnly {
		q = q.Where(backend.Gte("date", s.Today()))
		empty = MsgNoUpcoming
	}
	return s.list(ctx, q, empty)
}

// Upcoming is the public view: date on or after today, soonest first.
func (s *Service) Upcoming(ctx context.Context) (Listing, error) {
	q := backend.Query{}.Where(backend.Gte("date", s.Today())).OrderBy("date", true)
	return s.list(ctx, q, MsgNoUpcoming)
}

func (s *Service) list(ctx context.Context, q backend.Query, empty string) (Listing, error) {
	rows, err := s.rows.Select(ctx, backend.TableEvents, q)
	if err != nil {
		s.log.Error("events fetch failed", "error", err)
		return Listing{Events: []Event{}, Message: MsgLoadFailed}, err
	}
	out := Listing{Events: make([]Event, 0, len(rows))}
	for _, r := range rows {
		out.Events = append(out.Events, fromRow(r))
	}
	if len(out.Events) == 0 {
		out.Message = empty
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string, confirmed bool) error {
	if err := intake.Confirm(confirmed, PromptDelete); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("event id: %w", backend.ErrNotFound)
	}
	if err := s.rows.Delete(ctx, backend.TableEvents, []backend.Filter{backend.Eq("id", id)}); err != nil {
		s.log.Error("event delete failed", "id", id, "error", err)
		return err
	}
	return nil
}

func fromRow(r backend.Row) Event {
	date := r.Date("date")
	return Event{
		ID:          r.String("id"),
		Date:        date,
		DisplayDate: FormatDate(date),
		Title:       r.String("title"),
		Venue:       r.String("venue"),
		Type:        r.String("type"),
		CreatedAt:   r.Time("created_at"),
	}
}
