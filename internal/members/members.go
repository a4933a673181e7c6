// Package members manages the ensemble roster and member headshots.
package members

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"salterio-site/internal/backend"
	"salterio-site/internal/gallery"
	"salterio-site/internal/intake"
)

const (
	MsgRequired   = "Name and Section are required."
	MsgBadSort    = "Sort must be a whole number."
	MsgSaved      = "Saved ✔"
	PromptDelete  = "Delete this member?"
	MsgNoMembers  = "No members yet."
	MsgLoadFailed = "Could not load members."
)

type Member struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Section   string    `json:"section"`
	Role      string    `json:"role,omitempty"`
	Sort      int       `json:"sort"`
	PhotoURL  string    `json:"photoUrl,omitempty"`
	Initials  string    `json:"initials"`
	CreatedAt time.Time `json:"createdAt"`
}

type Photo struct {
	Name        string
	ContentType string
	Body        io.Reader
}

type Form struct {
	Name    string
	Section string
	Role    string
	Sort    int
	Photo   *Photo
}

// ParseSort reads the sort field of the admin form. Blank means 0.
func ParseSort(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, intake.ValidationError{Field: "sort", Message: MsgBadSort}
	}
	return n, nil
}

func (f Form) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return intake.ValidationError{Field: "name", Message: MsgRequired}
	}
	if strings.TrimSpace(f.Section) == "" {
		return intake.ValidationError{Field: "section", Message: MsgRequired}
	}
	return nil
}

// Initials takes the first letter of up to the first two words of name.
func Initials(name string) string {
	var b strings.Builder
	for i, word := range strings.Fields(name) {
		if i == 2 {
			break
		}
		r := []rune(word)[0]
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

type Listing struct {
	Members []Member `json:"members"`
	Message string   `json:"message,omitempty"`
}

type Service struct {
	rows    backend.RowStore
	objects backend.ObjectStore
	log     *slog.Logger
	now     func() time.Time
	random  func() string
}

func NewService(rows backend.RowStore, objects backend.ObjectStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{rows: rows, objects: objects, log: log, now: time.Now, random: gallery.RandomSuffix}
}

// Create uploads the optional headshot and then inserts the member. A failed
// upload stops before the insert.
func (s *Service) Create(ctx context.Context, form Form) (Member, error) {
	if err := form.Validate(); err != nil {
		return Member{}, err
	}
	row := backend.Row{
		"name":    strings.TrimSpace(form.Name),
		"section": strings.TrimSpace(form.Section),
		"role":    strings.TrimSpace(form.Role),
		"sort":    form.Sort,
	}

	if form.Photo != nil {
		key := gallery.ObjectKey(s.now(), s.random(), form.Photo.Name)
		err := s.objects.Upload(ctx, backend.BucketMembers, key, form.Photo.Body, backend.UploadOptions{
			ContentType:  form.Photo.ContentType,
			CacheControl: "3600",
		})
		if err != nil {
			s.log.Error("member photo upload failed", "name", row["name"], "key", key, "error", err)
			return Member{}, err
		}
		row["photo_url"] = s.objects.PublicURL(backend.BucketMembers, key)
	}

	rows, err := s.rows.Insert(ctx, backend.TableMembers, row)
	if err != nil {
		s.log.Error("member insert failed", "name", row["name"], "error", err)
		return Member{}, err
	}
	return fromRow(rows[0]), nil
}

// List orders by sort, ties broken by creation time.
func (s *Service) List(ctx context.Context) (Listing, error) {
	q := backend.Query{}.OrderBy("sort", true).OrderBy("created_at", true)
	rows, err := s.rows.Select(ctx, backend.TableMembers, q)
	if err != nil {
		s.log.Error("members fetch failed", "error", err)
		return Listing{Members: []Member{}, Message: MsgLoadFailed}, err
	}
	out := Listing{Members: make([]Member, 0, len(rows))}
	for _, r := range rows {
		out.Members = append(out.Members, fromRow(r))
	}
	if len(out.Members) == 0 {
		out.Message = MsgNoMembers
	}
	return out, nil
}

// Delete removes the headshot when its key can be recovered from the photo
// URL, then deletes the row regardless of how cleanup went.
func (s *Service) Delete(ctx context.Context, id string, confirmed bool) (backend.CleanupState, error) {
	if err := intake.Confirm(confirmed, PromptDelete); err != nil {
		return "", err
	}
	rows, err := s.rows.Select(ctx, backend.TableMembers, backend.Query{}.Where(backend.Eq("id", id)))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("member %s: %w", id, backend.ErrNotFound)
	}

	state := backend.CleanupSkipped
	if photoURL := rows[0].String("photo_url"); photoURL != "" {
		if key, ok := s.objects.KeyFromURL(backend.BucketMembers, photoURL); ok {
			state = backend.CleanupComplete
			if err := s.objects.Remove(ctx, backend.BucketMembers, []string{key}); err != nil {
				s.log.Warn("member photo removal failed", "id", id, "key", key, "error", err)
				state = backend.CleanupOrphanedObject
			}
		} else {
			s.log.Debug("member photo URL carries no key", "id", id, "url", photoURL)
		}
	}

	if err := s.rows.Delete(ctx, backend.TableMembers, []backend.Filter{backend.Eq("id", id)}); err != nil {
		s.log.Error("member delete failed", "id", id, "error", err)
		return state, err
	}
	return state, nil
}

func fromRow(r backend.Row) Member {
	name := r.String("name")
	return Member{
		ID:        r.String("id"),
		Name:      name,
		Section:   r.String("section"),
		Role:      r.String("role"),
		Sort:      r.Int("sort"),
		PhotoURL:  r.String("photo_url"),
		Initials:  Initials(name),
		CreatedAt: r.Time("created_at"),
	}
}
