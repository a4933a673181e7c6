package gallery

import (
	"context"
	"fmt"
	"log/slog"

	"salterio-site/internal/backend"
)

// Viewer runs Update and carries out its effects against the row store, one
// at a time, feeding each result back in as an event.
type Viewer struct {
	rows     backend.RowStore
	pageSize int
	log      *slog.Logger
}

func NewViewer(rows backend.RowStore, pageSize int, log *slog.Logger) *Viewer {
	if log == nil {
		log = slog.Default()
	}
	return &Viewer{rows: rows, pageSize: pageSize, log: log}
}

func (v *Viewer) NewState() State {
	return NewState(v.pageSize)
}

// Dispatch normalizes s, then applies e and every follow-up event until no
// effects remain. When normalizing moved the page index, the clamped page is
// reloaded before e runs.
func (v *Viewer) Dispatch(ctx context.Context, s State, e Event) State {
	queue := []Event{e}
	if n := s.Normalize(); n.PageIndex != s.PageIndex {
		s = n
		queue = []Event{ChangePage{Index: s.PageIndex}, e}
	} else {
		s = n
	}
	for len(queue) > 0 {
		var effects []Effect
		s, effects = Update(s, queue[0])
		queue = queue[1:]
		for _, eff := range effects {
			if next := v.run(ctx, eff); next != nil {
				queue = append(queue, next)
			}
		}
	}
	return s
}

// Open boots a viewer on tag and moves to page when it exists.
func (v *Viewer) Open(ctx context.Context, tag string, page int) State {
	s := v.NewState()
	if tag != "" && tag != TagAll {
		s.Tag = tag
	}
	s = v.Dispatch(ctx, s, Boot{})
	if page > 0 {
		s = v.Dispatch(ctx, s, ChangePage{Index: page})
	}
	return s
}

func (v *Viewer) run(ctx context.Context, eff Effect) Event {
	switch e := eff.(type) {
	case FetchTags:
		rows, err := v.rows.Select(ctx, backend.TableGallery, backend.Query{Columns: []string{"tag"}})
		if err != nil {
			v.log.Error("gallery tag load failed", "error", err)
			return TagsLoaded{Err: err}
		}
		tags := make([]string, 0, len(rows))
		for _, r := range rows {
			tags = append(tags, r.String("tag"))
		}
		return TagsLoaded{Tags: tags}

	case FetchCount:
		n, err := v.rows.Count(ctx, backend.TableGallery, tagFilter(e.Tag))
		if err != nil {
			v.log.Error("gallery count failed", "tag", e.Tag, "error", err)
		}
		return CountLoaded{Count: n, Err: err}

	case FetchPage:
		q := backend.Query{Filters: tagFilter(e.Tag)}.
			OrderBy("created_at", false).
			Between(e.From, e.To)
		rows, err := v.rows.Select(ctx, backend.TableGallery, q)
		if err != nil {
			v.log.Error("gallery page load failed", "tag", e.Tag, "page", e.Index, "error", err)
			return PageLoaded{Index: e.Index, Err: err}
		}
		return PageLoaded{Index: e.Index, Items: itemsFromRows(rows)}
	}
	v.log.Warn("gallery viewer: unhandled effect", "effect", fmt.Sprintf("%T", eff))
	return nil
}

func tagFilter(tag string) []backend.Filter {
	if tag == "" || tag == TagAll {
		return nil
	}
	return []backend.Filter{backend.Eq("tag", tag)}
}

func itemsFromRows(rows []backend.Row) []Item {
	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, itemFromRow(r))
	}
	return items
}

func itemFromRow(r backend.Row) Item {
	return Item{
		ID:        r.String("id"),
		Path:      r.String("path"),
		URL:       r.String("url"),
		Caption:   r.String("caption"),
		Tag:       r.String("tag"),
		CreatedAt: r.Time("created_at"),
	}
}

// Command is a user event as it arrives over the wire. Load results are
// never accepted from clients.
type Command struct {
	Type  string `json:"type"`
	Tag   string `json:"tag,omitempty"`
	Index int    `json:"index,omitempty"`
	Key   string `json:"key,omitempty"`
}

func (c Command) Event() (Event, error) {
	switch c.Type {
	case "changeTag":
		return ChangeTag{Tag: c.Tag}, nil
	case "changePage":
		return ChangePage{Index: c.Index}, nil
	case "next":
		return NextPage{}, nil
	case "prev":
		return PrevPage{}, nil
	case "openLightbox":
		return OpenLightbox{Index: c.Index}, nil
	case "closeLightbox":
		return CloseLightbox{}, nil
	case "key":
		return KeyPress{Key: c.Key}, nil
	default:
		return nil, fmt.Errorf("unknown gallery command %q", c.Type)
	}
}

type Chip struct {
	Tag    string `json:"tag"`
	Active bool   `json:"active"`
}

// Snapshot is the rendered form of a State.
type Snapshot struct {
	State        State  `json:"state"`
	Chips        []Chip `json:"chips"`
	Indicator    string `json:"indicator"`
	TotalPages   int    `json:"totalPages"`
	PrevDisabled bool   `json:"prevDisabled"`
	NextDisabled bool   `json:"nextDisabled"`
}

func (s State) Snapshot() Snapshot {
	chips := make([]Chip, 0, len(s.Tags))
	for _, t := range s.Tags {
		chips = append(chips, Chip{Tag: t, Active: t == s.Tag})
	}
	if s.Items == nil {
		s.Items = []Item{}
	}
	return Snapshot{
		State:        s,
		Chips:        chips,
		Indicator:    s.Indicator(),
		TotalPages:   s.TotalPages(),
		PrevDisabled: s.PrevDisabled(),
		NextDisabled: s.NextDisabled(),
	}
}
