package gallery

import (
	"fmt"
	"time"
)

const (
	TagAll         = "All"
	DefaultTag     = "General"
	DefaultCaption = "Untitled"

	MsgLoadFailed   = "Could not load gallery."
	MsgEmptyView    = "No images in this view."
	MsgEmptyGallery = "No images yet."
)

type Item struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	URL       string    `json:"url"`
	Caption   string    `json:"caption"`
	Tag       string    `json:"tag"`
	CreatedAt time.Time `json:"createdAt"`
}

// DisplayCaption and DisplayTag apply the card fallbacks.
func (i Item) DisplayCaption() string {
	if i.Caption == "" {
		return DefaultCaption
	}
	return i.Caption
}

func (i Item) DisplayTag() string {
	if i.Tag == "" {
		return DefaultTag
	}
	return i.Tag
}

type Lightbox struct {
	Open         bool   `json:"open"`
	Item         *Item  `json:"item,omitempty"`
	Src          string `json:"src"`
	Caption      string `json:"caption,omitempty"`
	DownloadURL  string `json:"downloadUrl,omitempty"`
	DownloadName string `json:"downloadName,omitempty"`
}

// State is the whole paged viewer. It is a value: Update returns a new one.
type State struct {
	Tag        string   `json:"tag"`
	Tags       []string `json:"tags"`
	PageIndex  int      `json:"pageIndex"`
	PageSize   int      `json:"pageSize"`
	TotalCount int      `json:"totalCount"`
	Items      []Item   `json:"items"`
	Message    string   `json:"message,omitempty"`
	Lightbox   Lightbox `json:"lightbox"`

	loadAfterCount bool
}

func NewState(pageSize int) State {
	if pageSize <= 0 {
		pageSize = 12
	}
	return State{Tag: TagAll, Tags: []string{TagAll}, PageSize: pageSize}
}

// Normalize clamps a state that did not come from Update, such as one held
// by a client: a positive page size, a non-negative count and a page index
// inside [0, TotalPages-1].
func (s State) Normalize() State {
	if s.PageSize <= 0 {
		s.PageSize = NewState(0).PageSize
	}
	if s.TotalCount < 0 {
		s.TotalCount = 0
	}
	if s.Tag == "" {
		s.Tag = TagAll
	}
	if s.PageIndex < 0 {
		s.PageIndex = 0
	}
	if last := s.TotalPages() - 1; s.PageIndex > last {
		s.PageIndex = last
	}
	return s
}

func (s State) TotalPages() int {
	if s.PageSize <= 0 || s.TotalCount <= 0 {
		return 1
	}
	return (s.TotalCount + s.PageSize - 1) / s.PageSize
}

func (s State) PrevDisabled() bool {
	return s.PageIndex <= 0
}

func (s State) NextDisabled() bool {
	return s.PageIndex >= s.TotalPages()-1
}

// Indicator renders "Page i of n", with i = 0 when nothing matches.
func (s State) Indicator() string {
	current := 0
	if s.TotalCount > 0 {
		current = s.PageIndex + 1
	}
	return fmt.Sprintf("Page %d of %d", current, s.TotalPages())
}

// PageRange is the inclusive row range of page index.
func (s State) PageRange(index int) (from, to int) {
	from = index * s.PageSize
	return from, from + s.PageSize - 1
}

// Event is an input to Update.
type Event interface{ isEvent() }

type (
	Boot          struct{}
	ChangeTag     struct{ Tag string }
	ChangePage    struct{ Index int }
	NextPage      struct{}
	PrevPage      struct{}
	OpenLightbox  struct{ Index int }
	CloseLightbox struct{}
	KeyPress      struct{ Key string }

	TagsLoaded struct {
		Tags []string
		Err  error
	}
	CountLoaded struct {
		Count int
		Err   error
	}
	PageLoaded struct {
		Index int
		Items []Item
		Err   error
	}
)

func (Boot) isEvent()          {}
func (ChangeTag) isEvent()     {}
func (ChangePage) isEvent()    {}
func (NextPage) isEvent()      {}
func (PrevPage) isEvent()      {}
func (OpenLightbox) isEvent()  {}
func (CloseLightbox) isEvent() {}
func (KeyPress) isEvent()      {}
func (TagsLoaded) isEvent()    {}
func (CountLoaded) isEvent()   {}
func (PageLoaded) isEvent()    {}

// Effect is a row-store read requested by Update.
type Effect interface{ isEffect() }

type (
	FetchTags  struct{}
	FetchCount struct{ Tag string }
	FetchPage  struct {
		Tag   string
		Index int
		From  int
		To    int
	}
)

func (FetchTags) isEffect()  {}
func (FetchCount) isEffect() {}
func (FetchPage) isEffect()  {}

// Update is the pure transition function of the viewer.
func Update(s State, e Event) (State, []Effect) {
	switch ev := e.(type) {
	case Boot:
		s.loadAfterCount = true
		return s, []Effect{FetchTags{}, FetchCount{Tag: s.Tag}}

	case ChangeTag:
		tag := ev.Tag
		if tag == "" {
			tag = TagAll
		}
		if tag == s.Tag {
			return s, nil
		}
		s.Tag = tag
		s.PageIndex = 0
		s.loadAfterCount = true
		return s, []Effect{FetchCount{Tag: tag}}

	case ChangePage:
		if ev.Index < 0 || ev.Index > s.TotalPages()-1 {
			return s, nil
		}
		return loadPage(s, ev.Index)

	case NextPage:
		if s.NextDisabled() {
			return s, nil
		}
		return loadPage(s, s.PageIndex+1)

	case PrevPage:
		if s.PrevDisabled() {
			return s, nil
		}
		return loadPage(s, s.PageIndex-1)

	case OpenLightbox:
		if ev.Index < 0 || ev.Index >= len(s.Items) {
			return s, nil
		}
		item := s.Items[ev.Index]
		s.Lightbox = Lightbox{
			Open:         true,
			Item:         &item,
			Src:          item.URL,
			Caption:      item.DisplayCaption(),
			DownloadURL:  DownloadURL(item.URL),
			DownloadName: DownloadName(item.Caption),
		}
		return s, nil

	case CloseLightbox:
		s.Lightbox = Lightbox{}
		return s, nil

	case KeyPress:
		if !s.Lightbox.Open {
			return s, nil
		}
		switch ev.Key {
		case "Escape":
			return Update(s, CloseLightbox{})
		case "ArrowRight":
			return Update(s, NextPage{})
		case "ArrowLeft":
			return Update(s, PrevPage{})
		}
		return s, nil

	case TagsLoaded:
		if ev.Err != nil {
			s.Tags = []string{TagAll}
			return s, nil
		}
		s.Tags = DistinctTags(ev.Tags)
		return s, nil

	case CountLoaded:
		pending := s.loadAfterCount
		s.loadAfterCount = false
		if ev.Err != nil {
			s.TotalCount = 0
			s.PageIndex = 0
			s.Items = nil
			s.Message = MsgLoadFailed
			return s, nil
		}
		s.TotalCount = ev.Count
		if last := s.TotalPages() - 1; s.PageIndex > last {
			s.PageIndex = last
		}
		if pending {
			return loadPage(s, 0)
		}
		return s, nil

	case PageLoaded:
		if ev.Index != s.PageIndex {
			return s, nil
		}
		if ev.Err != nil {
			s.Items = nil
			s.Message = MsgLoadFailed
			return s, nil
		}
		s.Items = ev.Items
		s.Message = ""
		if len(ev.Items) == 0 {
			s.Message = MsgEmptyView
		}
		return s, nil
	}
	return s, nil
}

func loadPage(s State, index int) (State, []Effect) {
	s.PageIndex = index
	from, to := s.PageRange(index)
	return s, []Effect{FetchPage{Tag: s.Tag, Index: index, From: from, To: to}}
}

// DistinctTags returns "All" followed by each tag in first-seen order, with
// a missing tag counted as "General".
func DistinctTags(tags []string) []string {
	out := []string{TagAll}
	seen := map[string]bool{TagAll: true}
	for _, t := range tags {
		if t == "" {
			t = DefaultTag
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
