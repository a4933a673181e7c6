// Package authgate decides which admin panels a signed-in identity may see.
// The allow-list is a presentation rule; admin routes also require a live
// session.
package authgate

import (
	"context"
	"strings"
	"sync"

	"salterio-site/internal/backend"
)

const (
	PanelGallery   = "gallery"
	PanelEvents    = "events"
	PanelMembers   = "members"
	PanelEnquiries = "enquiries"
)

// Panels lists every admin panel in display order.
var Panels = []string{PanelGallery, PanelEvents, PanelMembers, PanelEnquiries}

const NoticeNotAllowed = "This account is not allowed to access admin tools."

type View struct {
	SignedIn bool            `json:"signedIn"`
	Email    string          `json:"email,omitempty"`
	IsAdmin  bool            `json:"isAdmin"`
	Panels   map[string]bool `json:"panels"`
	// Notice is set the first time a non-admin identity is evaluated in a
	// session.
	Notice string `json:"notice,omitempty"`
}

type Gate struct {
	allow map[string]struct{}

	mu       sync.Mutex
	notified map[string]struct{}
}

// New builds a gate over the admin allow-list. Entries are compared
// case-insensitively after trimming.
func New(adminEmails []string) *Gate {
	allow := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalize(e); e != "" {
			allow[e] = struct{}{}
		}
	}
	return &Gate{allow: allow, notified: map[string]struct{}{}}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (g *Gate) IsAdmin(email string) bool {
	email = normalize(email)
	if email == "" {
		return false
	}
	_, ok := g.allow[email]
	return ok
}

func (g *Gate) Evaluate(user *backend.User) View {
	view := View{Panels: make(map[string]bool, len(Panels))}
	for _, p := range Panels {
		view.Panels[p] = false
	}
	if user == nil {
		return view
	}
	view.SignedIn = true
	view.Email = user.Email
	if g.IsAdmin(user.Email) {
		view.IsAdmin = true
		for _, p := range Panels {
			view.Panels[p] = true
		}
		return view
	}

	g.mu.Lock()
	if _, seen := g.notified[user.ID]; !seen {
		g.notified[user.ID] = struct{}{}
		view.Notice = NoticeNotAllowed
	}
	g.mu.Unlock()
	return view
}

// Resolve fetches the identity behind token and evaluates it. A lookup error
// yields the signed-out view alongside the error.
func (g *Gate) Resolve(ctx context.Context, identity backend.Identity, token string) (View, error) {
	user, err := identity.CurrentUser(ctx, token)
	if err != nil {
		return g.Evaluate(nil), err
	}
	return g.Evaluate(user), nil
}

// HandleAuthEvent re-arms the notice when a user starts a new session. It is
// meant to be registered with Identity.OnAuthStateChange.
func (g *Gate) HandleAuthEvent(event backend.AuthEvent, user *backend.User) {
	if event != backend.AuthSignedIn || user == nil {
		return
	}
	g.mu.Lock()
	delete(g.notified, user.ID)
	g.mu.Unlock()
}
