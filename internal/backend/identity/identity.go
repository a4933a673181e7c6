// Package identity implements backend.Identity with JWT sessions over the
// users table of a backend.RowStore.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"salterio-site/internal/backend"
)

const statusActive = "ACTIVE"

var errInvalidCredentials = backend.AuthError{Message: "Invalid login credentials"}

type Service struct {
	rows   backend.RowStore
	tokens TokenService

	mu        sync.Mutex
	listeners map[int]backend.AuthListener
	nextID    int
	revoked   map[string]time.Time
}

func New(rows backend.RowStore, tokens TokenService) *Service {
	return &Service{
		rows:      rows,
		tokens:    tokens,
		listeners: map[int]backend.AuthListener{},
		revoked:   map[string]time.Time{},
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) SignIn(ctx context.Context, email, password string) (backend.Session, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return backend.Session{}, errInvalidCredentials
	}
	row, err := s.findUser(ctx, backend.Eq("email", email))
	if err != nil {
		return backend.Session{}, err
	}
	if row == nil || row.String("status") != statusActive {
		return backend.Session{}, errInvalidCredentials
	}
	if !VerifyPassword(password, row.String("password_hash")) {
		return backend.Session{}, errInvalidCredentials
	}

	user := backend.User{ID: row.String("id"), Email: row.String("email")}
	session, err := s.issue(user)
	if err != nil {
		return backend.Session{}, err
	}
	if err := s.rows.Update(ctx, backend.TableUsers,
		backend.Row{"last_login_at": s.tokens.now()},
		[]backend.Filter{backend.Eq("id", user.ID)},
	); err != nil {
		return backend.Session{}, err
	}
	s.notify(backend.AuthSignedIn, &user)
	return session, nil
}

// CurrentUser resolves an access token. Malformed, expired, revoked or
// orphaned tokens all mean "no session" rather than an error.
func (s *Service) CurrentUser(ctx context.Context, token string) (*backend.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	claims, err := s.tokens.parse(token, tokenAccess)
	if err != nil || s.isRevoked(claims.ID) {
		return nil, nil
	}
	row, err := s.findUser(ctx, backend.Eq("id", claims.Subject))
	if err != nil {
		return nil, err
	}
	if row == nil || row.String("status") != statusActive {
		return nil, nil
	}
	return &backend.User{ID: row.String("id"), Email: row.String("email")}, nil
}

// SignOut revokes the access token. Signing out an unusable token is not an
// error; listeners are told either way.
func (s *Service) SignOut(_ context.Context, token string) error {
	if claims, err := s.tokens.parse(strings.TrimSpace(token), tokenAccess); err == nil {
		s.revoke(claims.ID, expiryOf(claims))
	}
	s.notify(backend.AuthSignedOut, nil)
	return nil
}

// Refresh rotates a refresh token: the old one is revoked and a new pair is
// issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (backend.Session, error) {
	claims, err := s.tokens.parse(strings.TrimSpace(refreshToken), tokenRefresh)
	if err != nil || s.isRevoked(claims.ID) {
		return backend.Session{}, backend.AuthError{Message: "Invalid refresh token"}
	}
	row, err := s.findUser(ctx, backend.Eq("id", claims.Subject))
	if err != nil {
		return backend.Session{}, err
	}
	if row == nil || row.String("status") != statusActive {
		return backend.Session{}, backend.AuthError{Message: "Invalid refresh token"}
	}
	user := backend.User{ID: row.String("id"), Email: row.String("email")}
	session, err := s.issue(user)
	if err != nil {
		return backend.Session{}, err
	}
	s.revoke(claims.ID, expiryOf(claims))
	s.notify(backend.AuthTokenRefreshed, &user)
	return session, nil
}

func (s *Service) OnAuthStateChange(listener backend.AuthListener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// CreateUser adds an active account. Emails are stored lower-cased.
func (s *Service) CreateUser(ctx context.Context, email, password string) (backend.User, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return backend.User{}, errors.New("email and password are required")
	}
	existing, err := s.findUser(ctx, backend.Eq("email", email))
	if err != nil {
		return backend.User{}, err
	}
	if existing != nil {
		return backend.User{}, fmt.Errorf("user %s already exists", email)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return backend.User{}, err
	}
	rows, err := s.rows.Insert(ctx, backend.TableUsers, backend.Row{
		"email":         email,
		"password_hash": hash,
		"status":        statusActive,
	})
	if err != nil {
		return backend.User{}, err
	}
	return backend.User{ID: rows[0].String("id"), Email: email}, nil
}

func (s *Service) SetPassword(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if strings.TrimSpace(password) == "" {
		return errors.New("password is required")
	}
	existing, err := s.findUser(ctx, backend.Eq("email", email))
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("user %s: %w", email, backend.ErrNotFound)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.rows.Update(ctx, backend.TableUsers,
		backend.Row{"password_hash": hash},
		[]backend.Filter{backend.Eq("id", existing.String("id"))},
	)
}

func (s *Service) findUser(ctx context.Context, filter backend.Filter) (backend.Row, error) {
	rows, err := s.rows.Select(ctx, backend.TableUsers, backend.Query{}.Where(filter).Between(0, 0))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (s *Service) issue(user backend.User) (backend.Session, error) {
	access, exp, err := s.tokens.CreateAccessToken(user.ID, user.Email)
	if err != nil {
		return backend.Session{}, err
	}
	refresh, err := s.tokens.CreateRefreshToken(user.ID)
	if err != nil {
		return backend.Session{}, err
	}
	return backend.Session{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp, User: user}, nil
}

func (s *Service) revoke(jti string, until time.Time) {
	if jti == "" {
		return
	}
	now := s.tokens.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[jti] = until
}

func expiryOf(c *tokenClaims) time.Time {
	if c.ExpiresAt == nil {
		return time.Now().Add(24 * time.Hour)
	}
	return c.ExpiresAt.Time
}

func (s *Service) isRevoked(jti string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[jti]
	return ok
}

func (s *Service) notify(event backend.AuthEvent, user *backend.User) {
	s.mu.Lock()
	listeners := make([]backend.AuthListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()
	for _, l := range listeners {
		l(event, user)
	}
}
