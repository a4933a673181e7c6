package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"salterio-site/internal/backend"
	"salterio-site/internal/backend/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	rows := memstore.New()
	svc := New(rows, TokenService{
		Secret:     []byte("test-secret"),
		Issuer:     "salterio-test",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	})
	_, err := svc.CreateUser(context.Background(), "  Admin@Salterio.org ", "correct horse")
	require.NoError(t, err)
	return svc, rows
}

func TestSignInAndCurrentUser(t *testing.T) {
	svc, rows := newTestService(t)
	ctx := context.Background()

	var events []backend.AuthEvent
	unsubscribe := svc.OnAuthStateChange(func(e backend.AuthEvent, _ *backend.User) { events = append(events, e) })
	defer unsubscribe()

	session, err := svc.SignIn(ctx, "admin@salterio.org", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "admin@salterio.org", session.User.Email)
	assert.NotEmpty(t, session.RefreshToken)

	user, err := svc.CurrentUser(ctx, session.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, session.User.ID, user.ID)

	stored, err := rows.Select(ctx, backend.TableUsers, backend.Query{})
	require.NoError(t, err)
	assert.False(t, stored[0].Time("last_login_at").IsZero())
	assert.Equal(t, []backend.AuthEvent{backend.AuthSignedIn}, events)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "admin@salterio.org", "nope"},
		{"unknown user", "someone@salterio.org", "correct horse"},
		{"blank", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignIn(ctx, tt.email, tt.password)
			assert.ErrorAs(t, err, new(backend.AuthError))
		})
	}
}

func TestCurrentUserWithoutSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, token := range []string{"", "not-a-jwt"} {
		user, err := svc.CurrentUser(ctx, token)
		assert.NoError(t, err)
		assert.Nil(t, user)
	}

	session, err := svc.SignIn(ctx, "admin@salterio.org", "correct horse")
	require.NoError(t, err)
	user, err := svc.CurrentUser(ctx, session.RefreshToken)
	assert.NoError(t, err)
	assert.Nil(t, user, "refresh tokens do not authenticate requests")
}

func TestSignOutRevokesAccessToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var got []backend.AuthEvent
	svc.OnAuthStateChange(func(e backend.AuthEvent, u *backend.User) {
		got = append(got, e)
		if e == backend.AuthSignedOut {
			assert.Nil(t, u)
		}
	})

	session, err := svc.SignIn(ctx, "admin@salterio.org", "correct horse")
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx, session.AccessToken))

	user, err := svc.CurrentUser(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Equal(t, []backend.AuthEvent{backend.AuthSignedIn, backend.AuthSignedOut}, got)
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.SignIn(ctx, "admin@salterio.org", "correct horse")
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, next.RefreshToken)

	_, err = svc.Refresh(ctx, session.RefreshToken)
	assert.ErrorAs(t, err, new(backend.AuthError), "a refresh token works once")

	_, err = svc.Refresh(ctx, next.AccessToken)
	assert.ErrorAs(t, err, new(backend.AuthError))
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	svc, _ := newTestService(t)
	calls := 0
	unsubscribe := svc.OnAuthStateChange(func(backend.AuthEvent, *backend.User) { calls++ })
	unsubscribe()

	require.NoError(t, svc.SignOut(context.Background(), ""))
	assert.Zero(t, calls)
}

func TestExpiredAccessToken(t *testing.T) {
	rows := memstore.New()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := New(rows, TokenService{
		Secret:     []byte("s"),
		Issuer:     "i",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Now:        func() time.Time { return now },
	})
	_, err := svc.CreateUser(context.Background(), "a@b.co", "pw")
	require.NoError(t, err)
	session, err := svc.SignIn(context.Background(), "a@b.co", "pw")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	user, err := svc.CurrentUser(context.Background(), session.AccessToken)
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestCreateUserAndSetPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "admin@salterio.org", "again")
	assert.Error(t, err)

	require.NoError(t, svc.SetPassword(ctx, "ADMIN@salterio.org", "new secret"))
	_, err = svc.SignIn(ctx, "admin@salterio.org", "new secret")
	assert.NoError(t, err)

	err = svc.SetPassword(ctx, "ghost@salterio.org", "x")
	assert.True(t, errors.Is(err, backend.ErrNotFound))
}

func TestVerifyPasswordFormats(t *testing.T) {
	hash, err := HashPassword("hymn")
	require.NoError(t, err)
	assert.True(t, VerifyPassword("hymn", hash))
	assert.False(t, VerifyPassword("psalm", hash))

	legacy, err := bcrypt.GenerateFromPassword([]byte("hymn"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword("hymn", string(legacy)))

	assert.False(t, VerifyPassword("hymn", "$argon2id$broken"))
}
