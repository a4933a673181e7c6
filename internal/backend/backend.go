// Package backend defines the three capabilities the site depends on: an
// identity service, a row store and an object store. Controllers only see
// these interfaces, so each one can run against the SQL store, the memory
// store or a test fake.
package backend

import (
	"context"
	"io"
	"time"
)

// Table names owned by the row store.
const (
	TableEvents        = "events"
	TableGallery       = "gallery"
	TableMembers       = "members"
	TableEnquiries     = "enquiries"
	TableUsers         = "users"
	TableMetricSamples = "metric_samples"
)

// Bucket names owned by the object store.
const (
	BucketGallery = "gallery"
	BucketMembers = "members"
)

type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
)

type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func Gte(column string, value any) Filter {
	return Filter{Column: column, Op: OpGte, Value: value}
}

type Order struct {
	Column    string
	Ascending bool
}

// Range selects rows From..To inclusive, both 0-based.
type Range struct {
	From int
	To   int
}

// Clamped drops the part of the range before row 0. A range lying wholly
// before row 0 becomes empty.
func (r Range) Clamped() Range {
	if r.From < 0 {
		r.From = 0
	}
	return r
}

func (r Range) Limit() int {
	if r.To < r.From {
		return 0
	}
	return r.To - r.From + 1
}

// Query describes a select. An empty Columns slice selects every column.
type Query struct {
	Columns []string
	Filters []Filter
	Orders  []Order
	Range   *Range
}

func (q Query) Where(filters ...Filter) Query {
	q.Filters = append(append([]Filter{}, q.Filters...), filters...)
	return q
}

func (q Query) OrderBy(column string, ascending bool) Query {
	q.Orders = append(append([]Order{}, q.Orders...), Order{Column: column, Ascending: ascending})
	return q
}

func (q Query) Between(from, to int) Query {
	q.Range = &Range{From: from, To: to}
	return q
}

// RowStore is the relational table capability.
type RowStore interface {
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Count(ctx context.Context, table string, filters []Filter) (int, error)
	// Insert fills "id" and "created_at" when the caller leaves them out and
	// returns the rows as stored.
	Insert(ctx context.Context, table string, rows ...Row) ([]Row, error)
	Update(ctx context.Context, table string, patch Row, filters []Filter) error
	Delete(ctx context.Context, table string, filters []Filter) error
}

type UploadOptions struct {
	Overwrite    bool
	ContentType  string
	CacheControl string
}

// ObjectStore is the binary storage capability with public URLs.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, opts UploadOptions) error
	PublicURL(bucket, key string) string
	// KeyFromURL reverses PublicURL. ok is false when url does not carry a
	// key for bucket.
	KeyFromURL(bucket, url string) (key string, ok bool)
	Remove(ctx context.Context, bucket string, keys []string) error
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
}

type ObjectInfo struct {
	Size         int64
	ContentType  string
	ModifiedAt   time.Time
	CacheControl string
}

// User is the identity as seen by controllers.
type User struct {
	ID    string
	Email string
}

type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
	User         User
}

type AuthEvent string

const (
	AuthSignedIn       AuthEvent = "SIGNED_IN"
	AuthSignedOut      AuthEvent = "SIGNED_OUT"
	AuthTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthListener receives auth-state changes. user is nil after sign-out.
type AuthListener func(event AuthEvent, user *User)

// Identity is the authentication capability.
type Identity interface {
	// CurrentUser returns nil, nil when token carries no live session.
	CurrentUser(ctx context.Context, token string) (*User, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, token string) error
	Refresh(ctx context.Context, refreshToken string) (Session, error)
	OnAuthStateChange(listener AuthListener) (unsubscribe func())
}
