// Package backendtest wraps real stores with call recording and failure
// injection for controller tests.
package backendtest

import (
	"context"
	"io"
	"strings"
	"sync"

	"salterio-site/internal/backend"
)

type Call struct {
	Op    string
	Table string
}

// RowStore records every call and fails the ones registered with FailOn.
type RowStore struct {
	Inner backend.RowStore

	mu    sync.Mutex
	calls []Call
	fail  map[string]error
}

func NewRowStore(inner backend.RowStore) *RowStore {
	return &RowStore{Inner: inner, fail: map[string]error{}}
}

// FailOn makes op on table return err. An empty table matches every table.
func (r *RowStore) FailOn(op, table string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[op+":"+table] = err
}

func (r *RowStore) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.fail = map[string]error{}
}

func (r *RowStore) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

func (r *RowStore) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *RowStore) record(op, table string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Table: table})
	if err, ok := r.fail[op+":"+table]; ok {
		return backend.WrapQuery(table, op, err)
	}
	if err, ok := r.fail[op+":"]; ok {
		return backend.WrapQuery(table, op, err)
	}
	return nil
}

func (r *RowStore) Select(ctx context.Context, table string, q backend.Query) ([]backend.Row, error) {
	if err := r.record("select", table); err != nil {
		return nil, err
	}
	return r.Inner.Select(ctx, table, q)
}

func (r *RowStore) Count(ctx context.Context, table string, filters []backend.Filter) (int, error) {
	if err := r.record("count", table); err != nil {
		return 0, err
	}
	return r.Inner.Count(ctx, table, filters)
}

func (r *RowStore) Insert(ctx context.Context, table string, rows ...backend.Row) ([]backend.Row, error) {
	if err := r.record("insert", table); err != nil {
		return nil, err
	}
	return r.Inner.Insert(ctx, table, rows...)
}

func (r *RowStore) Update(ctx context.Context, table string, patch backend.Row, filters []backend.Filter) error {
	if err := r.record("update", table); err != nil {
		return err
	}
	return r.Inner.Update(ctx, table, patch, filters)
}

func (r *RowStore) Delete(ctx context.Context, table string, filters []backend.Filter) error {
	if err := r.record("delete", table); err != nil {
		return err
	}
	return r.Inner.Delete(ctx, table, filters)
}

// ObjectStore records uploads and removals. Uploads whose key contains one
// of FailUploadContaining fail; every Remove fails while FailRemove is set.
type ObjectStore struct {
	Inner backend.ObjectStore

	mu                   sync.Mutex
	FailUploadContaining []string
	FailRemove           error
	Uploaded             []string
	Removed              []string
}

func NewObjectStore(inner backend.ObjectStore) *ObjectStore {
	return &ObjectStore{Inner: inner}
}

func (o *ObjectStore) Upload(ctx context.Context, bucket, key string, body io.Reader, opts backend.UploadOptions) error {
	o.mu.Lock()
	for _, frag := range o.FailUploadContaining {
		if strings.Contains(key, frag) {
			o.mu.Unlock()
			return backend.WrapStorage(bucket, key, "upload", io.ErrUnexpectedEOF)
		}
	}
	o.mu.Unlock()
	if err := o.Inner.Upload(ctx, bucket, key, body, opts); err != nil {
		return err
	}
	o.mu.Lock()
	o.Uploaded = append(o.Uploaded, bucket+"/"+key)
	o.mu.Unlock()
	return nil
}

func (o *ObjectStore) PublicURL(bucket, key string) string {
	return o.Inner.PublicURL(bucket, key)
}

func (o *ObjectStore) KeyFromURL(bucket, url string) (string, bool) {
	return o.Inner.KeyFromURL(bucket, url)
}

func (o *ObjectStore) Remove(ctx context.Context, bucket string, keys []string) error {
	o.mu.Lock()
	fail := o.FailRemove
	o.mu.Unlock()
	if fail != nil {
		return backend.WrapStorage(bucket, strings.Join(keys, ","), "remove", fail)
	}
	if err := o.Inner.Remove(ctx, bucket, keys); err != nil {
		return err
	}
	o.mu.Lock()
	for _, k := range keys {
		o.Removed = append(o.Removed, bucket+"/"+k)
	}
	o.mu.Unlock()
	return nil
}

func (o *ObjectStore) Open(ctx context.Context, bucket, key string) (io.ReadCloser, backend.ObjectInfo, error) {
	return o.Inner.Open(ctx, bucket, key)
}
