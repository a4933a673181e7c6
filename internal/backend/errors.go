package backend

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrObjectExists  = errors.New("object already exists")
	ErrInvalidKey    = errors.New("invalid object key")
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
	ErrMissingFilter = errors.New("refusing to touch every row: no filter given")
)

// AuthError reports rejected credentials or an unusable token.
type AuthError struct {
	Message string
}

func (e AuthError) Error() string {
	return e.Message
}

// QueryError wraps a row-store failure with the table and operation.
type QueryError struct {
	Table string
	Op    string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// StorageError wraps an object-store failure with the bucket and key.
type StorageError struct {
	Bucket string
	Key    string
	Op     string
	Err    error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func WrapQuery(table, op string, err error) error {
	if err == nil {
		return nil
	}
	var qerr *QueryError
	if errors.As(err, &qerr) {
		return err
	}
	return &QueryError{Table: table, Op: op, Err: err}
}

func WrapStorage(bucket, key, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Bucket: bucket, Key: key, Op: op, Err: err}
}
