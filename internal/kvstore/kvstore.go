// Package kvstore keeps small pieces of process state, such as scheduled job
// records and the alert inbox, outside the relational store.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key is absent
var ErrNotFound = errors.New("key not found")

// Entry is one key/value pair of a bucket
type Entry struct {
	Key   string
	Value []byte
}

// Store is a bucketed key/value store
type Store interface {
	Put(ctx context.Context, bucket, key string, value []byte) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
	// List returns the bucket's entries ordered by key
	List(ctx context.Context, bucket string) ([]Entry, error)
	Close() error
}

// PutJSON stores v encoded as JSON
func PutJSON(ctx context.Context, s Store, bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", bucket, key, err)
	}
	return s.Put(ctx, bucket, key, data)
}

// GetJSON decodes the JSON value stored under key into v
func GetJSON(ctx context.Context, s Store, bucket, key string, v any) error {
	data, err := s.Get(ctx, bucket, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s/%s: %w", bucket, key, err)
	}
	return nil
}
