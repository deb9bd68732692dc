// Package docstore is a small document store with field-path updates,
// filtered queries and live subscriptions. It backs every collection of the
// scoreboard and comes in an in-memory and a SQLite flavour.
package docstore

import (
	"context"
)

// MaxBatchWrites is the largest number of writes accepted by Batch.
const MaxBatchWrites = 500

// Document is one stored record. Data holds JSON-compatible values only:
// numbers are float64, nested objects map[string]any and lists []any.
type Document struct {
	ID        string         `json:"id"`
	Data      map[string]any `json:"data"`
	UpdatedAt int64          `json:"updatedAt"`
}

// FieldWrite sets or deletes the value at a dotless field path.
type FieldWrite struct {
	Path   []string
	Value  any
	Delete bool
}

// Set returns a FieldWrite setting path to value.
func Set(value any, path ...string) FieldWrite { return FieldWrite{Path: path, Value: value} }

// Remove returns a FieldWrite deleting path.
func Remove(path ...string) FieldWrite { return FieldWrite{Path: path, Delete: true} }

// WriteKind is the kind of a batched write.
type WriteKind int

const (
	// KindSet replaces or, with Merge, deep-merges a whole document.
	KindSet WriteKind = iota
	// KindUpdate applies field writes to an existing document.
	KindUpdate
	// KindDelete removes a document. Deleting a missing document is a no-op.
	KindDelete
)

// Write is one operation of a batch.
type Write struct {
	Kind       WriteKind
	Collection string
	ID         string
	Data       map[string]any
	Merge      bool
	Fields     []FieldWrite
}

// Subscription is a live query registration.
type Subscription interface {
	Close()
}

// Store is the document store contract.
type Store interface {
	// Get returns one document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Find returns the documents matching q.
	Find(ctx context.Context, q Query) ([]Document, error)
	// Set writes a whole document; with merge it deep-merges into the existing one.
	Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error
	// Add stores data under a generated id and returns it.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	// Update applies field writes to an existing document or returns ErrNotFound.
	Update(ctx context.Context, collection, id string, writes ...FieldWrite) error
	// Delete removes a document.
	Delete(ctx context.Context, collection, id string) error
	// Batch applies up to MaxBatchWrites writes atomically.
	Batch(ctx context.Context, writes []Write) error
	// Subscribe calls fn with the current result of q and again after every
	// change to q's collection, until the subscription is closed or ctx ends.
	// Calls for one subscription never overlap, and fn must not write to the
	// store from the calling goroutine.
	Subscribe(ctx context.Context, q Query, fn func([]Document)) (Subscription, error)
	Close() error
}
