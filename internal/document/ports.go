package document

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("document: not found")

type Kind string

const (
	KindURL  Kind = "url"
	KindBlob Kind = "blob"
)

// Reference identifies the document a viewer should display. References are
// values: superseding one never mutates it, a blob-backed reference is
// released as a whole (object + registry row).
type Reference struct {
	ID          uuid.UUID `json:"id"`
	Kind        Kind      `json:"kind"`
	URL         string    `json:"url"`
	Key         string    `json:"-"` // S3 object key, blob refs only
	Name        string    `json:"name"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsZero reports whether the reference points at nothing.
func (r Reference) IsZero() bool {
	return r.URL == "" && r.Key == ""
}

type BlobInfo struct {
	Key          string
	LastModified time.Time
}

type BlobStore interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	RemoveObject(ctx context.Context, key string) error
	ListObjects(ctx context.Context) ([]BlobInfo, error)
}

// Repo is the Postgres registry of references.
type Repo interface {
	Create(ctx context.Context, ref Reference) error
	Get(ctx context.Context, id uuid.UUID) (Reference, error)
	List(ctx context.Context) ([]Reference, error)
	Delete(ctx context.Context, id uuid.UUID) error
	HasKey(ctx context.Context, key string) (bool, error)
}

// Catalog is the read/release surface the delivery layer consumes.
type Catalog interface {
	Get(ctx context.Context, id uuid.UUID) (Reference, error)
	List(ctx context.Context) ([]Reference, error)
	Release(ctx context.Context, ref Reference) error
}
