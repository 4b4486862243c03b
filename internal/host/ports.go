package host

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/Vovarama1992/viewer_host/internal/document"
	"github.com/Vovarama1992/viewer_host/internal/viewer"
)

// DocumentStore is what the host needs from the document domain.
type DocumentStore interface {
	StoreUpload(ctx context.Context, name, contentType string, file io.Reader, size int64) (document.Reference, error)
	RegisterURL(ctx context.Context, rawURL string) (document.Reference, error)
	Get(ctx context.Context, id uuid.UUID) (document.Reference, error)
	Release(ctx context.Context, ref document.Reference) error
}

// ContainerStatus is the host-side view of one container, what the embedding
// UI polls.
type ContainerStatus struct {
	Container string              `json:"container"`
	State     viewer.State        `json:"state"`
	Instance  *viewer.Instance    `json:"instance,omitempty"`
	Document  *document.Reference `json:"document,omitempty"`
	LastError string              `json:"last_error,omitempty"`
}

// ViewerHost is the surface the delivery layer consumes.
type ViewerHost interface {
	SelectUpload(ctx context.Context, container, name, contentType string, file io.Reader, size int64) (document.Reference, error)
	SelectURL(ctx context.Context, container, rawURL string) (document.Reference, error)
	SelectDocument(ctx context.Context, container string, id uuid.UUID) (document.Reference, error)
	Unselect(ctx context.Context, container string) (bool, error)
	Status(container string) ContainerStatus
}
