package document

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

type Service struct {
	store BlobStore
	repo  Repo
}

func NewService(store BlobStore, repo Repo) *Service {
	return &Service{store: store, repo: repo}
}

// ObjectKey — путь в бакете
func (s *Service) ObjectKey(id uuid.UUID, filename string) string {
	date := time.Now().Format("2006-01-02")
	clean := filepath.Base(filename)
	return fmt.Sprintf("%s/%s/%s", date, id, clean)
}

// StoreUpload saves the picked file to S3 and registers a blob reference.
func (s *Service) StoreUpload(
	ctx context.Context,
	name string,
	contentType string,
	file io.Reader,
	size int64,
) (Reference, error) {

	if name == "" {
		return Reference{}, fmt.Errorf("filename required")
	}

	id := uuid.New()
	key := s.ObjectKey(id, name)

	publicURL, err := s.store.PutObject(ctx, key, file, size, contentType)
	if err != nil {
		return Reference{}, fmt.Errorf("store upload: %w", err)
	}

	ref := Reference{
		ID:          id,
		Kind:        KindBlob,
		URL:         publicURL,
		Key:         key,
		Name:        filepath.Base(name),
		ContentType: contentType,
		Size:        size,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, ref); err != nil {
		// не оставляем объект без записи в реестре
		_ = s.store.RemoveObject(ctx, key)
		return Reference{}, fmt.Errorf("register upload: %w", err)
	}

	log.Printf("[doc] stored %q (%s) as %s", ref.Name, humanize.Bytes(uint64(max(size, 0))), key)
	return ref, nil
}

// RegisterURL registers a reference pointing at an already-hosted document.
func (s *Service) RegisterURL(ctx context.Context, rawURL string) (Reference, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Reference{}, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Reference{}, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	ref := Reference{
		ID:        uuid.New(),
		Kind:      KindURL,
		URL:       rawURL,
		Name:      filepath.Base(u.Path),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, ref); err != nil {
		return Reference{}, fmt.Errorf("register url: %w", err)
	}
	return ref, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Reference, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Reference, error) {
	return s.repo.List(ctx)
}

// Release drops the reference: the S3 object first (blob refs only), then the
// registry row. Releasing an already-gone reference is not an error.
func (s *Service) Release(ctx context.Context, ref Reference) error {
	if ref.Kind == KindBlob && ref.Key != "" {
		if err := s.store.RemoveObject(ctx, ref.Key); err != nil {
			return fmt.Errorf("remove object %s: %w", ref.Key, err)
		}
		log.Printf("[doc] released blob %s", ref.Key)
	}
	if err := s.repo.Delete(ctx, ref.ID); err != nil && err != ErrNotFound {
		return fmt.Errorf("delete registry row: %w", err)
	}
	return nil
}
