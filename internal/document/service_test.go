package document_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/viewer_host/internal/document"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string]document.BlobInfo
	calls   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]document.BlobInfo)}
}

func (s *fakeStore) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "put "+key)
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	s.objects[key] = document.BlobInfo{Key: key, LastModified: time.Now()}
	return "https://s3.example.com/bucket/" + key, nil
}

func (s *fakeStore) RemoveObject(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "remove "+key)
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) ListObjects(ctx context.Context) ([]document.BlobInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var infos []document.BlobInfo
	for _, info := range s.objects {
		infos = append(infos, info)
	}
	return infos, nil
}

type fakeRepo struct {
	mu        sync.Mutex
	refs      map[uuid.UUID]document.Reference
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{refs: make(map[uuid.UUID]document.Reference)}
}

func (r *fakeRepo) Create(ctx context.Context, ref document.Reference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.refs[ref.ID] = ref
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, id uuid.UUID) (document.Reference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.refs[id]
	if !ok {
		return document.Reference{}, document.ErrNotFound
	}
	return ref, nil
}

func (r *fakeRepo) List(ctx context.Context) ([]document.Reference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []document.Reference
	for _, ref := range r.refs {
		out = append(out, ref)
	}
	return out, nil
}

func (r *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.refs[id]; !ok {
		return document.ErrNotFound
	}
	delete(r.refs, id)
	return nil
}

func (r *fakeRepo) HasKey(ctx context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range r.refs {
		if ref.Key == key {
			return true, nil
		}
	}
	return false, nil
}

func TestStoreUploadRegistersBlobReference(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	svc := document.NewService(store, repo)

	ref, err := svc.StoreUpload(context.Background(), "report.pdf", "application/pdf", bytes.NewReader([]byte("%PDF-1.7")), 8)
	require.NoError(t, err)

	assert.Equal(t, document.KindBlob, ref.Kind)
	assert.Equal(t, "report.pdf", ref.Name)
	assert.NotEmpty(t, ref.Key)
	assert.Contains(t, ref.URL, ref.ID.String())
	assert.False(t, ref.IsZero())

	stored, err := repo.Get(context.Background(), ref.ID)
	require.NoError(t, err)
	assert.Equal(t, ref.Key, stored.Key)
}

func TestStoreUploadRemovesObjectWhenRegistrationFails(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	repo.createErr = errors.New("db down")
	svc := document.NewService(store, repo)

	_, err := svc.StoreUpload(context.Background(), "report.pdf", "application/pdf", bytes.NewReader([]byte("x")), 1)
	require.Error(t, err)

	// нет строки в реестре — нет и объекта
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.objects)
}

func TestRegisterURL(t *testing.T) {
	svc := document.NewService(newFakeStore(), newFakeRepo())

	ref, err := svc.RegisterURL(context.Background(), "https://docs.example.com/guide.pdf")
	require.NoError(t, err)
	assert.Equal(t, document.KindURL, ref.Kind)
	assert.Equal(t, "guide.pdf", ref.Name)
	assert.Empty(t, ref.Key)

	_, err = svc.RegisterURL(context.Background(), "ftp://docs.example.com/guide.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported url scheme")
}

func TestReleaseBlobRemovesObjectAndRow(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	svc := document.NewService(store, repo)

	ref, err := svc.StoreUpload(context.Background(), "a.pdf", "application/pdf", bytes.NewReader([]byte("x")), 1)
	require.NoError(t, err)

	require.NoError(t, svc.Release(context.Background(), ref))

	_, err = repo.Get(context.Background(), ref.ID)
	assert.ErrorIs(t, err, document.ErrNotFound)

	store.mu.Lock()
	_, exists := store.objects[ref.Key]
	store.mu.Unlock()
	assert.False(t, exists)

	// releasing again is a no-op
	require.NoError(t, svc.Release(context.Background(), ref))
}

func TestReleaseURLRefTouchesNoObjects(t *testing.T) {
	store := newFakeStore()
	repo := newFakeRepo()
	svc := document.NewService(store, repo)

	ref, err := svc.RegisterURL(context.Background(), "https://docs.example.com/guide.pdf")
	require.NoError(t, err)

	require.NoError(t, svc.Release(context.Background(), ref))

	store.mu.Lock()
	defer store.mu.Unlock()
	for _, call := range store.calls {
		assert.NotContains(t, call, "remove")
	}
}

func TestObjectKeyUsesDateAndID(t *testing.T) {
	svc := document.NewService(newFakeStore(), newFakeRepo())
	id := uuid.New()

	key := svc.ObjectKey(id, "../../etc/report.pdf")
	assert.Equal(t, fmt.Sprintf("%s/%s/report.pdf", time.Now().Format("2006-01-02"), id), key)
}
