package host

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/Vovarama1992/viewer_host/internal/document"
	"github.com/Vovarama1992/viewer_host/internal/viewer"
)

// Service is the host application: it owns the current document reference per
// container and drives the viewer mounts. Selecting a new file releases the
// previous blob-backed reference before the replacement is stored.
type Service struct {
	mounts *viewer.Manager
	docs   DocumentStore

	mu       sync.Mutex
	sessions map[string]*session
}

// session carries what the mount callbacks report, so the UI can poll it.
type session struct {
	mount *viewer.Mount

	mu       sync.Mutex
	current  *document.Reference
	instance *viewer.Instance
	lastErr  string
}

func NewService(mounts *viewer.Manager, docs DocumentStore) *Service {
	return &Service{
		mounts:   mounts,
		docs:     docs,
		sessions: make(map[string]*session),
	}
}

func (s *Service) session(container string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[container]
	if ok {
		return sess
	}

	mount := s.mounts.Mount(container)
	if mount == nil {
		return nil // manager already shut down
	}
	sess = &session{mount: mount}
	mount.OnLoaded(func(inst *viewer.Instance) {
		sess.mu.Lock()
		sess.instance = inst
		sess.lastErr = ""
		sess.mu.Unlock()
	})
	mount.OnError(func(msg string) {
		sess.mu.Lock()
		sess.instance = nil
		sess.lastErr = msg
		sess.mu.Unlock()
	})
	s.sessions[container] = sess
	return sess
}

// SelectUpload is the file-picker path: release the superseded blob, store
// the new upload, bind it. A bind failure still returns the stored reference
// so the caller can retry without re-uploading.
func (s *Service) SelectUpload(
	ctx context.Context,
	container string,
	name string,
	contentType string,
	file io.Reader,
	size int64,
) (document.Reference, error) {

	sess := s.session(container)
	if sess == nil {
		return document.Reference{}, viewer.ErrClosed
	}

	s.releasePrevious(ctx, sess, uuid.Nil)

	ref, err := s.docs.StoreUpload(ctx, name, contentType, file, size)
	if err != nil {
		return document.Reference{}, err
	}

	return ref, s.bind(ctx, sess, ref)
}

// SelectURL points the container at an already-hosted document.
func (s *Service) SelectURL(ctx context.Context, container, rawURL string) (document.Reference, error) {
	sess := s.session(container)
	if sess == nil {
		return document.Reference{}, viewer.ErrClosed
	}

	s.releasePrevious(ctx, sess, uuid.Nil)

	ref, err := s.docs.RegisterURL(ctx, rawURL)
	if err != nil {
		return document.Reference{}, err
	}

	return ref, s.bind(ctx, sess, ref)
}

// SelectDocument re-binds a reference already in the registry.
func (s *Service) SelectDocument(ctx context.Context, container string, id uuid.UUID) (document.Reference, error) {
	sess := s.session(container)
	if sess == nil {
		return document.Reference{}, viewer.ErrClosed
	}

	ref, err := s.docs.Get(ctx, id)
	if err != nil {
		return document.Reference{}, err
	}

	s.releasePrevious(ctx, sess, ref.ID)

	return ref, s.bind(ctx, sess, ref)
}

// Unselect empties the container. The current reference is kept: unbinding
// does not forget which document was selected last.
func (s *Service) Unselect(ctx context.Context, container string) (bool, error) {
	sess := s.session(container)
	if sess == nil {
		return false, viewer.ErrClosed
	}
	return sess.mount.Unbind(ctx)
}

func (s *Service) Status(container string) ContainerStatus {
	s.mu.Lock()
	sess, ok := s.sessions[container]
	s.mu.Unlock()

	if !ok {
		return ContainerStatus{Container: container, State: viewer.StateEmpty}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return ContainerStatus{
		Container: container,
		State:     sess.mount.State(),
		Instance:  sess.instance,
		Document:  sess.current,
		LastError: sess.lastErr,
	}
}

// Shutdown tears down every mount.
func (s *Service) Shutdown(ctx context.Context) {
	s.mounts.Shutdown(ctx)
}

func (s *Service) bind(ctx context.Context, sess *session, ref document.Reference) error {
	sess.mu.Lock()
	sess.current = &ref
	sess.mu.Unlock()

	if _, err := sess.mount.Bind(ctx, ref, nil); err != nil {
		return err
	}
	return nil
}

// releasePrevious drops the superseded reference if it was a transient blob.
// URL references are not ours to revoke; re-selecting the same document must
// not release what is about to be bound.
func (s *Service) releasePrevious(ctx context.Context, sess *session, except uuid.UUID) {
	sess.mu.Lock()
	prev := sess.current
	sess.mu.Unlock()

	if prev == nil || prev.Kind != document.KindBlob || prev.ID == except {
		return
	}
	if err := s.docs.Release(ctx, *prev); err != nil {
		log.Printf("[host] release of superseded %s failed: %v", prev.Key, err)
	}
}

var _ ViewerHost = (*Service)(nil)
