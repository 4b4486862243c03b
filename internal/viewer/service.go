package viewer

import (
	"context"
	"log"
	"sync"
)

// Manager hands out one Mount per container and tears them all down on
// shutdown.
type Manager struct {
	engine Engine

	mu     sync.Mutex
	mounts map[string]*Mount
	closed bool
}

func NewManager(engine Engine) *Manager {
	return &Manager{
		engine: engine,
		mounts: make(map[string]*Mount),
	}
}

// Mount returns the mount for the container, creating it on first use.
// Returns nil after Shutdown.
func (s *Manager) Mount(container string) *Mount {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	m, ok := s.mounts[container]
	if !ok {
		m = NewMount(container, s.engine)
		s.mounts[container] = m
	}
	return m
}

// Get returns an existing mount without creating one.
func (s *Manager) Get(container string) (*Mount, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mounts[container]
	return m, ok
}

// Shutdown closes every mount. Errors are logged, not returned: teardown is
// best effort and must empty every container it can.
func (s *Manager) Shutdown(ctx context.Context) {
	s.mu.Lock()
	s.closed = true
	mounts := make([]*Mount, 0, len(s.mounts))
	for _, m := range s.mounts {
		mounts = append(mounts, m)
	}
	s.mu.Unlock()

	for _, m := range mounts {
		if err := m.Close(ctx); err != nil {
			log.Printf("[viewer] shutdown: close %s: %v", m.Container(), err)
		}
	}
}
