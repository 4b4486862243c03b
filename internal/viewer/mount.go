package viewer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/Vovarama1992/viewer_host/internal/document"
)

var (
	ErrSuperseded = errors.New("viewer: bind superseded by a newer request")
	ErrClosed     = errors.New("viewer: mount closed")
	ErrNoDocument = errors.New("viewer: document reference required")
)

type State string

const (
	StateEmpty     State = "empty"
	StateLoading   State = "loading"
	StateBound     State = "bound"
	StateUnloading State = "unloading"
)

// Mount owns the load/unload lifecycle of at most one live engine instance
// bound to one container. Every Bind/Unbind/Close bumps a generation counter;
// a load that resolves under a stale generation is never stored — its
// instance is released immediately.
type Mount struct {
	container string
	engine    Engine

	mu       sync.Mutex
	state    State
	gen      uint64
	inst     *Instance
	cancel   context.CancelFunc
	closed   bool
	onLoaded func(*Instance)
	onError  func(string)
}

func NewMount(container string, engine Engine) *Mount {
	return &Mount{
		container: container,
		engine:    engine,
		state:     StateEmpty,
	}
}

func (m *Mount) Container() string { return m.container }

func (m *Mount) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Instance returns the currently bound handle, nil while not Bound.
func (m *Mount) Instance() *Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inst
}

func (m *Mount) OnLoaded(fn func(*Instance)) {
	m.mu.Lock()
	m.onLoaded = fn
	m.mu.Unlock()
}

func (m *Mount) OnError(fn func(string)) {
	m.mu.Lock()
	m.onError = fn
	m.mu.Unlock()
}

// Bind swaps the container onto the given document: release whatever the
// engine holds for the container, then load. The unload is awaited before the
// load is issued, so the single-binding invariant holds even while swapping.
func (m *Mount) Bind(ctx context.Context, doc document.Reference, opts map[string]any) (*Instance, error) {
	if doc.IsZero() {
		return nil, ErrNoDocument
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if m.cancel != nil {
		m.cancel() // supersede any in-flight load
	}
	m.gen++
	gen := m.gen
	m.state = StateLoading
	m.inst = nil
	loadCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	onLoaded, onError := m.onLoaded, m.onError
	m.mu.Unlock()

	tag := xid.New().String()
	log.Printf("[viewer] bind %s container=%s doc=%q", tag, m.container, doc.Name)

	if _, err := m.engine.Unload(loadCtx, UnloadTarget{Container: m.container}); err != nil {
		if !m.current(gen) {
			return nil, ErrSuperseded
		}
		ferr := fmt.Errorf("unload before load: %w", err)
		m.finish(gen, StateEmpty, nil)
		if onError != nil {
			onError(ferr.Error())
		}
		return nil, ferr
	}
	if !m.current(gen) {
		return nil, ErrSuperseded
	}

	inst, err := m.engine.Load(loadCtx, LoadConfig{
		Container: m.container,
		Document:  doc,
		Options:   opts,
	})

	if !m.current(gen) {
		if inst != nil {
			// Resolved too late for a superseded request: the session must
			// not outlive it.
			m.discard(tag, inst)
		}
		return nil, ErrSuperseded
	}

	if err != nil {
		m.finish(gen, StateEmpty, nil)
		log.Printf("[viewer] bind %s failed: %v", tag, err)
		if onError != nil {
			onError(err.Error())
		}
		return nil, fmt.Errorf("load %q: %w", doc.Name, err)
	}

	if !m.finish(gen, StateBound, inst) {
		m.discard(tag, inst)
		return nil, ErrSuperseded
	}

	log.Printf("[viewer] bind %s resolved instance=%s", tag, inst.ID)
	if onLoaded != nil {
		onLoaded(inst)
	}
	return inst, nil
}

// Unbind releases whatever is bound to the container. Idempotent: unbinding
// an empty container returns false without error. Any in-flight load is
// superseded.
func (m *Mount) Unbind(ctx context.Context) (bool, error) {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.gen++
	gen := m.gen
	m.state = StateUnloading
	m.inst = nil
	m.mu.Unlock()

	released, err := m.engine.Unload(ctx, UnloadTarget{Container: m.container})

	m.mu.Lock()
	if m.gen == gen {
		m.state = StateEmpty
	}
	m.mu.Unlock()

	if err != nil {
		return false, fmt.Errorf("unload container %s: %w", m.container, err)
	}
	return released, nil
}

// Close tears the mount down from any state. Binds after Close fail with
// ErrClosed; a load racing the close resolves stale and is discarded.
func (m *Mount) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	_, err := m.Unbind(ctx)
	return err
}

// current reports whether gen is still the newest bind request.
func (m *Mount) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen
}

// finish commits the outcome of a load attempt if its generation is still
// current.
func (m *Mount) finish(gen uint64, state State, inst *Instance) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return false
	}
	m.state = state
	m.inst = inst
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	return true
}

// discard releases an instance that resolved after its request was
// superseded. Targets the instance, not the container: a newer session may
// already be bound there.
func (m *Mount) discard(tag string, inst *Instance) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := m.engine.Unload(ctx, UnloadTarget{Instance: inst.ID}); err != nil {
		log.Printf("[viewer] bind %s: discard of stale instance %s failed: %v", tag, inst.ID, err)
		return
	}
	log.Printf("[viewer] bind %s: discarded stale instance %s", tag, inst.ID)
}
