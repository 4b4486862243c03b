package viewer

import (
	"context"

	json "github.com/goccy/go-json"

	"github.com/Vovarama1992/viewer_host/internal/document"
)

// Instance is the opaque handle to a live engine-owned viewer session. The
// host keeps it only to forward it (status endpoint, callbacks) and to name
// it when unloading; Raw is never interpreted.
type Instance struct {
	ID  string          `json:"id"`
	Raw json.RawMessage `json:"raw,omitempty"`
}

// LoadConfig is what the engine needs to open a session. Options is supplied
// by the host and passed through untouched (licensing, presentation flags and
// the rest of the engine's knob surface live there).
type LoadConfig struct {
	Container string
	Document  document.Reference
	Options   map[string]any
}

// UnloadTarget names what to release: a container (everything bound to it) or
// a single instance.
type UnloadTarget struct {
	Container string `json:"container,omitempty"`
	Instance  string `json:"instance,omitempty"`
}

// Engine is the external viewer service. Load resolves with an opaque
// instance or rejects; Unload reports whether anything was actually released
// and is safe to call redundantly.
type Engine interface {
	Load(ctx context.Context, cfg LoadConfig) (*Instance, error)
	Unload(ctx context.Context, target UnloadTarget) (bool, error)
}
