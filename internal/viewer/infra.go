package viewer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	json "github.com/goccy/go-json"
)

type loadRequest struct {
	Container string         `json:"container"`
	Document  loadDocument   `json:"document"`
	License   string         `json:"license_key,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

type loadDocument struct {
	Kind        string `json:"kind"`
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

type unloadResponse struct {
	Released bool `json:"released"`
}

// HTTPEngine talks to the external viewer engine over its HTTP control API.
type HTTPEngine struct {
	baseURL string
	license string
	client  *http.Client
}

func NewHTTPEngine() *HTTPEngine {
	base := os.Getenv("VIEWER_ENGINE_URL")
	if base == "" {
		base = "http://viewer_engine:8000"
	}
	return &HTTPEngine{
		baseURL: strings.TrimRight(base, "/"),
		license: os.Getenv("VIEWER_LICENSE_KEY"),
		client:  http.DefaultClient,
	}
}

func (e *HTTPEngine) Load(ctx context.Context, cfg LoadConfig) (*Instance, error) {
	body, err := json.Marshal(loadRequest{
		Container: cfg.Container,
		Document: loadDocument{
			Kind:        string(cfg.Document.Kind),
			URL:         cfg.Document.URL,
			Name:        cfg.Document.Name,
			ContentType: cfg.Document.ContentType,
		},
		License: e.license,
		Options: cfg.Options,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[viewer.engine] load container=%s doc=%q", cfg.Container, cfg.Document.Name)

	raw, err := e.post(ctx, "/load", body)
	if err != nil {
		return nil, err
	}

	var inst Instance
	if err := json.Unmarshal(raw, &inst); err != nil {
		return nil, fmt.Errorf("decode load response: %w", err)
	}
	if inst.ID == "" {
		return nil, fmt.Errorf("engine returned no instance id")
	}
	inst.Raw = raw
	return &inst, nil
}

func (e *HTTPEngine) Unload(ctx context.Context, target UnloadTarget) (bool, error) {
	body, err := json.Marshal(target)
	if err != nil {
		return false, err
	}

	raw, err := e.post(ctx, "/unload", body)
	if err != nil {
		return false, err
	}

	var out unloadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return false, fmt.Errorf("decode unload response: %w", err)
	}
	return out.Released, nil
}

func (e *HTTPEngine) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		log.Printf("[viewer.engine] HTTP ERROR on %s: %v", path, err)
		return nil, fmt.Errorf("engine request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != 200 {
		log.Printf("[viewer.engine] bad status %d on %s: %s", resp.StatusCode, path, string(raw))
		return nil, fmt.Errorf("engine %s: %s", path, engineMessage(raw, resp.StatusCode))
	}
	return raw, nil
}

// engineMessage pulls the engine's own error text out of a failure body so
// the host can show it verbatim.
func engineMessage(raw []byte, status int) string {
	var out struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &out); err == nil {
		if out.Error != "" {
			return out.Error
		}
		if out.Message != "" {
			return out.Message
		}
	}
	return fmt.Sprintf("status %d", status)
}

var _ Engine = (*HTTPEngine)(nil)
