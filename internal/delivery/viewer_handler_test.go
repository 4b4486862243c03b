package delivery_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Vovarama1992/viewer_host/internal/delivery"
	"github.com/Vovarama1992/viewer_host/internal/document"
	"github.com/Vovarama1992/viewer_host/internal/host"
	"github.com/Vovarama1992/viewer_host/internal/viewer"
)

type fakeHost struct {
	selectErr error
	released  bool
	lastRef   document.Reference
}

func (f *fakeHost) SelectUpload(ctx context.Context, container, name, contentType string, file io.Reader, size int64) (document.Reference, error) {
	if f.selectErr != nil {
		return document.Reference{}, f.selectErr
	}
	f.lastRef = document.Reference{ID: uuid.New(), Kind: document.KindBlob, URL: "https://s3/b/" + name, Key: "b/" + name, Name: name}
	return f.lastRef, nil
}

func (f *fakeHost) SelectURL(ctx context.Context, container, rawURL string) (document.Reference, error) {
	if f.selectErr != nil {
		return document.Reference{}, f.selectErr
	}
	f.lastRef = document.Reference{ID: uuid.New(), Kind: document.KindURL, URL: rawURL, Name: rawURL}
	return f.lastRef, nil
}

func (f *fakeHost) SelectDocument(ctx context.Context, container string, id uuid.UUID) (document.Reference, error) {
	if f.selectErr != nil {
		return document.Reference{}, f.selectErr
	}
	f.lastRef = document.Reference{ID: id, Kind: document.KindURL, URL: "https://docs/x.pdf", Name: "x.pdf"}
	return f.lastRef, nil
}

func (f *fakeHost) Unselect(ctx context.Context, container string) (bool, error) {
	return f.released, nil
}

func (f *fakeHost) Status(container string) host.ContainerStatus {
	return host.ContainerStatus{Container: container, State: viewer.StateBound}
}

type fakeCatalog struct {
	refs     []document.Reference
	released []uuid.UUID
}

func (c *fakeCatalog) Get(ctx context.Context, id uuid.UUID) (document.Reference, error) {
	for _, ref := range c.refs {
		if ref.ID == id {
			return ref, nil
		}
	}
	return document.Reference{}, document.ErrNotFound
}

func (c *fakeCatalog) List(ctx context.Context) ([]document.Reference, error) {
	return c.refs, nil
}

func (c *fakeCatalog) Release(ctx context.Context, ref document.Reference) error {
	c.released = append(c.released, ref.ID)
	return nil
}

func newTestRouter(h host.ViewerHost, docs document.Catalog) http.Handler {
	zl := logger.NewZapLogger(zap.NewNop().Sugar())
	r := chi.NewRouter()
	delivery.RegisterRoutes(r, delivery.NewViewerHandler(h, zl), delivery.NewDocumentHandler(docs, zl))
	return r
}

func TestSelectFileEndpoint(t *testing.T) {
	fh := &fakeHost{}
	router := newTestRouter(fh, &fakeCatalog{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "report.pdf")
	require.NoError(t, err)
	fw.Write([]byte("%PDF-1.7"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/containers/demo/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Document document.Reference   `json:"document"`
		Status   host.ContainerStatus `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "report.pdf", out.Document.Name)
	assert.Equal(t, viewer.StateBound, out.Status.State)
}

func TestSelectFileMissingFile(t *testing.T) {
	router := newTestRouter(&fakeHost{}, &fakeCatalog{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/containers/demo/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBindByURLEndpoint(t *testing.T) {
	router := newTestRouter(&fakeHost{}, &fakeCatalog{})

	req := httptest.NewRequest("POST", "/containers/demo/bind",
		strings.NewReader(`{"url":"https://docs.example.com/a.pdf"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBindRejectsEmptyRequest(t *testing.T) {
	router := newTestRouter(&fakeHost{}, &fakeCatalog{})

	req := httptest.NewRequest("POST", "/containers/demo/bind", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBindMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not found", document.ErrNotFound, http.StatusNotFound},
		{"superseded", viewer.ErrSuperseded, http.StatusConflict},
		{"closed", viewer.ErrClosed, http.StatusServiceUnavailable},
		{"engine failure", assertableErr("engine /load: document not found"), http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&fakeHost{selectErr: tc.err}, &fakeCatalog{})

			req := httptest.NewRequest("POST", "/containers/demo/bind",
				strings.NewReader(`{"url":"https://docs.example.com/a.pdf"}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)

			var out map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestUnbindEndpoint(t *testing.T) {
	router := newTestRouter(&fakeHost{released: true}, &fakeCatalog{})

	req := httptest.NewRequest("DELETE", "/containers/demo", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out["released"])
}

func TestStatusEndpoint(t *testing.T) {
	router := newTestRouter(&fakeHost{}, &fakeCatalog{})

	req := httptest.NewRequest("GET", "/containers/demo", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var out host.ContainerStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "demo", out.Container)
	assert.Equal(t, viewer.StateBound, out.State)
}

func TestListAndDeleteDocuments(t *testing.T) {
	ref := document.Reference{ID: uuid.New(), Kind: document.KindBlob, Key: "b/a.pdf", Name: "a.pdf"}
	cat := &fakeCatalog{refs: []document.Reference{ref}}
	router := newTestRouter(&fakeHost{}, cat)

	req := httptest.NewRequest("GET", "/documents", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var refs []document.Reference
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refs))
	require.Len(t, refs, 1)

	req = httptest.NewRequest("DELETE", "/documents/"+ref.ID.String(), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []uuid.UUID{ref.ID}, cat.released)

	req = httptest.NewRequest("DELETE", "/documents/"+uuid.New().String(), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type assertableErr string

func (e assertableErr) Error() string { return string(e) }
