package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultmesh/vaultmesh/pkg/aggregator"
	"github.com/vaultmesh/vaultmesh/pkg/crypto"
	"github.com/vaultmesh/vaultmesh/pkg/types"
	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

type memStore struct {
	files  map[string]types.FileRecord
	chunks map[string][]types.ChunkRecord
}

func newMemStore() *memStore {
	return &memStore{files: map[string]types.FileRecord{}, chunks: map[string][]types.ChunkRecord{}}
}

func (m *memStore) BeginUpload(ctx context.Context, f types.FileRecord) error {
	m.files[f.ID] = f
	return nil
}
func (m *memStore) SaveChunk(ctx context.Context, c types.ChunkRecord) error {
	m.chunks[c.FileID] = append(m.chunks[c.FileID], c)
	return nil
}
func (m *memStore) ListChunks(ctx context.Context, fileID string) ([]types.ChunkRecord, error) {
	return m.chunks[fileID], nil
}
func (m *memStore) GetFile(ctx context.Context, id string) (types.FileRecord, error) {
	f, ok := m.files[id]
	if !ok {
		return types.FileRecord{}, vmerr.New(vmerr.KindNotFound, "memStore.GetFile", "not found")
	}
	return f, nil
}
func (m *memStore) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := m.files[id]
	return ok, nil
}
func (m *memStore) DeleteFile(ctx context.Context, id string) error {
	delete(m.files, id)
	delete(m.chunks, id)
	return nil
}
func (m *memStore) DeleteChunk(ctx context.Context, fileID string, index int) error {
	return nil
}

type memAudit struct{ entries []types.AuditLogEntry }

func (m *memAudit) Log(e types.AuditLogEntry) { m.entries = append(m.entries, e) }

type memPool struct{ cursor int }

func (p *memPool) Next() (string, error) {
	p.cursor++
	return "node-a", nil
}
func (p *memPool) WithPermit(ctx context.Context, endpoint string, fn func() error) error {
	return fn()
}

type memBackend struct{ data map[string][]byte }

func newMemBackend() *memBackend { return &memBackend{data: map[string][]byte{}} }
func (b *memBackend) Put(endpoint, path string, data []byte) error {
	b.data[endpoint+path] = append([]byte(nil), data...)
	return nil
}
func (b *memBackend) Get(endpoint, path string) ([]byte, error) {
	d, ok := b.data[endpoint+path]
	if !ok {
		return nil, vmerr.New(vmerr.KindNotFound, "memBackend.Get", "missing")
	}
	return d, nil
}
func (b *memBackend) Delete(endpoint, path string) error {
	delete(b.data, endpoint+path)
	return nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	engine, err := crypto.NewEngine(bytes.Repeat([]byte{0x11}, 32))
	require.NoError(t, err)

	pipeline := aggregator.New(newMemStore(), &memAudit{}, &memPool{}, newMemBackend(), engine, aggregator.Config{
		ChunkSize:     4,
		MaxFileSize:   1 << 20,
		StorageRoot:   "/data",
		UploadPermits: 2,
	})
	return NewServer(pipeline, &memAudit{}, crypto.CipherTag)
}

func TestHandleUploadMissingHeaders(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", strings.NewReader("data"))
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleUploadAndDownloadRoundTrip(t *testing.T) {
	s := newTestServer(t)

	content := "round trip payload"
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", strings.NewReader(content))
	req.Header.Set("X-File-Name", "test.txt")
	req.Header.Set("X-File-Size", "18")
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	fileID, ok := resp["fileId"].(string)
	require.True(t, ok)
	require.NotEmpty(t, fileID)

	dlReq := httptest.NewRequest(http.MethodGet, "/api/files/"+fileID+"/download", nil)
	dlW := httptest.NewRecorder()
	s.Handler().ServeHTTP(dlW, dlReq)

	assert.Equal(t, http.StatusOK, dlW.Code)
	assert.Equal(t, content, dlW.Body.String())
}

func TestHandleDownloadMissingFile(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/files/does-not-exist/download", nil)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleSystemLogRequiresFields(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/system-logs", nil)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSystemLogAccepted(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/system-logs?event_type=upload.start&description=hi", nil)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "HEALTHY", resp["status"])
}
