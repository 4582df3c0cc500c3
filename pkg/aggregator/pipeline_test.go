package aggregator

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultmesh/vaultmesh/pkg/crypto"
	"github.com/vaultmesh/vaultmesh/pkg/types"
	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

// fakeStore is an in-memory MetadataStore for pipeline tests.
type fakeStore struct {
	files  map[string]types.FileRecord
	chunks map[string][]types.ChunkRecord

	failSaveChunkAt int // -1 disables; otherwise fails SaveChunk on this index
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		files:           make(map[string]types.FileRecord),
		chunks:          make(map[string][]types.ChunkRecord),
		failSaveChunkAt: -1,
	}
}

func (f *fakeStore) BeginUpload(ctx context.Context, r types.FileRecord) error {
	if _, exists := f.files[r.ID]; exists {
		return vmerr.New(vmerr.KindValidation, "fakeStore.BeginUpload", "duplicate file id")
	}
	f.files[r.ID] = r
	return nil
}

func (f *fakeStore) SaveChunk(ctx context.Context, c types.ChunkRecord) error {
	if c.Index == f.failSaveChunkAt {
		return vmerr.New(vmerr.KindStorage, "fakeStore.SaveChunk", "injected failure")
	}
	f.chunks[c.FileID] = append(f.chunks[c.FileID], c)
	return nil
}

func (f *fakeStore) ListChunks(ctx context.Context, fileID string) ([]types.ChunkRecord, error) {
	return f.chunks[fileID], nil
}

func (f *fakeStore) GetFile(ctx context.Context, id string) (types.FileRecord, error) {
	r, ok := f.files[id]
	if !ok {
		return types.FileRecord{}, vmerr.New(vmerr.KindNotFound, "fakeStore.GetFile", "not found")
	}
	return r, nil
}

func (f *fakeStore) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := f.files[id]
	return ok, nil
}

func (f *fakeStore) DeleteFile(ctx context.Context, id string) error {
	delete(f.files, id)
	delete(f.chunks, id)
	return nil
}

func (f *fakeStore) DeleteChunk(ctx context.Context, fileID string, index int) error {
	remaining := f.chunks[fileID][:0]
	for _, c := range f.chunks[fileID] {
		if c.Index != index {
			remaining = append(remaining, c)
		}
	}
	f.chunks[fileID] = remaining
	return nil
}

type fakeAudit struct {
	entries []types.AuditLogEntry
}

func (f *fakeAudit) Log(entry types.AuditLogEntry) {
	f.entries = append(f.entries, entry)
}

// fakePool hands out endpoints round-robin from a fixed list and runs fn
// directly, with no real concurrency control — sufficient for pipeline
// tests that don't exercise the permit discipline itself.
type fakePool struct {
	endpoints []string
	cursor    int
}

func (f *fakePool) Next() (string, error) {
	if len(f.endpoints) == 0 {
		return "", vmerr.New(vmerr.KindResource, "fakePool.Next", "empty")
	}
	ep := f.endpoints[f.cursor%len(f.endpoints)]
	f.cursor++
	return ep, nil
}

func (f *fakePool) WithPermit(ctx context.Context, endpoint string, fn func() error) error {
	return fn()
}

// fakeBackend is an in-memory BackendClient keyed by endpoint+path.
type fakeBackend struct {
	data map[string][]byte

	failPutAtCall int // -1 disables; fails the Nth Put call (0-indexed)
	putCalls      int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: make(map[string][]byte), failPutAtCall: -1}
}

func key(endpoint, path string) string { return endpoint + "|" + path }

func (f *fakeBackend) Put(endpoint, path string, data []byte) error {
	defer func() { f.putCalls++ }()
	if f.putCalls == f.failPutAtCall {
		return vmerr.New(vmerr.KindTransport, "fakeBackend.Put", "injected failure")
	}
	f.data[key(endpoint, path)] = append([]byte(nil), data...)
	return nil
}

func (f *fakeBackend) Get(endpoint, path string) ([]byte, error) {
	d, ok := f.data[key(endpoint, path)]
	if !ok {
		return nil, vmerr.New(vmerr.KindNotFound, "fakeBackend.Get", "not found")
	}
	return d, nil
}

func (f *fakeBackend) Delete(endpoint, path string) error {
	delete(f.data, key(endpoint, path))
	return nil
}

func testEngine(t *testing.T) *crypto.Engine {
	t.Helper()
	e, err := crypto.NewEngine(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)
	return e
}

func newTestPipeline(t *testing.T, store *fakeStore, audit *fakeAudit, be *fakeBackend) *Pipeline {
	pool := &fakePool{endpoints: []string{"node-a", "node-b"}}
	return New(store, audit, pool, be, testEngine(t), Config{
		ChunkSize:     4,
		MaxFileSize:   1 << 30,
		StorageRoot:   "/data",
		UploadPermits: 4,
	})
}

func TestUploadRoundTrip(t *testing.T) {
	store := newFakeStore()
	audit := &fakeAudit{}
	be := newFakeBackend()
	p := newTestPipeline(t, store, audit, be)

	content := "hello vaultmesh world" // 21 bytes, chunk size 4 -> 6 chunks
	fileID, err := p.Upload(context.Background(), UploadInput{
		Name:      "greeting.txt",
		Owner:     "alice",
		CipherTag: crypto.CipherTag,
		Size:      int64(len(content)),
		Data:      strings.NewReader(content),
	})
	require.NoError(t, err)
	require.NotEmpty(t, fileID)

	var out bytes.Buffer
	err = p.Download(context.Background(), DownloadInput{FileID: fileID, CipherTag: crypto.CipherTag}, &out)
	require.NoError(t, err)
	assert.Equal(t, content, out.String())
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(t, store, &fakeAudit{}, newFakeBackend())

	_, err := p.Upload(context.Background(), UploadInput{
		Name:      "big.bin",
		Owner:     "alice",
		CipherTag: crypto.CipherTag,
		Size:      2 << 30,
		Data:      strings.NewReader("irrelevant"),
	})
	require.Error(t, err)
	assert.Equal(t, vmerr.KindValidation, vmerr.KindOf(err))
}

func TestUploadRejectsPathTraversalFilename(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(t, store, &fakeAudit{}, newFakeBackend())

	_, err := p.Upload(context.Background(), UploadInput{
		Name:      "../etc/passwd",
		Owner:     "alice",
		CipherTag: crypto.CipherTag,
		Size:      4,
		Data:      strings.NewReader("data"),
	})
	require.Error(t, err)
	assert.Equal(t, vmerr.KindValidation, vmerr.KindOf(err))
}

func TestUploadRollsBackOnBackendFailure(t *testing.T) {
	store := newFakeStore()
	audit := &fakeAudit{}
	be := newFakeBackend()
	be.failPutAtCall = 1 // fail on the second chunk's put

	p := newTestPipeline(t, store, audit, be)

	content := "abcdefghijklmnop" // 16 bytes / chunkSize 4 -> 4 chunks
	fileID, err := p.Upload(context.Background(), UploadInput{
		Name:      "f.bin",
		Owner:     "bob",
		CipherTag: crypto.CipherTag,
		Size:      int64(len(content)),
		Data:      strings.NewReader(content),
	})
	require.Error(t, err)
	assert.Empty(t, fileID)

	assert.Empty(t, store.files, "file record must be rolled back")
	assert.Empty(t, store.chunks, "chunk records must be rolled back")
	assert.Empty(t, be.data, "stored chunks must be rolled back from the backend")
}

func TestDownloadDetectsCRCMismatch(t *testing.T) {
	store := newFakeStore()
	audit := &fakeAudit{}
	be := newFakeBackend()
	p := newTestPipeline(t, store, audit, be)

	fileID, err := p.Upload(context.Background(), UploadInput{
		Name:      "f.bin",
		Owner:     "bob",
		CipherTag: crypto.CipherTag,
		Size:      4,
		Data:      strings.NewReader("data"),
	})
	require.NoError(t, err)

	chunks := store.chunks[fileID]
	require.Len(t, chunks, 1)
	be.data[key(chunks[0].Endpoint, chunks[0].RemotePath)][0] ^= 0xFF // corrupt stored ciphertext

	var out bytes.Buffer
	err = p.Download(context.Background(), DownloadInput{FileID: fileID, CipherTag: crypto.CipherTag}, &out)
	require.Error(t, err)
	assert.Equal(t, vmerr.KindIntegrity, vmerr.KindOf(err))
}

func TestDeleteRemovesFileAndChunks(t *testing.T) {
	store := newFakeStore()
	audit := &fakeAudit{}
	be := newFakeBackend()
	p := newTestPipeline(t, store, audit, be)

	fileID, err := p.Upload(context.Background(), UploadInput{
		Name:      "f.bin",
		Owner:     "bob",
		CipherTag: crypto.CipherTag,
		Size:      8,
		Data:      strings.NewReader("deleteme"),
	})
	require.NoError(t, err)

	err = p.Delete(context.Background(), fileID)
	require.NoError(t, err)

	_, err = store.GetFile(context.Background(), fileID)
	assert.Error(t, err)
	assert.Empty(t, store.chunks[fileID])
	assert.Empty(t, be.data)
}
