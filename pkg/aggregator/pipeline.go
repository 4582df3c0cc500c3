// Package aggregator implements the Aggregator Pipeline: the upload,
// download, and delete operations that tie together the Crypto Engine,
// Integrity Engine, Metadata Store, and Backend Pool behind a single
// construction-time dependency graph (no back-references).
package aggregator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/vaultmesh/vaultmesh/pkg/backend"
	"github.com/vaultmesh/vaultmesh/pkg/crypto"
	"github.com/vaultmesh/vaultmesh/pkg/integrity"
	"github.com/vaultmesh/vaultmesh/pkg/log"
	"github.com/vaultmesh/vaultmesh/pkg/metrics"
	"github.com/vaultmesh/vaultmesh/pkg/types"
	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

// MetadataStore is the subset of metastore.Store the pipeline depends on.
type MetadataStore interface {
	BeginUpload(ctx context.Context, f types.FileRecord) error
	SaveChunk(ctx context.Context, c types.ChunkRecord) error
	ListChunks(ctx context.Context, fileID string) ([]types.ChunkRecord, error)
	GetFile(ctx context.Context, id string) (types.FileRecord, error)
	Exists(ctx context.Context, id string) (bool, error)
	DeleteFile(ctx context.Context, id string) error
	DeleteChunk(ctx context.Context, fileID string, index int) error
}

// AuditLogger is the subset of metastore.AuditSink the pipeline depends
// on. Log must never block and never return an error.
type AuditLogger interface {
	Log(entry types.AuditLogEntry)
}

// BackendPool is the subset of pool.Pool the pipeline depends on.
type BackendPool interface {
	Next() (string, error)
	WithPermit(ctx context.Context, endpoint string, fn func() error) error
}

// BackendClient is the subset of backend.Client the pipeline depends on.
type BackendClient interface {
	Put(endpoint, remotePath string, data []byte) error
	Get(endpoint, remotePath string) ([]byte, error)
	Delete(endpoint, remotePath string) error
}

// Pipeline is the Aggregator Pipeline. It holds explicit references to
// every collaborator it needs; none of those collaborators hold a
// reference back, so construction is a simple acyclic graph.
type Pipeline struct {
	store   MetadataStore
	audit   AuditLogger
	backPool BackendPool
	client  BackendClient
	engine  *crypto.Engine

	chunkSize   int64
	maxFileSize int64
	storageRoot string

	uploadPermit *semaphore.Weighted
}

// Config controls the pipeline's chunking and size-limit behavior.
type Config struct {
	ChunkSize      int64
	MaxFileSize    int64
	StorageRoot    string
	UploadPermits  int
}

// New constructs a Pipeline over its collaborators. cfg.UploadPermits
// bounds how many uploads may run concurrently process-wide (the global upload
// operation permit described in spec.md §4.6).
func New(store MetadataStore, audit AuditLogger, backPool BackendPool, client BackendClient, engine *crypto.Engine, cfg Config) *Pipeline {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1 << 20
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 << 30
	}
	if cfg.UploadPermits <= 0 {
		cfg.UploadPermits = 4
	}
	return &Pipeline{
		store:        store,
		audit:        audit,
		backPool:     backPool,
		client:       client,
		engine:       engine,
		chunkSize:    cfg.ChunkSize,
		maxFileSize:  cfg.MaxFileSize,
		storageRoot:  cfg.StorageRoot,
		uploadPermit: semaphore.NewWeighted(int64(cfg.UploadPermits)),
	}
}

// UploadInput describes an upload request's inputs (spec.md §4.6).
type UploadInput struct {
	Name      string
	Owner     string
	CipherTag string
	FileID    string // optional, client-supplied
	Size      int64
	Data      io.Reader
}

// Upload runs the full UPLOAD algorithm: allocate id, persist the
// provisional File Record, encrypt+store+persist each chunk in order, and
// emit the completion audit entry. Any failure before the final step
// triggers rollback of everything written so far.
func (p *Pipeline) Upload(ctx context.Context, in UploadInput) (string, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.UploadDuration)

	if err := validateFilename(in.Name); err != nil {
		return "", err
	}
	if err := validateCipherTag(in.CipherTag); err != nil {
		return "", err
	}
	if err := validateSize(in.Size, p.maxFileSize); err != nil {
		return "", err
	}

	if err := p.uploadPermit.Acquire(ctx, 1); err != nil {
		return "", vmerr.Wrap(vmerr.KindCancelled, "aggregator.Upload", "upload permit acquisition interrupted", err)
	}
	defer p.uploadPermit.Release(1)

	fileID := in.FileID
	if fileID == "" || !validFileID(fileID) {
		fileID = uuid.NewString()
	}

	totalChunks := int((in.Size + p.chunkSize - 1) / p.chunkSize)

	p.auditf(types.EventUploadStart, in.Owner, "upload started for %s (%d bytes, %d chunks)", in.Name, in.Size, totalChunks)

	record := types.FileRecord{
		ID:          fileID,
		Name:        in.Name,
		Size:        in.Size,
		TotalChunks: totalChunks,
		Cipher:      in.CipherTag,
		OwnerID:     in.Owner,
		CreatedAt:   time.Now(),
	}
	if err := p.store.BeginUpload(ctx, record); err != nil {
		p.auditf(types.EventUploadFail, in.Owner, "begin_upload failed for %s: %v", fileID, err)
		return "", err
	}

	stored, err := p.storeChunks(ctx, fileID, in.Data, totalChunks)
	if err != nil {
		p.auditf(types.EventUploadFail, in.Owner, "upload failed for %s: %v", fileID, err)
		p.rollback(ctx, fileID, stored)
		return "", err
	}

	p.auditf(types.EventUploadComplete, in.Owner, "upload completed for %s", fileID)
	metrics.FilesTotal.Inc()
	metrics.ChunksUploadedTotal.Add(float64(totalChunks))
	return fileID, nil
}

func (p *Pipeline) storeChunks(ctx context.Context, fileID string, data io.Reader, totalChunks int) ([]types.ChunkRecord, error) {
	stored := make([]types.ChunkRecord, 0, totalChunks)
	buf := make([]byte, p.chunkSize)

	for index := 0; index < totalChunks; index++ {
		n, readErr := io.ReadFull(data, buf)
		if readErr == io.ErrUnexpectedEOF || readErr == io.EOF {
			// final, short chunk
		} else if readErr != nil {
			return stored, vmerr.Wrap(vmerr.KindTransport, "aggregator.storeChunks", "reading upload stream", readErr)
		}

		ciphertext, err := p.engine.Encrypt(buf[:n])
		if err != nil {
			return stored, err
		}
		crc := integrity.Checksum(ciphertext)

		endpoint, err := p.backPool.Next()
		if err != nil {
			return stored, err
		}
		remotePath := backend.RemotePath(p.storageRoot, fileID, index)

		putErr := p.backPool.WithPermit(ctx, endpoint, func() error {
			return p.client.Put(endpoint, remotePath, ciphertext)
		})
		if putErr != nil {
			return stored, putErr
		}

		chunk := types.ChunkRecord{
			FileID:     fileID,
			Index:      index,
			Endpoint:   endpoint,
			RemotePath: remotePath,
			Size:       int64(len(ciphertext)),
			CRC32:      crc,
			CreatedAt:  time.Now(),
		}
		if err := p.store.SaveChunk(ctx, chunk); err != nil {
			// the backend put succeeded but the record never landed; rollback
			// still needs to clean up the orphaned remote file.
			stored = append(stored, chunk)
			return stored, err
		}
		stored = append(stored, chunk)
	}

	return stored, nil
}

// rollback performs the best-effort cleanup described in spec.md §4.6:
// delete every already-stored chunk on its backend, delete every Chunk
// Record, delete the File Record. Each failure is audited but never
// replaces the original error the caller is already returning.
func (p *Pipeline) rollback(ctx context.Context, fileID string, stored []types.ChunkRecord) {
	for _, c := range stored {
		err := p.backPool.WithPermit(ctx, c.Endpoint, func() error {
			return p.client.Delete(c.Endpoint, c.RemotePath)
		})
		if err != nil {
			p.auditf(types.EventRollback, "", "rollback: failed to delete chunk %d of %s from %s: %v", c.Index, fileID, c.Endpoint, err)
			metrics.RollbacksTotal.WithLabelValues("chunk_delete_failed").Inc()
		}
		if err := p.store.DeleteChunk(ctx, fileID, c.Index); err != nil {
			p.auditf(types.EventRollback, "", "rollback: failed to delete chunk record %d of %s: %v", c.Index, fileID, err)
			metrics.RollbacksTotal.WithLabelValues("record_delete_failed").Inc()
		}
	}
	if err := p.store.DeleteFile(ctx, fileID); err != nil {
		p.auditf(types.EventRollback, "", "rollback: failed to delete file record %s: %v", fileID, err)
		metrics.RollbacksTotal.WithLabelValues("file_delete_failed").Inc()
	}
	metrics.RollbacksTotal.WithLabelValues("completed").Inc()
}

// DownloadInput describes a download request's inputs (spec.md §4.7).
type DownloadInput struct {
	FileID    string
	CipherTag string
}

// Download runs the DOWNLOAD algorithm, writing decrypted plaintext to
// out in chunk order. A partial failure mid-stream aborts with a typed
// error; no compensating action is taken against the store.
func (p *Pipeline) Download(ctx context.Context, in DownloadInput, out io.Writer) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DownloadDuration)

	record, err := p.store.GetFile(ctx, in.FileID)
	if err != nil {
		return err
	}
	if in.CipherTag != "" && in.CipherTag != record.Cipher {
		return vmerr.New(vmerr.KindNotFound, "aggregator.Download", "cipher tag mismatch for "+in.FileID)
	}

	chunks, err := p.store.ListChunks(ctx, in.FileID)
	if err != nil {
		return err
	}
	if len(chunks) != record.TotalChunks {
		return vmerr.New(vmerr.KindIntegrity, "aggregator.Download",
			fmt.Sprintf("expected %d chunk records for %s, found %d", record.TotalChunks, in.FileID, len(chunks)))
	}
	for i, c := range chunks {
		if c.Index != i {
			return vmerr.New(vmerr.KindIntegrity, "aggregator.Download", "chunk indices are not dense for "+in.FileID)
		}
	}

	p.auditf(types.EventDownloadStart, record.OwnerID, "download started for %s", in.FileID)

	for _, c := range chunks {
		var ciphertext []byte
		getErr := p.backPool.WithPermit(ctx, c.Endpoint, func() error {
			var e error
			ciphertext, e = p.client.Get(c.Endpoint, c.RemotePath)
			return e
		})
		if getErr != nil {
			p.auditf(types.EventDownloadFail, record.OwnerID, "download failed for %s: %v", in.FileID, getErr)
			return getErr
		}

		if err := integrity.Verify(ciphertext, c.CRC32); err != nil {
			p.auditf(types.EventCRCMismatch, record.OwnerID, "crc mismatch on chunk %d of %s", c.Index, in.FileID)
			metrics.CRCMismatchesTotal.Inc()
			p.auditf(types.EventDownloadFail, record.OwnerID, "download failed for %s: %v", in.FileID, err)
			return err
		}

		plaintext, err := p.engine.Decrypt(ciphertext)
		if err != nil {
			p.auditf(types.EventDownloadFail, record.OwnerID, "download failed for %s: %v", in.FileID, err)
			return err
		}

		if _, err := out.Write(plaintext); err != nil {
			return vmerr.Wrap(vmerr.KindTransport, "aggregator.Download", "writing decrypted output", err)
		}
	}

	p.auditf(types.EventDownloadComplete, record.OwnerID, "download completed for %s", in.FileID)
	return nil
}

// Delete runs the DELETE algorithm: best-effort remove each chunk from
// its backend, then delete Chunk Records, then the File Record.
func (p *Pipeline) Delete(ctx context.Context, fileID string) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DeleteDuration)

	record, err := p.store.GetFile(ctx, fileID)
	if err != nil {
		return err
	}

	chunks, err := p.store.ListChunks(ctx, fileID)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		delErr := p.backPool.WithPermit(ctx, c.Endpoint, func() error {
			return p.client.Delete(c.Endpoint, c.RemotePath)
		})
		if delErr != nil {
			p.auditf(types.EventRollback, record.OwnerID, "delete: failed to remove chunk %d of %s from %s: %v", c.Index, fileID, c.Endpoint, delErr)
		}
		if err := p.store.DeleteChunk(ctx, fileID, c.Index); err != nil {
			p.auditf(types.EventRollback, record.OwnerID, "delete: failed to remove chunk record %d of %s: %v", c.Index, fileID, err)
		}
	}

	if err := p.store.DeleteFile(ctx, fileID); err != nil {
		return err
	}

	p.auditf(types.EventDeleteComplete, record.OwnerID, "delete completed for %s", fileID)
	return nil
}

func (p *Pipeline) auditf(kind types.EventKind, owner, format string, args ...interface{}) {
	severity := types.SeverityInfo
	switch kind {
	case types.EventUploadFail, types.EventDownloadFail, types.EventCRCMismatch:
		severity = types.SeverityError
	case types.EventRollback:
		severity = types.SeverityWarn
	}
	p.audit.Log(types.AuditLogEntry{
		Kind:        kind,
		OwnerID:     owner,
		Description: fmt.Sprintf(format, args...),
		Severity:    severity,
		Component:   "aggregator",
		Timestamp:   time.Now(),
	})
	log.WithComponent("aggregator").Debug().Str("kind", string(kind)).Msg(fmt.Sprintf(format, args...))
}
