package metastore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vaultmesh/vaultmesh/pkg/types"
	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

// BeginUpload inserts the provisional File Record. Any insert failure,
// including a duplicate id rejected by the unique constraint on files.id,
// surfaces as vmerr.KindStorage.
func (s *Store) BeginUpload(ctx context.Context, f types.FileRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (id, name, size, total_chunks, cipher, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.Name, f.Size, f.TotalChunks, f.Cipher, f.OwnerID, f.CreatedAt)
	if err != nil {
		return vmerr.Wrap(vmerr.KindStorage, "metastore.BeginUpload", "could not insert file record", err)
	}
	return nil
}

// SaveChunk inserts one Chunk Record. The (file_id, chunk_index) primary
// key rejects a duplicate index for the same file.
func (s *Store) SaveChunk(ctx context.Context, c types.ChunkRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks (file_id, chunk_index, endpoint, remote_path, size, crc32, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.FileID, c.Index, c.Endpoint, c.RemotePath, c.Size, int64(c.CRC32), c.CreatedAt)
	if err != nil {
		return vmerr.Wrap(vmerr.KindStorage, "metastore.SaveChunk", "could not insert chunk record", err)
	}
	return nil
}

// ListChunks returns every Chunk Record for fileID, ordered by index
// ascending.
func (s *Store) ListChunks(ctx context.Context, fileID string) ([]types.ChunkRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_id, chunk_index, endpoint, remote_path, size, crc32, created_at
		FROM chunks WHERE file_id = $1 ORDER BY chunk_index ASC`, fileID)
	if err != nil {
		return nil, vmerr.Wrap(vmerr.KindStorage, "metastore.ListChunks", "could not query chunk records", err)
	}
	defer rows.Close()

	var out []types.ChunkRecord
	for rows.Next() {
		var c types.ChunkRecord
		var crc int64
		if err := rows.Scan(&c.FileID, &c.Index, &c.Endpoint, &c.RemotePath, &c.Size, &crc, &c.CreatedAt); err != nil {
			return nil, vmerr.Wrap(vmerr.KindStorage, "metastore.ListChunks", "could not scan chunk record", err)
		}
		c.CRC32 = uint32(crc)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, vmerr.Wrap(vmerr.KindStorage, "metastore.ListChunks", "error iterating chunk records", err)
	}
	return out, nil
}

// GetFile returns the File Record for id, or vmerr.KindNotFound.
func (s *Store) GetFile(ctx context.Context, id string) (types.FileRecord, error) {
	var f types.FileRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, size, total_chunks, cipher, owner_id, created_at
		FROM files WHERE id = $1`, id).
		Scan(&f.ID, &f.Name, &f.Size, &f.TotalChunks, &f.Cipher, &f.OwnerID, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.FileRecord{}, vmerr.New(vmerr.KindNotFound, "metastore.GetFile", "no file with id "+id)
	}
	if err != nil {
		return types.FileRecord{}, vmerr.Wrap(vmerr.KindStorage, "metastore.GetFile", "could not query file record", err)
	}
	return f, nil
}

// Exists reports whether a File Record with id is present.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM files WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, vmerr.Wrap(vmerr.KindStorage, "metastore.Exists", "could not query file existence", err)
	}
	return exists, nil
}

// DeleteFile removes the File Record for id; the chunks foreign key's
// ON DELETE CASCADE removes its Chunk Records in the same statement.
func (s *Store) DeleteFile(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return vmerr.Wrap(vmerr.KindStorage, "metastore.DeleteFile", "could not delete file record", err)
	}
	return nil
}

// DeleteChunk removes a single Chunk Record; rollback calls it for every
// chunk it cleans up. Deleting a record that was never persisted is a
// no-op.
func (s *Store) DeleteChunk(ctx context.Context, fileID string, index int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = $1 AND chunk_index = $2`, fileID, index)
	if err != nil {
		return vmerr.Wrap(vmerr.KindStorage, "metastore.DeleteChunk", "could not delete chunk record", err)
	}
	return nil
}

// CountFiles implements metrics.MetastoreSource for the Prometheus
// collector.
func (s *Store) CountFiles() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM files`).Scan(&n)
	if err != nil {
		return 0, vmerr.Wrap(vmerr.KindStorage, "metastore.CountFiles", "could not count files", err)
	}
	return n, nil
}
