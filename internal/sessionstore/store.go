// Package sessionstore persists upload session records to a local SQLite
// database, so a resumed upload can often skip a round-trip to the remote
// resume_session endpoint and pick up local state directly. It falls back to
// the server whenever the local row is missing, stale, or the server itself
// reports SessionNotFound.
package sessionstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, registered under "sqlite"

	"github.com/resumable/uploadkit/internal/chunkio"
	"github.com/resumable/uploadkit/internal/session"
)

// Store is a SQLite-backed cache of session.Record, keyed by a stable hash
// of (endpoint, local file path).
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite database at path and runs
// pending migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: opening %s: %w", path, err)
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Key derives the stable cache key for a (endpoint, localPath) pair.
func Key(endpoint, localPath string) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%d:%s:%s", len(endpoint), endpoint, localPath))
	return hex.EncodeToString(h[:])
}

// Load returns the cached Record for key, or nil, nil if absent.
func (s *Store) Load(ctx context.Context, key string) (*session.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, endpoint, total_size, chunk_size, uploaded, digest,
		       auth_token, resume_url, created_at, expires_at
		FROM upload_sessions WHERE key = ?`, key)

	var rec session.Record
	var createdAt string
	var expiresAt sql.NullString

	err := row.Scan(&rec.SessionID, &rec.Endpoint, &rec.TotalSize, &rec.ChunkSize, &rec.Uploaded,
		&rec.Digest, &rec.Token, &rec.ResumeURL, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // absence is not an error
	}

	if err != nil {
		return nil, fmt.Errorf("sessionstore: loading %s: %w", key, err)
	}

	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		rec.CreatedAt = t
	}

	if expiresAt.Valid {
		if t, parseErr := time.Parse(time.RFC3339, expiresAt.String); parseErr == nil {
			rec.ExpiresAt = &t
		}
	}

	// total_chunks is not persisted — it is entirely derived from
	// total_size/chunk_size, which are, so recompute it the same way
	// session.Manager.Resume does when the server response omits it.
	if rec.ChunkSize > 0 {
		rec.TotalChunks = chunkio.TotalChunks(rec.TotalSize, rec.ChunkSize)
	}

	return &rec, nil
}

// Save upserts rec under key.
func (s *Store) Save(ctx context.Context, key string, rec *session.Record) error {
	var expiresAt any
	if rec.ExpiresAt != nil {
		expiresAt = rec.ExpiresAt.Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO upload_sessions
			(key, session_id, endpoint, total_size, chunk_size, uploaded, digest, auth_token, resume_url, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			session_id=excluded.session_id, endpoint=excluded.endpoint, total_size=excluded.total_size,
			chunk_size=excluded.chunk_size, uploaded=excluded.uploaded, digest=excluded.digest,
			auth_token=excluded.auth_token, resume_url=excluded.resume_url,
			created_at=excluded.created_at, expires_at=excluded.expires_at`,
		key, rec.SessionID, rec.Endpoint, rec.TotalSize, rec.ChunkSize, rec.Uploaded, rec.Digest,
		rec.Token, rec.ResumeURL, rec.CreatedAt.Format(time.RFC3339), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("sessionstore: saving %s: %w", key, err)
	}

	return nil
}

// Delete removes the cached record for key. No error if absent.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM upload_sessions WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("sessionstore: deleting %s: %w", key, err)
	}

	return nil
}
