// Package journal records capture sessions in PostgreSQL.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/andresmejia3/goober/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store manages the PostgreSQL pool behind the capture journal.
type Store struct {
	pool *pgxpool.Pool
}

// New connects and ensures the schema exists.
func New(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS capture_sessions (
			id UUID PRIMARY KEY,
			source TEXT NOT NULL,
			service_url TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			ended_at TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS detections (
			id BIGSERIAL PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES capture_sessions(id) ON DELETE CASCADE,
			detected_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			face_count INT NOT NULL,
			boxes INT[] NOT NULL
		);
		CREATE TABLE IF NOT EXISTS saved_photos (
			id BIGSERIAL PRIMARY KEY,
			session_id UUID REFERENCES capture_sessions(id) ON DELETE CASCADE,
			photo_id INT NOT NULL,
			filename TEXT NOT NULL,
			face_count INT NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS detections_session_id_idx ON detections (session_id);
		CREATE INDEX IF NOT EXISTS saved_photos_photo_id_idx ON saved_photos (photo_id);
	`
	_, err := pool.Exec(ctx, query)
	return err
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Session journals one capture run. It satisfies capture.Recorder.
type Session struct {
	ID    uuid.UUID
	store *Store
}

// StartSession opens a new session row.
func (s *Store) StartSession(ctx context.Context, source, serviceURL string) (*Session, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx,
		"INSERT INTO capture_sessions (id, source, service_url) VALUES ($1, $2, $3)",
		id.String(), source, serviceURL)
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, store: s}, nil
}

// RecordDetection stores the service's face count and the boxes flattened as
// x,y,width,height quadruples.
func (se *Session) RecordDetection(ctx context.Context, faceCount int, boxes []types.FaceBox) error {
	_, err := se.store.pool.Exec(ctx,
		"INSERT INTO detections (session_id, face_count, boxes) VALUES ($1, $2, $3)",
		se.ID.String(), faceCount, flattenBoxes(boxes))
	return err
}

// RecordSave stores a photo the service accepted.
func (se *Session) RecordSave(ctx context.Context, res *types.SaveResult) error {
	_, err := se.store.pool.Exec(ctx,
		"INSERT INTO saved_photos (session_id, photo_id, filename, face_count) VALUES ($1, $2, $3, $4)",
		se.ID.String(), res.PhotoID, res.Filename, res.FaceCount)
	return err
}

// End stamps the session as finished.
func (se *Session) End(ctx context.Context) error {
	_, err := se.store.pool.Exec(ctx,
		"UPDATE capture_sessions SET ended_at = NOW() WHERE id = $1 AND ended_at IS NULL", se.ID.String())
	return err
}

// MarkDeleted flags a photo deleted through the gallery. Unknown ids are ignored.
func (s *Store) MarkDeleted(ctx context.Context, photoID int) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE saved_photos SET deleted_at = NOW() WHERE photo_id = $1 AND deleted_at IS NULL", photoID)
	return err
}

// SessionSummary is one row of the history listing.
type SessionSummary struct {
	ID         uuid.UUID
	Source     string
	StartedAt  time.Time
	EndedAt    *time.Time
	Detections int
	MaxFaces   int
	Saved      int
	Deleted    int
}

// ListSessions returns the newest sessions first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT s.id::text, s.source, s.started_at, s.ended_at,
			(SELECT COUNT(*) FROM detections d WHERE d.session_id = s.id),
			(SELECT COALESCE(MAX(d.face_count), 0) FROM detections d WHERE d.session_id = s.id),
			(SELECT COUNT(*) FROM saved_photos p WHERE p.session_id = s.id),
			(SELECT COUNT(*) FROM saved_photos p WHERE p.session_id = s.id AND p.deleted_at IS NOT NULL)
		FROM capture_sessions s
		ORDER BY s.started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var (
			sum SessionSummary
			id  string
		)
		if err := rows.Scan(&id, &sum.Source, &sum.StartedAt, &sum.EndedAt,
			&sum.Detections, &sum.MaxFaces, &sum.Saved, &sum.Deleted); err != nil {
			return nil, err
		}
		if sum.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("bad session id %q: %w", id, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Reset drops all journal tables.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		DROP TABLE IF EXISTS detections CASCADE;
		DROP TABLE IF EXISTS saved_photos CASCADE;
		DROP TABLE IF EXISTS capture_sessions CASCADE;
	`)
	return err
}

func flattenBoxes(boxes []types.FaceBox) []int32 {
	flat := make([]int32, 0, len(boxes)*4)
	for _, b := range boxes {
		flat = append(flat, int32(b.X), int32(b.Y), int32(b.Width), int32(b.Height))
	}
	return flat
}
