package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UploadRecord is one audited pass through the upload relay. It never
// holds file content.
type UploadRecord struct {
	ID          uuid.UUID
	Filename    string
	ContentType string
	Size        int64
	Outcome     string
	Chunks      *int
	Error       string
	CreatedAt   time.Time
}

// RecordUpload inserts an audit row and returns its ID.
func (s *Store) RecordUpload(ctx context.Context, rec UploadRecord) (uuid.UUID, error) {
	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO relay_uploads (id, filename, content_type, size_bytes, outcome, chunks, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		id, rec.Filename, rec.ContentType, rec.Size, rec.Outcome, rec.Chunks, rec.Error,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert upload: %w", err)
	}
	return id, nil
}

// RecentUploads returns up to limit audit rows, newest first.
func (s *Store) RecentUploads(ctx context.Context, limit int) ([]UploadRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, filename, content_type, size_bytes, outcome, chunks, error, created_at
		FROM relay_uploads
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	defer rows.Close()

	var out []UploadRecord
	for rows.Next() {
		var r UploadRecord
		if err := rows.Scan(&r.ID, &r.Filename, &r.ContentType, &r.Size, &r.Outcome, &r.Chunks, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
