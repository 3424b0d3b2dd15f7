// Package database is the Postgres detection archive: every non-empty
// detection record fetched by the poller is kept for later review through
// the history endpoint.
package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/spignelon/roadvision-assignment/internal/models"
)

// Database represents the database connection and operations
type Database struct {
	DB *sql.DB
}

// New creates a new Database instance
func New(dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// Verify connection
	if err = db.Ping(); err != nil {
		return nil, err
	}

	return &Database{DB: db}, nil
}

// Init creates the required tables if they don't exist
func (d *Database) Init() error {
	createTables := `
	CREATE TABLE IF NOT EXISTS detections (
		id TEXT PRIMARY KEY,
		stream_id TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		persons INT NOT NULL,
		motion_regions INT NOT NULL,
		data TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS detections_stream_ts
		ON detections (stream_id, timestamp DESC);
	`

	_, err := d.DB.Exec(createTables)
	return err
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}

// ArchivedDetection is one stored detection record.
type ArchivedDetection struct {
	ID            string                 `json:"id"`
	StreamID      string                 `json:"stream_id"`
	Timestamp     time.Time              `json:"timestamp"`
	Persons       int                    `json:"persons"`
	MotionRegions int                    `json:"motion_regions"`
	Record        models.DetectionRecord `json:"record"`
}

// InsertDetections archives one detection record for a stream.
func (d *Database) InsertDetections(ctx context.Context, streamID string, rec models.DetectionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	_, err = d.DB.ExecContext(ctx,
		"INSERT INTO detections (id, stream_id, timestamp, persons, motion_regions, data) VALUES ($1, $2, $3, $4, $5, $6)",
		uuid.New().String(),
		streamID,
		rec.Time().UTC(),
		rec.Persons(),
		len(rec.Motion),
		string(data),
	)

	return err
}

// RecentDetections returns the newest archived records for a stream.
func (d *Database) RecentDetections(ctx context.Context, streamID string, limit int) ([]ArchivedDetection, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, stream_id, timestamp, persons, motion_regions, data
		FROM detections
		WHERE stream_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, streamID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ArchivedDetection
	for rows.Next() {
		var a ArchivedDetection
		var data string
		err := rows.Scan(
			&a.ID,
			&a.StreamID,
			&a.Timestamp,
			&a.Persons,
			&a.MotionRegions,
			&data,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &a.Record); err != nil {
			return nil, err
		}
		result = append(result, a)
	}

	return result, rows.Err()
}

// PruneOlderThan drops archived records older than the retention window.
func (d *Database) PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := d.DB.ExecContext(ctx,
		"DELETE FROM detections WHERE timestamp < $1",
		time.Now().Add(-retention).UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
