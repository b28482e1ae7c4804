// Package store caches acquired transcripts so repeat summarize requests
// skip the upstream fetch (and a possible audio transcription).
package store

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/video-summary/backend/internal/subtitle"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	s := &Store{db: sqlDB}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcripts (
		service TEXT NOT NULL,
		video_id TEXT NOT NULL,
		page TEXT NOT NULL DEFAULT '',
		with_timestamp INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL DEFAULT '',
		duration REAL NOT NULL DEFAULT 0,
		source TEXT NOT NULL DEFAULT '',
		items TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (service, video_id, page, with_timestamp)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveTranscript upserts the acquisition result for a video. Stored items bake
// in the timestamp rendering, so the flag is part of the key. Results without
// a transcript are not cached so the next request retries the full chain.
func (s *Store) SaveTranscript(ref subtitle.VideoRef, withTimestamp bool, res *subtitle.AcquisitionResult) error {
	if res == nil || !res.HasTranscript() {
		return nil
	}
	items, err := json.Marshal(res.Transcript)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO transcripts (service, video_id, page, with_timestamp, title, duration, source, items, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(service, video_id, page, with_timestamp) DO UPDATE SET
			title=excluded.title, duration=excluded.duration,
			source=excluded.source, items=excluded.items, updated_at=excluded.updated_at`,
		string(ref.Service), ref.VideoID, ref.PageNumber, boolInt(withTimestamp),
		res.Title, res.DurationSeconds, string(res.Source), string(items), time.Now(),
	)
	return err
}

// GetTranscript returns the cached result for a video rendered with the given
// timestamp setting, or nil when absent.
func (s *Store) GetTranscript(ref subtitle.VideoRef, withTimestamp bool) (*subtitle.AcquisitionResult, error) {
	var (
		res   subtitle.AcquisitionResult
		src   string
		items string
	)
	err := s.db.QueryRow(
		"SELECT title, duration, source, items FROM transcripts WHERE service = ? AND video_id = ? AND page = ? AND with_timestamp = ?",
		string(ref.Service), ref.VideoID, ref.PageNumber, boolInt(withTimestamp),
	).Scan(&res.Title, &res.DurationSeconds, &src, &items)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &res.Transcript); err != nil {
		return nil, err
	}
	res.Source = subtitle.Source(src)
	return &res, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
