package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Store caches fetched transcripts keyed by video id and language.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	logrus.WithField("path", dbPath).Info("Initializing transcript cache")

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "error creating directory for database")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening database")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS transcripts (
                    video_id TEXT NOT NULL,
                    language TEXT NOT NULL,
                    text TEXT NOT NULL,
                    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
                    PRIMARY KEY (video_id, language)
)`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error creating table")
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetTranscript returns the cached transcript. found is false when there is
// no entry.
func (s *Store) GetTranscript(ctx context.Context, videoID, language string) (text string, found bool, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT text FROM transcripts WHERE video_id = ? AND language = ?",
		videoID, language).Scan(&text)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "error querying database")
	}
	return text, true, nil
}

func (s *Store) SetTranscript(ctx context.Context, videoID, language, text string) error {
	return s.exec(ctx,
		`INSERT INTO transcripts (video_id, language, text) VALUES (?, ?, ?)
         ON CONFLICT(video_id, language) DO UPDATE SET text=excluded.text, created_at=CURRENT_TIMESTAMP`,
		videoID, language, text)
}

func (s *Store) DeleteTranscript(ctx context.Context, videoID, language string) error {
	return s.exec(ctx, "DELETE FROM transcripts WHERE video_id = ? AND language = ?", videoID, language)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transcripts").Scan(&n); err != nil {
		return 0, errors.Wrap(err, "error counting transcripts")
	}
	return n, nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "error beginning transaction")
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "error preparing statement")
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, args...); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "error executing statement")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "error committing transaction")
	}

	return nil
}
