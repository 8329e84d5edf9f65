package elearn

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// LocalStore is the durable client-side store: the credential triple
// for session hydration plus a cache of quiz results taken on this
// machine. It backs the terminal client the way localStorage backs a
// browser tab.
type LocalStore struct {
	db *sql.DB
}

// Storage keys for the credential triple.
const (
	keyAccessToken  = "token"
	keyRefreshToken = "refreshToken"
	keyUser         = "user"
)

// OpenLocalStore opens (creating if needed) the store at path.
func OpenLocalStore(path string) (*LocalStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	s := &LocalStore{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

func (s *LocalStore) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS credentials (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS quiz_history (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			course_title TEXT,
			score INTEGER NOT NULL,
			total INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			taken_at DATETIME NOT NULL,
			time_spent_minutes INTEGER
		)`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// SaveCredentials writes the triple in one transaction, so a crash
// never leaves a partial session behind.
func (s *LocalStore) SaveCredentials(accessToken, refreshToken string, user *User) error {
	userJSON, err := encodeUser(user)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range map[string]string{
		keyAccessToken:  accessToken,
		keyRefreshToken: refreshToken,
		keyUser:         userJSON,
	} {
		if _, err := tx.Exec(
			"INSERT INTO credentials (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			key, value,
		); err != nil {
			return fmt.Errorf("failed to store %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credentials: %w", err)
	}
	return nil
}

// LoadCredentials returns the stored triple. A partial triple counts as
// absent and is cleared, preserving the all-or-nothing invariant.
func (s *LocalStore) LoadCredentials() (string, string, *User, error) {
	rows, err := s.db.Query("SELECT key, value FROM credentials")
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, 3)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return "", "", nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return "", "", nil, fmt.Errorf("error iterating credentials: %w", err)
	}

	access, refresh, userJSON := values[keyAccessToken], values[keyRefreshToken], values[keyUser]
	if access == "" || refresh == "" || userJSON == "" {
		if len(values) > 0 {
			if err := s.ClearCredentials(); err != nil {
				return "", "", nil, err
			}
		}
		return "", "", nil, nil
	}

	user, err := decodeUser(userJSON)
	if err != nil {
		// A corrupted user entry invalidates the whole triple.
		if clearErr := s.ClearCredentials(); clearErr != nil {
			return "", "", nil, clearErr
		}
		return "", "", nil, nil
	}
	return access, refresh, user, nil
}

// ClearCredentials removes the whole triple.
func (s *LocalStore) ClearCredentials() error {
	if _, err := s.db.Exec("DELETE FROM credentials"); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// RecordQuizResult caches one finished quiz in the local history.
func (s *LocalStore) RecordQuizResult(entry QuizHistoryEntry) error {
	if entry.ID == "" || entry.ID == "local" {
		entry.ID = NewID()
	}
	_, err := s.db.Exec(
		`INSERT INTO quiz_history (id, title, course_title, score, total, correct, taken_at, time_spent_minutes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET score = excluded.score, correct = excluded.correct, taken_at = excluded.taken_at`,
		entry.ID, entry.Title, entry.CourseTitle, entry.Score, entry.Total, entry.Correct, entry.TakenAt, entry.TimeSpentMinutes,
	)
	if err != nil {
		return fmt.Errorf("failed to record quiz result: %w", err)
	}
	return nil
}

// RecentQuizzes returns the newest cached results, newest first.
func (s *LocalStore) RecentQuizzes(limit int) ([]QuizHistoryEntry, error) {
	query := "SELECT id, title, course_title, score, total, correct, taken_at, time_spent_minutes FROM quiz_history ORDER BY taken_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to read quiz history: %w", err)
	}
	defer rows.Close()

	var entries []QuizHistoryEntry
	for rows.Next() {
		var e QuizHistoryEntry
		var courseTitle sql.NullString
		var minutes sql.NullInt64
		var takenAt time.Time
		if err := rows.Scan(&e.ID, &e.Title, &courseTitle, &e.Score, &e.Total, &e.Correct, &takenAt, &minutes); err != nil {
			return nil, fmt.Errorf("failed to scan quiz history: %w", err)
		}
		e.CourseTitle = courseTitle.String
		e.TakenAt = takenAt
		e.TimeSpentMinutes = int(minutes.Int64)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quiz history: %w", err)
	}
	return entries, nil
}
