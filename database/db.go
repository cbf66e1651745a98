package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// PersistenceError reports a failed write to the settings store
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DB handles all database operations
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes tables
func New(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err = createTables(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	// Flat per-user key/value settings
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS user_settings (
			user_id INTEGER NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, key)
		)
	`)
	if err != nil {
		return err
	}

	// Cached extended explanations
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS explanation_cache (
			genre_id TEXT NOT NULL,
			question_id INTEGER NOT NULL,
			response TEXT NOT NULL,
			PRIMARY KEY (genre_id, question_id)
		)
	`)
	return err
}

// GetValue reads a raw setting; ok is false when the key was never written
func (db *DB) GetValue(userID int64, key string) (value string, ok bool, err error) {
	err = db.conn.QueryRow(
		"SELECT value FROM user_settings WHERE user_id = ? AND key = ?",
		userID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetValues writes several settings of one user in a single transaction
func (db *DB) SetValues(userID int64, values map[string]string, now int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	for key, value := range values {
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO user_settings (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)",
			userID, key, value, now,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// DeleteValue removes a setting
func (db *DB) DeleteValue(userID int64, key string) error {
	_, err := db.conn.Exec(
		"DELETE FROM user_settings WHERE user_id = ? AND key = ?",
		userID, key,
	)
	return err
}

// CacheExplanation stores an extended explanation for a question
func (db *DB) CacheExplanation(genreID string, questionID int, response string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO explanation_cache (genre_id, question_id, response) VALUES (?, ?, ?)",
		genreID, questionID, response,
	)
	return err
}

// GetCachedExplanation retrieves a cached explanation, empty when none is stored
func (db *DB) GetCachedExplanation(genreID string, questionID int) (string, error) {
	var response string
	err := db.conn.QueryRow(
		"SELECT response FROM explanation_cache WHERE genre_id = ? AND question_id = ?",
		genreID, questionID,
	).Scan(&response)

	if err == sql.ErrNoRows {
		return "", nil
	}
	return response, err
}
