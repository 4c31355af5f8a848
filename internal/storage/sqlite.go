package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/cohort/internal/models"
)

// SQLiteStorage implements Storage using SQLite. Raw field values and the
// derived vector are stored as JSON next to the schema version.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		schema_version TEXT NOT NULL,
		fields TEXT NOT NULL,
		vector TEXT,
		source TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_profiles_source ON profiles(source);
	CREATE INDEX IF NOT EXISTS idx_profiles_schema_version ON profiles(schema_version);
	`
	_, err := db.Exec(schema)
	return err
}

const profileColumns = `id, label, schema_version, fields, vector, source, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	var fieldsJSON string
	var vectorJSON, source sql.NullString
	if err := row.Scan(&p.ID, &p.Label, &p.SchemaVersion, &fieldsJSON, &vectorJSON, &source, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &p.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields of %s: %w", p.ID, err)
	}
	if vectorJSON.Valid && vectorJSON.String != "" {
		var v models.FeatureVector
		if err := json.Unmarshal([]byte(vectorJSON.String), &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vector of %s: %w", p.ID, err)
		}
		p.Vector = &v
	}
	p.Source = source.String
	return &p, nil
}

func marshalProfile(p *models.Profile) (fields string, vector sql.NullString, err error) {
	fieldsJSON, err := json.Marshal(p.Fields)
	if err != nil {
		return "", vector, fmt.Errorf("failed to marshal fields: %w", err)
	}
	if p.Vector != nil {
		vectorJSON, err := json.Marshal(p.Vector)
		if err != nil {
			return "", vector, fmt.Errorf("failed to marshal vector: %w", err)
		}
		vector = sql.NullString{String: string(vectorJSON), Valid: true}
	}
	return string(fieldsJSON), vector, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertProfile(ctx context.Context, db execer, p *models.Profile, now time.Time) error {
	fields, vector, err := marshalProfile(p)
	if err != nil {
		return err
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err = db.ExecContext(ctx,
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Label, p.SchemaVersion, fields, vector, p.Source, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// CreateProfile inserts a profile.
func (s *SQLiteStorage) CreateProfile(ctx context.Context, p *models.Profile) error {
	return insertProfile(ctx, s.db, p, time.Now())
}

// BatchCreateProfiles inserts profiles in one transaction, in slice order.
func (s *SQLiteStorage) BatchCreateProfiles(ctx context.Context, profiles []*models.Profile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	for _, p := range profiles {
		if err := insertProfile(ctx, tx, p, now); err != nil {
			return fmt.Errorf("insert %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// GetProfile returns a profile by ID, or an error wrapping models.ErrNotFound.
func (s *SQLiteStorage) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile replaces the label, values and vector of an existing profile.
// The row keeps its position in insertion order.
func (s *SQLiteStorage) UpdateProfile(ctx context.Context, p *models.Profile) error {
	fields, vector, err := marshalProfile(p)
	if err != nil {
		return err
	}
	p.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET label = ?, schema_version = ?, fields = ?, vector = ?, source = ?, updated_at = ?
		 WHERE id = ?`,
		p.Label, p.SchemaVersion, fields, vector, p.Source, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("profile %s: %w", p.ID, models.ErrNotFound)
	}
	return nil
}

// DeleteProfile removes a profile by ID.
func (s *SQLiteStorage) DeleteProfile(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("profile %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// DeleteProfilesBySource removes every profile imported from source and returns their IDs.
func (s *SQLiteStorage) DeleteProfilesBySource(ctx context.Context, source string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM profiles WHERE source = ? ORDER BY rowid`, source)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE source = ?`, source); err != nil {
		return nil, err
	}
	return ids, tx.Commit()
}

// ListProfiles returns profiles in insertion order with offset and limit.
func (s *SQLiteStorage) ListProfiles(ctx context.Context, offset, limit int) ([]*models.Profile, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.queryProfiles(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY rowid LIMIT ? OFFSET ?`,
		limit, offset,
	)
}

// ListProfilesBySource returns the profiles imported from source in insertion order.
func (s *SQLiteStorage) ListProfilesBySource(ctx context.Context, source string) ([]*models.Profile, error) {
	return s.queryProfiles(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE source = ? ORDER BY rowid`,
		source,
	)
}

func (s *SQLiteStorage) queryProfiles(ctx context.Context, query string, args ...any) ([]*models.Profile, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// CountProfiles returns the total number of profiles.
func (s *SQLiteStorage) CountProfiles(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
