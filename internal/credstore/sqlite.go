package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS credentials (
    id              INTEGER PRIMARY KEY CHECK (id = 1),
    api_key         TEXT NOT NULL,
    client_id       TEXT NOT NULL,
    client_secret   TEXT NOT NULL,
    access_token    TEXT NOT NULL,
    refresh_token   TEXT NOT NULL,
    expires_at      TEXT NOT NULL,
    membership_id   TEXT NOT NULL,
    membership_type INTEGER NOT NULL,
    display_name    TEXT NOT NULL DEFAULT '',
    global_name     TEXT NOT NULL DEFAULT '',
    created_at      TEXT
);`

type sqliteStore struct{ db *sql.DB }

// OpenSQLite opens (or creates) the credential database at the given path
// and ensures the schema exists. WAL keeps concurrent reads cheap.
func OpenSQLite(path string) (Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Load(ctx context.Context) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT api_key, client_id, client_secret, access_token, refresh_token, expires_at,
               membership_id, membership_type, display_name, global_name, created_at
        FROM credentials WHERE id = 1`)
	return scanRecord(row)
}

func (s *sqliteStore) Save(ctx context.Context, rec *Record) error {
	createdAt := timeToNullString(rec.Identity.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO credentials
            (id, api_key, client_id, client_secret, access_token, refresh_token, expires_at,
             membership_id, membership_type, display_name, global_name, created_at)
        VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            api_key = excluded.api_key,
            client_id = excluded.client_id,
            client_secret = excluded.client_secret,
            access_token = excluded.access_token,
            refresh_token = excluded.refresh_token,
            expires_at = excluded.expires_at,
            membership_id = excluded.membership_id,
            membership_type = excluded.membership_type,
            display_name = excluded.display_name,
            global_name = excluded.global_name,
            created_at = excluded.created_at`,
		rec.Credential.APIKey, rec.Credential.ClientID, rec.Credential.ClientSecret,
		rec.Credential.AccessToken, rec.Credential.RefreshToken,
		rec.Credential.ExpiresAt.UTC().Format(time.RFC3339Nano),
		rec.Identity.MembershipID, rec.Identity.MembershipType,
		rec.Identity.DisplayName, rec.Identity.GlobalName, createdAt)
	return err
}

func (s *sqliteStore) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec       Record
		expiresAt string
		createdAt sql.NullString
	)
	err := row.Scan(
		&rec.Credential.APIKey, &rec.Credential.ClientID, &rec.Credential.ClientSecret,
		&rec.Credential.AccessToken, &rec.Credential.RefreshToken, &expiresAt,
		&rec.Identity.MembershipID, &rec.Identity.MembershipType,
		&rec.Identity.DisplayName, &rec.Identity.GlobalName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotLinked
	}
	if err != nil {
		return nil, err
	}

	rec.Credential.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("stored expires_at: %w", err)
	}
	if createdAt.Valid && createdAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, createdAt.String)
		if err == nil {
			rec.Identity.CreatedAt = &t
		}
	}
	return &rec, nil
}

func timeToNullString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
