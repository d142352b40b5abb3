package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS credentials (
    id              INTEGER PRIMARY KEY CHECK (id = 1),
    api_key         TEXT NOT NULL,
    client_id       TEXT NOT NULL,
    client_secret   TEXT NOT NULL,
    access_token    TEXT NOT NULL,
    refresh_token   TEXT NOT NULL,
    expires_at      TIMESTAMPTZ NOT NULL,
    membership_id   TEXT NOT NULL,
    membership_type INTEGER NOT NULL,
    display_name    TEXT NOT NULL DEFAULT '',
    global_name     TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ
);`

type postgresStore struct{ db *sql.DB }

// OpenPostgres opens a PostgreSQL-backed credential store using the pgx
// stdlib driver, verifies connectivity, and ensures the schema exists.
func OpenPostgres(dsn string) (Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &postgresStore{db: db}, nil
}

func (s *postgresStore) Load(ctx context.Context) (*Record, error) {
	var (
		rec       Record
		createdAt sql.NullTime
	)
	row := s.db.QueryRowContext(ctx, `
        SELECT api_key, client_id, client_secret, access_token, refresh_token, expires_at,
               membership_id, membership_type, display_name, global_name, created_at
        FROM credentials WHERE id = 1`)
	err := row.Scan(
		&rec.Credential.APIKey, &rec.Credential.ClientID, &rec.Credential.ClientSecret,
		&rec.Credential.AccessToken, &rec.Credential.RefreshToken, &rec.Credential.ExpiresAt,
		&rec.Identity.MembershipID, &rec.Identity.MembershipType,
		&rec.Identity.DisplayName, &rec.Identity.GlobalName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotLinked
	}
	if err != nil {
		return nil, err
	}
	if createdAt.Valid {
		t := createdAt.Time
		rec.Identity.CreatedAt = &t
	}
	return &rec, nil
}

func (s *postgresStore) Save(ctx context.Context, rec *Record) error {
	var createdAt *time.Time
	if rec.Identity.CreatedAt != nil {
		createdAt = rec.Identity.CreatedAt
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO credentials
            (id, api_key, client_id, client_secret, access_token, refresh_token, expires_at,
             membership_id, membership_type, display_name, global_name, created_at)
        VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (id) DO UPDATE SET
            api_key = EXCLUDED.api_key,
            client_id = EXCLUDED.client_id,
            client_secret = EXCLUDED.client_secret,
            access_token = EXCLUDED.access_token,
            refresh_token = EXCLUDED.refresh_token,
            expires_at = EXCLUDED.expires_at,
            membership_id = EXCLUDED.membership_id,
            membership_type = EXCLUDED.membership_type,
            display_name = EXCLUDED.display_name,
            global_name = EXCLUDED.global_name,
            created_at = EXCLUDED.created_at`,
		rec.Credential.APIKey, rec.Credential.ClientID, rec.Credential.ClientSecret,
		rec.Credential.AccessToken, rec.Credential.RefreshToken, rec.Credential.ExpiresAt.UTC(),
		rec.Identity.MembershipID, rec.Identity.MembershipType,
		rec.Identity.DisplayName, rec.Identity.GlobalName, createdAt)
	return err
}

func (s *postgresStore) Close() error { return s.db.Close() }
