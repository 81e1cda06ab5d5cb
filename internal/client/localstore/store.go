// Package localstore keeps client state in a local SQLite file: the token
// pair, a mirror of the verification overview and the start codes.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"debate-platform-backend/internal/common/logger"
	"debate-platform-backend/internal/features/verification/models"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
)

// DefaultProfileTTL is how long a mirrored overview is served without asking
// the server again.
const DefaultProfileTTL = time.Minute

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS profile (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	data TEXT NOT NULL,
	fetched_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS codes (
	platform TEXT PRIMARY KEY,
	code TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);`

type Store struct {
	db         *sql.DB
	now        func() time.Time
	profileTTL time.Duration
}

// Open creates the database and its directory when missing. A non-positive
// profileTTL means DefaultProfileTTL.
func Open(path string, profileTTL time.Duration) (*Store, error) {
	if profileTTL <= 0 {
		profileTTL = DefaultProfileTTL
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// один писатель, иначе SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &Store{db: db, now: time.Now, profileTTL: profileTTL}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Tokens returns empty strings when nobody is logged in.
func (s *Store) Tokens(ctx context.Context) (string, string, error) {
	access, err := s.get(ctx, keyAccessToken)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.get(ctx, keyRefreshToken)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *Store) SaveTokens(ctx context.Context, access, refresh string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.now().Unix()
	for key, value := range map[string]string{keyAccessToken: access, keyRefreshToken: refresh} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, now,
		); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// ClearTokens also drops the mirrored profile: it belongs to the old session.
func (s *Store) ClearTokens(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key IN (?, ?)`, keyAccessToken, keyRefreshToken); err != nil {
		return err
	}
	return s.InvalidateProfile(ctx)
}

// Profile returns the mirrored overview while it is younger than the profile
// TTL. On a miss or an expired mirror it calls fetch and stores the result.
func (s *Store) Profile(ctx context.Context, fetch func(context.Context) (*models.Overview, error)) (*models.Overview, error) {
	var (
		data      string
		fetchedAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT data, fetched_at FROM profile WHERE id = 1`).Scan(&data, &fetchedAt)
	switch {
	case err == nil && s.now().Sub(time.Unix(fetchedAt, 0)) >= s.profileTTL:
		logger.Debug().Int64("fetched_at", fetchedAt).Msg("Profile mirror expired")
	case err == nil:
		var overview models.Overview
		if err := json.Unmarshal([]byte(data), &overview); err == nil {
			return &overview, nil
		}
		logger.Warn().Msg("Dropping unreadable profile mirror")
	case !stderrors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	overview, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(overview)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO profile (id, data, fetched_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, fetched_at = excluded.fetched_at`,
		string(raw), s.now().Unix(),
	); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return overview, nil
}

func (s *Store) InvalidateProfile(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM profile`)
	return err
}

func (s *Store) SaveCode(ctx context.Context, platform models.Platform, code string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO codes (platform, code, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(platform) DO UPDATE SET code = excluded.code, expires_at = excluded.expires_at`,
		string(platform), code, expiresAt.Unix(),
	)
	return err
}

// Code returns the unexpired start code for platform.
func (s *Store) Code(ctx context.Context, platform models.Platform) (string, bool, error) {
	var (
		code      string
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT code, expires_at FROM codes WHERE platform = ?`, string(platform)).
		Scan(&code, &expiresAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if s.now().Unix() >= expiresAt {
		return "", false, s.DeleteCode(ctx, platform)
	}
	return code, true, nil
}

func (s *Store) DeleteCode(ctx context.Context, platform models.Platform) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM codes WHERE platform = ?`, string(platform))
	return err
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}
