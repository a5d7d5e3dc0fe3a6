package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/qfin/internal/dbx"
)

const (
	tokenKey = "token"
	userKey  = "user"
)

// SQLiteStore keeps the session as two rows of the session table: the raw
// credential under "token" and the JSON profile under "user". Both rows are
// written and removed in one transaction.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (r *SQLiteStore) Save(ctx context.Context, s Session) error {
	if s.Credential == "" {
		return ErrEmptyCredential
	}
	user, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("failed to encode user profile: %w", err)
	}

	return dbx.WithTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		if err := setValue(ctx, tx, tokenKey, []byte(s.Credential)); err != nil {
			return err
		}
		return setValue(ctx, tx, userKey, user)
	})
}

// Read returns the stored session. A profile that cannot be decoded makes
// the whole pair count as absent.
func (r *SQLiteStore) Read(ctx context.Context) (Session, bool, error) {
	var token, user []byte
	err := dbx.WithTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if token, err = getValue(ctx, tx, tokenKey); err != nil {
			return err
		}
		user, err = getValue(ctx, tx, userKey)
		return err
	})
	if err != nil {
		return Session{}, false, err
	}
	if len(token) == 0 || user == nil {
		return Session{}, false, nil
	}

	var profile UserProfile
	if err := json.Unmarshal(user, &profile); err != nil {
		return Session{}, false, nil
	}
	return Session{Credential: string(token), User: profile}, true, nil
}

func (r *SQLiteStore) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session WHERE key IN (?, ?)`, tokenKey, userKey)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (r *SQLiteStore) HasCredential(ctx context.Context) (bool, error) {
	token, err := getValue(ctx, r.db, tokenKey)
	if err != nil {
		return false, err
	}
	return len(token) > 0, nil
}

func getValue(ctx context.Context, db dbx.DBTX, key string) ([]byte, error) {
	var value []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM session WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session[%s]: %w", key, err)
	}
	return value, nil
}

func setValue(ctx context.Context, db dbx.DBTX, key string, value []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO session (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set session[%s]: %w", key, err)
	}
	return nil
}
