package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/linesync/internal/models"
	"github.com/desertthunder/linesync/internal/session"
)

// Keys of the credentials table.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyExpiresAt    = "expires_at"
)

// CredentialRepository persists the session credential as key/value rows.
//
// Absent keys read as empty. expires_at is stored as RFC3339 and omitted for credentials without expiry.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Load reads the stored credential. An empty table yields a zero credential.
func (r *CredentialRepository) Load(ctx context.Context) (models.Credential, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM credentials`)
	if err != nil {
		return models.Credential{}, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	var cred models.Credential
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Credential{}, fmt.Errorf("failed to scan credential: %w", err)
		}

		switch key {
		case KeyAccessToken:
			cred.AccessToken = value
		case KeyRefreshToken:
			cred.RefreshToken = value
		case KeyExpiresAt:
			if value == "" {
				continue
			}
			expiresAt, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return models.Credential{}, fmt.Errorf("invalid stored expiry %q: %w", value, err)
			}
			cred.ExpiresAt = expiresAt
		}
	}

	if err := rows.Err(); err != nil {
		return models.Credential{}, fmt.Errorf("error iterating credentials: %w", err)
	}
	return cred, nil
}

// Save replaces the stored credential atomically.
func (r *CredentialRepository) Save(ctx context.Context, cred models.Credential) error {
	values := map[string]string{
		KeyAccessToken:  cred.AccessToken,
		KeyRefreshToken: cred.RefreshToken,
	}
	if !cred.ExpiresAt.IsZero() {
		values[KeyExpiresAt] = cred.ExpiresAt.UTC().Format(time.RFC3339)
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
			return fmt.Errorf("failed to clear credentials: %w", err)
		}

		now := time.Now().UTC()
		for key, value := range values {
			if value == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)`, key, value, now,
			); err != nil {
				return fmt.Errorf("failed to store %s: %w", key, err)
			}
		}
		return nil
	})
}

// Clear removes every stored credential key.
func (r *CredentialRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

var _ session.Store = (*CredentialRepository)(nil)
