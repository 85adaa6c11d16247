package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OAuthTokenTable holds one row per CRM application credential. In the common
// deployment there is exactly one row shared by every park.
const OAuthTokenTable = "oauth_tokens"

// TokenRecord is the persisted OAuth state for one CRM credential.
type TokenRecord struct {
	CredentialID string
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
	ExpiresIn    int // seconds
}

// TokenStore provides access to the oauth_tokens table.
type TokenStore struct {
	pool *pgxpool.Pool
}

// NewTokenStore creates a store; assumes the schema DDL has been applied.
func NewTokenStore(pool *pgxpool.Pool) (*TokenStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &TokenStore{pool: pool}, nil
}

// Get returns the stored token state for a credential.
func (s *TokenStore) Get(ctx context.Context, credentialID string) (TokenRecord, error) {
	query := fmt.Sprintf(`SELECT credential_id, access_token, refresh_token, issued_at, expires_in
        FROM %s WHERE credential_id = $1`, OAuthTokenTable)

	var rec TokenRecord
	err := s.pool.QueryRow(ctx, query, credentialID).Scan(
		&rec.CredentialID, &rec.AccessToken, &rec.RefreshToken, &rec.IssuedAt, &rec.ExpiresIn,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TokenRecord{}, ErrNotFound
		}
		return TokenRecord{}, err
	}
	return rec, nil
}

// Put upserts the token state. A refresh overwrites the prior row in a single
// statement so readers never observe a half-written token pair.
func (s *TokenStore) Put(ctx context.Context, rec TokenRecord) error {
	if rec.CredentialID == "" {
		return errors.New("credential id is required")
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (credential_id, access_token, refresh_token, issued_at, expires_in)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (credential_id) DO UPDATE SET
            access_token = EXCLUDED.access_token,
            refresh_token = EXCLUDED.refresh_token,
            issued_at = EXCLUDED.issued_at,
            expires_in = EXCLUDED.expires_in,
            updated_at = now()
    `, OAuthTokenTable)

	_, err := s.pool.Exec(ctx, query,
		rec.CredentialID, rec.AccessToken, rec.RefreshToken, rec.IssuedAt, rec.ExpiresIn,
	)
	return err
}
