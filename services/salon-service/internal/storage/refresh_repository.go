package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
)

var ErrRefreshInvalid = errors.New("refresh token invalid")

type RefreshRepository struct {
	conn db.DBTX
}

func NewRefreshRepository(conn db.DBTX) *RefreshRepository {
	return &RefreshRepository{conn: conn}
}

// Create stores only the sha256 of rawToken.
func (r *RefreshRepository) Create(ctx context.Context, userID, rawToken string, expiresAt time.Time) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, userID, HashToken(rawToken), expiresAt)
	return err
}

// Rotate revokes oldRaw and stores newRaw for the same user. Revoked, expired
// or unknown tokens yield ErrRefreshInvalid.
func (r *RefreshRepository) Rotate(ctx context.Context, oldRaw, newRaw string, expiresAt time.Time) (string, error) {
	var userID string
	err := db.WithTx(ctx, r.conn, func(tx pgx.Tx) error {
		var id string
		var expires time.Time
		var revokedAt *time.Time
		err := tx.QueryRow(ctx, `
			SELECT id::text, user_id::text, expires_at, revoked_at
			FROM refresh_tokens
			WHERE token_hash = $1
			FOR UPDATE
		`, HashToken(oldRaw)).Scan(&id, &userID, &expires, &revokedAt)
		if IsNotFound(err) {
			return ErrRefreshInvalid
		}
		if err != nil {
			return err
		}
		if revokedAt != nil || time.Now().After(expires) {
			return ErrRefreshInvalid
		}
		if _, err := tx.Exec(ctx, `UPDATE refresh_tokens SET revoked_at = now() WHERE id = $1`, id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
			VALUES ($1, $2, $3)
		`, userID, HashToken(newRaw), expiresAt)
		return err
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (r *RefreshRepository) Revoke(ctx context.Context, rawToken string) error {
	_, err := r.conn.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL
	`, HashToken(rawToken))
	return err
}

func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
