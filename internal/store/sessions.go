package store

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"

	"barangayreport/internal/models"
)

func (s *Store) CreateSession(ctx context.Context, sess models.Session) error {
	_, err := s.exec(ctx,
		`INSERT INTO sessions(id,user_id,token_hash,ip_address,user_agent,expires_at,idle_expires_at,created_at,last_seen_at) VALUES(?,?,?,?,?,?,?,?,?)`,
		sess.ID, sess.UserID, sess.TokenHash, sess.IPAddress, sess.UserAgent, sess.ExpiresAt, sess.IdleExpiresAt, sess.CreatedAt, sess.LastSeenAt,
	)
	return err
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (models.Session, error) {
	var sess models.Session
	err := sqlscan.Get(ctx, s.q, &sess, s.rebind(
		`SELECT id,user_id,token_hash,ip_address,user_agent,expires_at,idle_expires_at,created_at,last_seen_at,revoked_at FROM sessions WHERE token_hash=?`),
		tokenHash,
	)
	if sqlscan.NotFound(err) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

func (s *Store) TouchSession(ctx context.Context, id string, idleExpiry time.Time) error {
	_, err := s.exec(ctx, `UPDATE sessions SET last_seen_at=?, idle_expires_at=? WHERE id=?`, now(), idleExpiry, id)
	return err
}

func (s *Store) RevokeSession(ctx context.Context, id string) error {
	_, err := s.exec(ctx, `UPDATE sessions SET revoked_at=? WHERE id=? AND revoked_at IS NULL`, now(), id)
	return err
}
