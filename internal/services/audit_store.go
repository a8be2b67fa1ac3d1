package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/calmry/calmry-backend/internal/models"
)

// AuditStore persists sign-in audit rows. These rows are bookkeeping only:
// token verification never reads them.
type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// RecordSignin inserts an audit row for a successful sign-in.
func (s *AuditStore) RecordSignin(ctx context.Context, rec *models.AuthSession) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.LastActive = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (id, user_id, token_digest, device_info, ip_address, expires_at, last_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, rec.UserID, rec.TokenDigest, rec.DeviceInfo, rec.IPAddress, rec.ExpiresAt, rec.LastActive, rec.CreatedAt)
	return err
}

// RevokeByDigest marks the audit row for a token as revoked. Best effort:
// a missing row is not an error (the cookie may already be expired).
func (s *AuditStore) RevokeByDigest(ctx context.Context, digest string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE auth_sessions SET revoked_at = NOW() WHERE token_digest = $1 AND revoked_at IS NULL
	`, digest)
	return err
}

// ListUserSessions returns the non-revoked, unexpired audit rows for a user,
// newest first.
func (s *AuditStore) ListUserSessions(ctx context.Context, userID uuid.UUID) ([]models.AuthSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, token_digest, device_info, ip_address, expires_at, last_active, revoked_at, created_at
		FROM auth_sessions
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > NOW()
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.AuthSession
	for rows.Next() {
		var rec models.AuthSession
		var deviceInfo, ipAddress sql.NullString
		var revokedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.TokenDigest, &deviceInfo, &ipAddress,
			&rec.ExpiresAt, &rec.LastActive, &revokedAt, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.DeviceInfo = deviceInfo.String
		rec.IPAddress = ipAddress.String
		if revokedAt.Valid {
			t := revokedAt.Time
			rec.RevokedAt = &t
		}
		sessions = append(sessions, rec)
	}
	return sessions, rows.Err()
}

// DeleteDeadSessions removes audit rows that are expired or were revoked
// more than the given age ago. Called by the cleanup service.
func (s *AuditStore) DeleteDeadSessions(ctx context.Context, revokedAge time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM auth_sessions
		WHERE expires_at < NOW() OR (revoked_at IS NOT NULL AND revoked_at < $1)
	`, time.Now().Add(-revokedAge))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
