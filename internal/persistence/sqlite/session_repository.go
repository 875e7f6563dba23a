package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/family-scheduler/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const sessionColumns = "id, member_id, token, expires_at, created_at, updated_at, revoked_at"

// CreateSession inserts a new session and returns the stored record.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.MemberID == "" || session.Token == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
	`
	_, err := r.helper.Exec(ctx, query,
		session.ID,
		session.MemberID,
		session.Token,
		session.ExpiresAt.UTC().Format(time.RFC3339),
		session.CreatedAt.UTC().Format(time.RFC3339),
		session.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	session.RevokedAt = nil
	return session, nil
}

// GetSession retrieves a session by its token.
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE token = ?", token)
	session, err := scanSession(row.Scan)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return session, nil
}

// RevokeSession marks a session revoked and returns the updated record.
// Revoking an already revoked session is a no-op.
func (r *SessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	query := `
		UPDATE sessions
		SET revoked_at = ?, updated_at = ?
		WHERE token = ? AND revoked_at IS NULL
	`
	stamp := revokedAt.UTC().Format(time.RFC3339)
	if _, err := r.helper.Exec(ctx, query, stamp, stamp, token); err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return r.GetSession(ctx, token)
}

// DeleteExpiredSessions removes sessions that expired or were revoked before
// the reference time.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	stamp := reference.UTC().Format(time.RFC3339)
	_, err := r.helper.Exec(ctx,
		"DELETE FROM sessions WHERE expires_at <= ? OR (revoked_at IS NOT NULL AND revoked_at <= ?)",
		stamp, stamp)
	return r.mapper.MapError(err)
}

func scanSession(scan scanFunc) (persistence.Session, error) {
	var session persistence.Session
	var expiresStr, createdStr, updatedStr string
	var revokedStr sql.NullString

	err := scan(
		&session.ID,
		&session.MemberID,
		&session.Token,
		&expiresStr,
		&createdStr,
		&updatedStr,
		&revokedStr,
	)
	if err != nil {
		return persistence.Session{}, err
	}

	if session.ExpiresAt, err = time.Parse(time.RFC3339, expiresStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if session.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if revokedStr.Valid {
		revoked, err := time.Parse(time.RFC3339, revokedStr.String)
		if err != nil {
			return persistence.Session{}, fmt.Errorf("failed to parse revoked_at: %w", err)
		}
		session.RevokedAt = &revoked
	}
	return session, nil
}
