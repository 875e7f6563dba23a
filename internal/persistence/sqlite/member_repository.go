package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/family-scheduler/internal/persistence"
)

// MemberRepository implements persistence.MemberRepository using SQLite.
type MemberRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewMemberRepository creates a new SQLite member repository.
func NewMemberRepository(pool *ConnectionPool) *MemberRepository {
	return &MemberRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const memberColumns = "id, email, display_name, color, password_hash, is_admin, created_at, updated_at"

// CreateMember inserts a new member.
func (r *MemberRepository) CreateMember(ctx context.Context, member persistence.Member) error {
	if member.ID == "" || member.Email == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO members (` + memberColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		member.ID,
		member.Email,
		member.DisplayName,
		member.Color,
		member.PasswordHash,
		boolToInt(member.IsAdmin),
		member.CreatedAt.UTC().Format(time.RFC3339),
		member.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return r.mapper.MapError(err)
}

// UpdateMember updates an existing member.
func (r *MemberRepository) UpdateMember(ctx context.Context, member persistence.Member) error {
	if member.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE members
		SET email = ?, display_name = ?, color = ?, password_hash = ?, is_admin = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		member.Email,
		member.DisplayName,
		member.Color,
		member.PasswordHash,
		boolToInt(member.IsAdmin),
		member.UpdatedAt.UTC().Format(time.RFC3339),
		member.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetMember retrieves a member by ID.
func (r *MemberRepository) GetMember(ctx context.Context, id string) (persistence.Member, error) {
	if id == "" {
		return persistence.Member{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, "SELECT "+memberColumns+" FROM members WHERE id = ?", id)
	member, err := scanMember(row.Scan)
	if err != nil {
		return persistence.Member{}, r.mapper.MapError(err)
	}
	return member, nil
}

// GetMemberByEmail retrieves a member by email address.
func (r *MemberRepository) GetMemberByEmail(ctx context.Context, email string) (persistence.Member, error) {
	if email == "" {
		return persistence.Member{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, "SELECT "+memberColumns+" FROM members WHERE email = ?", email)
	member, err := scanMember(row.Scan)
	if err != nil {
		return persistence.Member{}, r.mapper.MapError(err)
	}
	return member, nil
}

// ListMembers lists every member ordered by display name.
func (r *MemberRepository) ListMembers(ctx context.Context) ([]persistence.Member, error) {
	rows, err := r.helper.Query(ctx,
		"SELECT "+memberColumns+" FROM members ORDER BY display_name ASC, id ASC")
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var members []persistence.Member
	for rows.Next() {
		member, err := scanMember(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return members, nil
}

// DeleteMember removes a member by ID.
func (r *MemberRepository) DeleteMember(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM members WHERE id = ?", id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func scanMember(scan scanFunc) (persistence.Member, error) {
	var member persistence.Member
	var isAdmin int
	var createdStr, updatedStr string

	err := scan(
		&member.ID,
		&member.Email,
		&member.DisplayName,
		&member.Color,
		&member.PasswordHash,
		&isAdmin,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.Member{}, err
	}

	member.IsAdmin = isAdmin != 0
	if member.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.Member{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if member.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.Member{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return member, nil
}
