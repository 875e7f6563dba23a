package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/family-scheduler/internal/persistence"
)

// PasswordHasher derives a storable hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// MemberService orchestrates validation and persistence for member accounts.
type MemberService struct {
	members      persistence.MemberRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewMemberService wires dependencies for member operations.
func NewMemberService(members persistence.MemberRepository, hashPassword PasswordHasher, idGenerator func() string, now func() time.Time) *MemberService {
	return NewMemberServiceWithLogger(members, hashPassword, idGenerator, now, nil)
}

// NewMemberServiceWithLogger constructs a MemberService with a specified logger.
func NewMemberServiceWithLogger(members persistence.MemberRepository, hashPassword PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MemberService {
	if hashPassword == nil {
		hashPassword = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MemberService{
		members:      members,
		hashPassword: hashPassword,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *MemberService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MemberService", operation, attrs...)
}

// CreateMember registers a new family member. Only admins may create members.
func (s *MemberService) CreateMember(ctx context.Context, params CreateMemberParams) (result Member, err error) {
	if s == nil || s.members == nil {
		return Member{}, fmt.Errorf("member repository not configured")
	}
	if !params.Principal.IsAdmin {
		return Member{}, ErrUnauthorized
	}

	input := params.Input
	email := strings.TrimSpace(strings.ToLower(input.Email))

	logger := s.loggerWith(ctx, "CreateMember", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "member creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("member_id", result.ID).InfoContext(ctx, "member created")
	}()

	vErr := &ValidationError{}
	validateMemberCore(email, input, vErr)
	if strings.TrimSpace(input.Password) == "" {
		vErr.add("password", "password is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return Member{}, err
	}

	var hash string
	hash, err = s.hashPassword(input.Password)
	if err != nil {
		return Member{}, err
	}

	now := s.now()
	record := persistence.Member{
		ID:           s.idGenerator(),
		Email:        email,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		Color:        input.Color,
		PasswordHash: hash,
		IsAdmin:      input.IsAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = s.members.CreateMember(ctx, record); err != nil {
		err = mapMemberRepoError(err)
		return Member{}, err
	}
	return toApplicationMember(record), nil
}

// UpdateMember updates a member's profile. Members may edit themselves;
// admins may edit anyone. Only admins may grant or revoke admin rights.
func (s *MemberService) UpdateMember(ctx context.Context, params UpdateMemberParams) (result Member, err error) {
	if s == nil || s.members == nil {
		return Member{}, fmt.Errorf("member repository not configured")
	}

	logger := s.loggerWith(ctx, "UpdateMember", "member_id", params.MemberID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "member update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "member updated")
	}()

	principal := params.Principal
	if params.MemberID != principal.MemberID && !principal.IsAdmin {
		err = ErrUnauthorized
		return Member{}, err
	}

	var existing persistence.Member
	existing, err = s.members.GetMember(ctx, params.MemberID)
	if err != nil {
		err = mapMemberRepoError(err)
		return Member{}, err
	}

	input := params.Input
	email := strings.TrimSpace(strings.ToLower(input.Email))

	vErr := &ValidationError{}
	validateMemberCore(email, input, vErr)
	if input.IsAdmin != existing.IsAdmin && !principal.IsAdmin {
		vErr.add("is_admin", "only admins can change admin status")
	}
	if vErr.HasErrors() {
		err = vErr
		return Member{}, err
	}

	updated := existing
	updated.Email = email
	updated.DisplayName = strings.TrimSpace(input.DisplayName)
	updated.Color = input.Color
	if principal.IsAdmin {
		updated.IsAdmin = input.IsAdmin
	}
	if strings.TrimSpace(input.Password) != "" {
		var hash string
		hash, err = s.hashPassword(input.Password)
		if err != nil {
			return Member{}, err
		}
		updated.PasswordHash = hash
	}
	updated.UpdatedAt = s.now()

	if err = s.members.UpdateMember(ctx, updated); err != nil {
		err = mapMemberRepoError(err)
		return Member{}, err
	}
	return toApplicationMember(updated), nil
}

// GetMember retrieves a member by ID.
func (s *MemberService) GetMember(ctx context.Context, id string) (Member, error) {
	if s == nil || s.members == nil {
		return Member{}, fmt.Errorf("member repository not configured")
	}
	record, err := s.members.GetMember(ctx, id)
	if err != nil {
		return Member{}, mapMemberRepoError(err)
	}
	return toApplicationMember(record), nil
}

// ListMembers enumerates every member of the family.
func (s *MemberService) ListMembers(ctx context.Context) ([]Member, error) {
	if s == nil || s.members == nil {
		return nil, fmt.Errorf("member repository not configured")
	}
	records, err := s.members.ListMembers(ctx)
	if err != nil {
		return nil, mapMemberRepoError(err)
	}
	members := make([]Member, 0, len(records))
	for _, record := range records {
		members = append(members, toApplicationMember(record))
	}
	return members, nil
}

// DeleteMember removes a member. Only admins may delete, and never themselves.
func (s *MemberService) DeleteMember(ctx context.Context, principal Principal, memberID string) error {
	if s == nil || s.members == nil {
		return fmt.Errorf("member repository not configured")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if memberID == principal.MemberID {
		vErr := &ValidationError{}
		vErr.add("member_id", "cannot delete your own account")
		return vErr
	}
	return mapMemberRepoError(s.members.DeleteMember(ctx, memberID))
}

func validateMemberCore(email string, input MemberInput, vErr *ValidationError) {
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "email is not valid")
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		vErr.add("display_name", "display name is required")
	}
}

func toApplicationMember(record persistence.Member) Member {
	return Member{
		ID:          record.ID,
		Email:       record.Email,
		DisplayName: record.DisplayName,
		Color:       record.Color,
		IsAdmin:     record.IsAdmin,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func mapMemberRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		vErr := &ValidationError{}
		vErr.add("email", "email is already registered")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("member_id", "member is still referenced by events or notes")
		return vErr
	}
	return err
}
