package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/family-scheduler/internal/persistence"
)

// NoteService orchestrates validation and persistence for bulletin notes.
type NoteService struct {
	notes       persistence.NoteRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewNoteService wires dependencies for note operations.
func NewNoteService(notes persistence.NoteRepository, idGenerator func() string, now func() time.Time) *NoteService {
	return NewNoteServiceWithLogger(notes, idGenerator, now, nil)
}

// NewNoteServiceWithLogger constructs a NoteService with a specified logger.
func NewNoteServiceWithLogger(notes persistence.NoteRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *NoteService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &NoteService{
		notes:       notes,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *NoteService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "NoteService", operation, attrs...)
}

// CreateNote posts a new note authored by the principal.
func (s *NoteService) CreateNote(ctx context.Context, params CreateNoteParams) (result Note, err error) {
	if s == nil || s.notes == nil {
		return Note{}, fmt.Errorf("note repository not configured")
	}

	logger := s.loggerWith(ctx, "CreateNote", "author_id", params.Principal.MemberID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "note creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("note_id", result.ID).InfoContext(ctx, "note created")
	}()

	vErr := &ValidationError{}
	validateNoteCore(params.Input, vErr)
	if vErr.HasErrors() {
		err = vErr
		return Note{}, err
	}

	now := s.now()
	record := persistence.Note{
		ID:        s.idGenerator(),
		AuthorID:  params.Principal.MemberID,
		Title:     strings.TrimSpace(params.Input.Title),
		Body:      params.Input.Body,
		Pinned:    params.Input.Pinned,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.notes.CreateNote(ctx, record); err != nil {
		err = mapNoteRepoError(err)
		return Note{}, err
	}
	return toApplicationNote(record), nil
}

// UpdateNote edits an existing note. Only the author or an admin may edit.
func (s *NoteService) UpdateNote(ctx context.Context, params UpdateNoteParams) (result Note, err error) {
	if s == nil || s.notes == nil {
		return Note{}, fmt.Errorf("note repository not configured")
	}

	logger := s.loggerWith(ctx, "UpdateNote", "note_id", params.NoteID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "note update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "note updated")
	}()

	var existing persistence.Note
	existing, err = s.notes.GetNote(ctx, params.NoteID)
	if err != nil {
		err = mapNoteRepoError(err)
		return Note{}, err
	}

	principal := params.Principal
	if existing.AuthorID != principal.MemberID && !principal.IsAdmin {
		err = ErrUnauthorized
		return Note{}, err
	}

	vErr := &ValidationError{}
	validateNoteCore(params.Input, vErr)
	if vErr.HasErrors() {
		err = vErr
		return Note{}, err
	}

	updated := existing
	updated.Title = strings.TrimSpace(params.Input.Title)
	updated.Body = params.Input.Body
	updated.Pinned = params.Input.Pinned
	updated.UpdatedAt = s.now()

	if err = s.notes.UpdateNote(ctx, updated); err != nil {
		err = mapNoteRepoError(err)
		return Note{}, err
	}
	return toApplicationNote(updated), nil
}

// GetNote retrieves a note by ID.
func (s *NoteService) GetNote(ctx context.Context, id string) (Note, error) {
	if s == nil || s.notes == nil {
		return Note{}, fmt.Errorf("note repository not configured")
	}
	record, err := s.notes.GetNote(ctx, id)
	if err != nil {
		return Note{}, mapNoteRepoError(err)
	}
	return toApplicationNote(record), nil
}

// ListNotes enumerates every note, pinned notes first.
func (s *NoteService) ListNotes(ctx context.Context) ([]Note, error) {
	if s == nil || s.notes == nil {
		return nil, fmt.Errorf("note repository not configured")
	}
	records, err := s.notes.ListNotes(ctx)
	if err != nil {
		return nil, mapNoteRepoError(err)
	}
	notes := make([]Note, 0, len(records))
	for _, record := range records {
		notes = append(notes, toApplicationNote(record))
	}
	return notes, nil
}

// DeleteNote removes a note. Only the author or an admin may delete.
func (s *NoteService) DeleteNote(ctx context.Context, principal Principal, noteID string) error {
	if s == nil || s.notes == nil {
		return fmt.Errorf("note repository not configured")
	}

	existing, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		return mapNoteRepoError(err)
	}
	if existing.AuthorID != principal.MemberID && !principal.IsAdmin {
		return ErrUnauthorized
	}
	return mapNoteRepoError(s.notes.DeleteNote(ctx, noteID))
}

func validateNoteCore(input NoteInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
}

func toApplicationNote(record persistence.Note) Note {
	return Note{
		ID:        record.ID,
		AuthorID:  record.AuthorID,
		Title:     record.Title,
		Body:      record.Body,
		Pinned:    record.Pinned,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func mapNoteRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("author_id", "author does not exist")
		return vErr
	}
	return err
}
