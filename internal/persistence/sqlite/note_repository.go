package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/family-scheduler/internal/persistence"
)

// NoteRepository implements persistence.NoteRepository using SQLite.
type NoteRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewNoteRepository creates a new SQLite note repository.
func NewNoteRepository(pool *ConnectionPool) *NoteRepository {
	return &NoteRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const noteColumns = "id, author_id, title, body, pinned, created_at, updated_at"

// CreateNote inserts a new note.
func (r *NoteRepository) CreateNote(ctx context.Context, note persistence.Note) error {
	if note.ID == "" || note.AuthorID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO notes (` + noteColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		note.ID,
		note.AuthorID,
		note.Title,
		note.Body,
		boolToInt(note.Pinned),
		note.CreatedAt.UTC().Format(time.RFC3339),
		note.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return r.mapper.MapError(err)
}

// UpdateNote updates an existing note. The author is fixed at creation time.
func (r *NoteRepository) UpdateNote(ctx context.Context, note persistence.Note) error {
	if note.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE notes
		SET title = ?, body = ?, pinned = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		note.Title,
		note.Body,
		boolToInt(note.Pinned),
		note.UpdatedAt.UTC().Format(time.RFC3339),
		note.ID,
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

// GetNote retrieves a note by ID.
func (r *NoteRepository) GetNote(ctx context.Context, id string) (persistence.Note, error) {
	if id == "" {
		return persistence.Note{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id)
	note, err := scanNote(row.Scan)
	if err != nil {
		return persistence.Note{}, r.mapper.MapError(err)
	}
	return note, nil
}

// ListNotes lists every note, pinned first, newest first within each group.
func (r *NoteRepository) ListNotes(ctx context.Context) ([]persistence.Note, error) {
	rows, err := r.helper.Query(ctx,
		"SELECT "+noteColumns+" FROM notes ORDER BY pinned DESC, created_at DESC, id ASC")
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var notes []persistence.Note
	for rows.Next() {
		note, err := scanNote(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return notes, nil
}

// DeleteNote removes a note by ID.
func (r *NoteRepository) DeleteNote(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM notes WHERE id = ?", id)
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

func scanNote(scan scanFunc) (persistence.Note, error) {
	var note persistence.Note
	var pinned int
	var createdStr, updatedStr string

	err := scan(
		&note.ID,
		&note.AuthorID,
		&note.Title,
		&note.Body,
		&pinned,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.Note{}, err
	}

	note.Pinned = pinned != 0
	if note.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.Note{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if note.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.Note{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return note, nil
}
