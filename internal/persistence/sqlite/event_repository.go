package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/family-scheduler/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite.
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateEvents inserts a batch of events with their member tags in a single
// transaction. The batch is all-or-nothing: a constraint failure on any row
// rolls back every row.
func (r *EventRepository) CreateEvents(ctx context.Context, events []persistence.Event) error {
	if len(events) == 0 {
		return nil
	}
	for _, event := range events {
		if event.ID == "" || event.CreatorID == "" {
			return persistence.ErrConstraintViolation
		}
		// Zero-duration events are legal; only an inverted range is not.
		if event.End.Before(event.Start) {
			return persistence.ErrConstraintViolation
		}
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO events (id, series_id, creator_id, title, description, color, completed, start_time, end_time, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		for _, event := range events {
			var seriesID sql.NullString
			if event.SeriesID != nil {
				seriesID.String = *event.SeriesID
				seriesID.Valid = true
			}

			_, err := r.helper.ExecTx(tx, query,
				event.ID,
				seriesID,
				event.CreatorID,
				event.Title,
				event.Description,
				event.Color,
				boolToInt(event.Completed),
				event.Start.UTC().Format(time.RFC3339),
				event.End.UTC().Format(time.RFC3339),
				event.CreatedAt.UTC().Format(time.RFC3339),
				event.UpdatedAt.UTC().Format(time.RFC3339),
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			if err := r.insertMembers(tx, event.ID, event.MemberIDs); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateEvent updates an existing event and its member tags.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrNotFound
	}
	if event.End.Before(event.Start) {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		// The creator is fixed at creation time.
		var currentCreatorID string
		err := r.helper.QueryRowTx(tx, "SELECT creator_id FROM events WHERE id = ?", event.ID).Scan(&currentCreatorID)
		if err != nil {
			return r.mapper.MapError(err)
		}

		query := `
			UPDATE events
			SET title = ?, description = ?, color = ?, completed = ?, start_time = ?, end_time = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := r.helper.ExecTx(tx, query,
			event.Title,
			event.Description,
			event.Color,
			boolToInt(event.Completed),
			event.Start.UTC().Format(time.RFC3339),
			event.End.UTC().Format(time.RFC3339),
			event.UpdatedAt.UTC().Format(time.RFC3339),
			event.ID,
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

		if _, err := r.helper.ExecTx(tx, "DELETE FROM event_members WHERE event_id = ?", event.ID); err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertMembers(tx, event.ID, event.MemberIDs)
	})
}

// GetEvent retrieves an event by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, series_id, creator_id, title, description, color, completed, start_time, end_time, created_at, updated_at
		FROM events
		WHERE id = ?
	`
	row := r.helper.QueryRow(ctx, query, id)
	event, err := scanEvent(row.Scan)
	if err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}

	members, err := r.loadMembers(ctx, id)
	if err != nil {
		return persistence.Event{}, err
	}
	event.MemberIDs = members
	return event, nil
}

// ListEvents lists events matching the filter, ordered by start time.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	query, args := r.buildListQuery(filter)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range events {
		members, err := r.loadMembers(ctx, events[i].ID)
		if err != nil {
			return nil, err
		}
		events[i].MemberIDs = members
	}
	return events, nil
}

// DeleteEvent removes a single event by ID.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx, "DELETE FROM event_members WHERE event_id = ?", id); err != nil {
			return r.mapper.MapError(err)
		}
		result, err := r.helper.ExecTx(tx, "DELETE FROM events WHERE id = ?", id)
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
	})
}

// DeleteSeries removes every event sharing the given series ID.
func (r *EventRepository) DeleteSeries(ctx context.Context, seriesID string) error {
	if seriesID == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx,
			"DELETE FROM event_members WHERE event_id IN (SELECT id FROM events WHERE series_id = ?)",
			seriesID); err != nil {
			return r.mapper.MapError(err)
		}
		result, err := r.helper.ExecTx(tx, "DELETE FROM events WHERE series_id = ?", seriesID)
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
	})
}

func (r *EventRepository) insertMembers(tx *sql.Tx, eventID string, memberIDs []string) error {
	if len(memberIDs) == 0 {
		return nil
	}

	unique := make(map[string]struct{}, len(memberIDs))
	for _, memberID := range memberIDs {
		memberID = strings.TrimSpace(memberID)
		if memberID != "" {
			unique[memberID] = struct{}{}
		}
	}
	for memberID := range unique {
		_, err := r.helper.ExecTx(tx,
			"INSERT INTO event_members (event_id, member_id) VALUES (?, ?)",
			eventID, memberID)
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *EventRepository) loadMembers(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.helper.Query(ctx,
		"SELECT member_id FROM event_members WHERE event_id = ? ORDER BY member_id ASC",
		eventID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var memberID string
		if err := rows.Scan(&memberID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		members = append(members, memberID)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return members, nil
}

func (r *EventRepository) buildListQuery(filter persistence.EventFilter) (string, []any) {
	baseQuery := `
		SELECT DISTINCT e.id, e.series_id, e.creator_id, e.title, e.description, e.color, e.completed, e.start_time, e.end_time, e.created_at, e.updated_at
		FROM events e
	`

	var conditions []string
	var args []any

	if len(filter.MemberIDs) > 0 {
		baseQuery += " LEFT JOIN event_members em ON e.id = em.event_id"

		placeholders := make([]string, len(filter.MemberIDs))
		for i, memberID := range filter.MemberIDs {
			placeholders[i] = "?"
			args = append(args, memberID)
		}
		condition := fmt.Sprintf("(em.member_id IN (%s) OR e.creator_id IN (%s))",
			strings.Join(placeholders, ","), strings.Join(placeholders, ","))
		conditions = append(conditions, condition)
		for _, memberID := range filter.MemberIDs {
			args = append(args, memberID)
		}
	}

	if filter.StartsAfter != nil {
		conditions = append(conditions, "e.end_time > ?")
		args = append(args, filter.StartsAfter.UTC().Format(time.RFC3339))
	}
	if filter.EndsBefore != nil {
		conditions = append(conditions, "e.start_time < ?")
		args = append(args, filter.EndsBefore.UTC().Format(time.RFC3339))
	}

	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY e.start_time ASC, e.id ASC"
	return baseQuery, args
}

type scanFunc func(dest ...any) error

func scanEvent(scan scanFunc) (persistence.Event, error) {
	var event persistence.Event
	var seriesID sql.NullString
	var completed int
	var startStr, endStr, createdStr, updatedStr string

	err := scan(
		&event.ID,
		&seriesID,
		&event.CreatorID,
		&event.Title,
		&event.Description,
		&event.Color,
		&completed,
		&startStr,
		&endStr,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.Event{}, err
	}

	if seriesID.Valid {
		event.SeriesID = &seriesID.String
	}
	event.Completed = completed != 0

	if event.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if event.End, err = time.Parse(time.RFC3339, endStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if event.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if event.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return event, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
