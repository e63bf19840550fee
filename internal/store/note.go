package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/notekeep/apiserver/types"
)

// NoteRepository handles persistence for notes. Every statement is scoped to
// the owning user, so a note belonging to someone else behaves as missing.
type NoteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

const noteColumns = `id, user_id, title, content, created_at, updated_at`

func (r *NoteRepository) List(ctx context.Context, userID int64, filter types.NoteFilter) ([]types.Note, int, error) {
	q, err := buildNoteQuery(userID, filter)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx, q.countSQL(), q.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}

	limit := filter.PageSize
	if limit < 1 {
		limit = types.DefaultNotePageSize
	}
	listQuery, args := q.listSQL(limit, filter.Offset())
	notes, err := r.query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	return notes, total, nil
}

// ListAll returns every note of the user in default order.
func (r *NoteRepository) ListAll(ctx context.Context, userID int64) ([]types.Note, error) {
	q, err := buildNoteQuery(userID, types.NoteFilter{})
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM notes WHERE %s ORDER BY %s", noteColumns, q.where, q.orderBy)
	return r.query(ctx, query, q.args...)
}

func (r *NoteRepository) query(ctx context.Context, query string, args ...any) ([]types.Note, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]types.Note, 0)
	for rows.Next() {
		var note types.Note
		if err := rows.Scan(
			&note.ID,
			&note.UserID,
			&note.Title,
			&note.Content,
			&note.CreatedAt,
			&note.UpdatedAt,
		); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *NoteRepository) Get(ctx context.Context, userID, id int64) (types.Note, error) {
	const query = `
		SELECT id, user_id, title, content, created_at, updated_at
		FROM notes
		WHERE id = $1 AND user_id = $2`
	var note types.Note
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&note.ID,
		&note.UserID,
		&note.Title,
		&note.Content,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Note{}, ErrNotFound
		}
		return types.Note{}, err
	}
	return note, nil
}

func (r *NoteRepository) Create(ctx context.Context, note types.Note) (types.Note, error) {
	ts := now()
	note.CreatedAt = ts
	note.UpdatedAt = ts

	const query = `
		INSERT INTO notes (user_id, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		note.UserID,
		note.Title,
		note.Content,
		note.CreatedAt,
		note.UpdatedAt,
	).Scan(&note.ID); err != nil {
		return types.Note{}, err
	}
	return note, nil
}

// Update writes title and content and refreshes updated_at. created_at is
// never written and is read back from the row.
func (r *NoteRepository) Update(ctx context.Context, note types.Note) (types.Note, error) {
	note.UpdatedAt = now()

	const query = `
		UPDATE notes
		SET title = $1,
			content = $2,
			updated_at = $3
		WHERE id = $4 AND user_id = $5
		RETURNING created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		note.Title,
		note.Content,
		note.UpdatedAt,
		note.ID,
		note.UserID,
	).Scan(&note.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Note{}, ErrNotFound
		}
		return types.Note{}, err
	}
	return note, nil
}

func (r *NoteRepository) Delete(ctx context.Context, userID, id int64) error {
	const query = `DELETE FROM notes WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
