package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/notekeep/apiserver/types"
)

const dateLayout = "2006-01-02"

// Ties always fall back to id so listings are deterministic.
var noteOrderClauses = map[string]string{
	types.OrderUpdatedAsc:  "updated_at ASC, id ASC",
	types.OrderUpdatedDesc: "updated_at DESC, id ASC",
	types.OrderCreatedAsc:  "created_at ASC, id ASC",
	types.OrderCreatedDesc: "created_at DESC, id ASC",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// noteQuery is the owner-scoped predicate and ordering for a note listing.
type noteQuery struct {
	where   string
	args    []any
	orderBy string
}

// buildNoteQuery composes the listing predicate. The owner condition is always
// the first clause and cannot be removed by any filter value.
func buildNoteQuery(userID int64, filter types.NoteFilter) (noteQuery, error) {
	ordering := filter.Ordering
	if ordering == "" {
		ordering = types.DefaultNoteOrdering
	}
	orderBy, ok := noteOrderClauses[ordering]
	if !ok {
		return noteQuery{}, fmt.Errorf("unsupported ordering %q", ordering)
	}

	clauses := []string{"user_id = $1"}
	args := []any{userID}
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		p := next("%" + likeEscaper.Replace(search) + "%")
		clauses = append(clauses, fmt.Sprintf("(title ILIKE %s OR content ILIKE %s)", p, p))
	}
	if filter.Start != nil {
		clauses = append(clauses, fmt.Sprintf("(updated_at AT TIME ZONE 'UTC')::date >= %s::date", next(filter.Start.Format(dateLayout))))
	}
	if filter.End != nil {
		clauses = append(clauses, fmt.Sprintf("(updated_at AT TIME ZONE 'UTC')::date <= %s::date", next(filter.End.Format(dateLayout))))
	}

	return noteQuery{
		where:   strings.Join(clauses, " AND "),
		args:    args,
		orderBy: orderBy,
	}, nil
}

func (q noteQuery) countSQL() string {
	return "SELECT COUNT(1) FROM notes WHERE " + q.where
}

// listSQL returns the page query and its arguments.
func (q noteQuery) listSQL(limit, offset int) (string, []any) {
	args := append(append([]any{}, q.args...), limit, offset)
	n := len(q.args)
	query := fmt.Sprintf(
		"SELECT id, user_id, title, content, created_at, updated_at FROM notes WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		q.where, q.orderBy, n+1, n+2,
	)
	return query, args
}
