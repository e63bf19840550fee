package types

import "time"

const (
	// NoteTitleMaxLength bounds the title column.
	NoteTitleMaxLength = 255

	DefaultNotePageSize = 10
	MaxNotePageSize     = 50
)

// Ordering values accepted when listing notes. A leading "-" means descending.
const (
	OrderUpdatedAsc  = "updated_at"
	OrderUpdatedDesc = "-updated_at"
	OrderCreatedAsc  = "created_at"
	OrderCreatedDesc = "-created_at"

	DefaultNoteOrdering = OrderUpdatedDesc
)

// Note is a document owned by a single user.
type Note struct {
	// ID is the unique identifier of the note.
	ID int64 `json:"id" db:"id"`

	// UserID is the owner. Notes are only ever visible to their owner.
	UserID int64 `json:"user" db:"user_id"`

	// Title is required and at most NoteTitleMaxLength characters.
	Title string `json:"title" db:"title"`

	// Content is optional free text.
	Content string `json:"content" db:"content"`

	// CreatedAt is set once when the note is created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is refreshed on every mutation.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NoteResponse is the wire shape of a note. User and both timestamps are
// server-assigned.
type NoteResponse struct {
	ID        int64     `json:"id"`
	User      int64     `json:"user"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewNoteResponse(n Note) NoteResponse {
	return NoteResponse{
		ID:        n.ID,
		User:      n.UserID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func NewNoteResponses(notes []Note) []NoteResponse {
	out := make([]NoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, NewNoteResponse(n))
	}
	return out
}

// NotePatch carries the fields a client asked to change. Nil means "leave as is".
type NotePatch struct {
	Title   *string
	Content *string
}

// Apply returns a copy of n with the patch applied.
func (p NotePatch) Apply(n Note) Note {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	return n
}

// NoteFilter holds the listing parameters for a user's notes.
type NoteFilter struct {
	// Search matches title or content, case-insensitively.
	Search string

	// Start and End bound the UTC calendar day of UpdatedAt, inclusive.
	Start *time.Time
	End   *time.Time

	// Ordering is one of the Order* constants. Empty means DefaultNoteOrdering.
	Ordering string

	Page     int
	PageSize int
}

// Offset returns the number of rows to skip for the filter's page.
func (f NoteFilter) Offset() int {
	if f.Page < 1 || f.PageSize < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// NotePage is one page of a filtered note listing.
type NotePage struct {
	Notes    []Note
	Count    int
	Page     int
	PageSize int
}

// HasNext reports whether a page follows this one.
func (p NotePage) HasNext() bool {
	return p.Page*p.PageSize < p.Count
}

// HasPrevious reports whether a page precedes this one.
func (p NotePage) HasPrevious() bool {
	return p.Page > 1
}

// PageCount is the number of pages for Count items; an empty listing still has one page.
func PageCount(count, pageSize int) int {
	if pageSize < 1 || count <= 0 {
		return 1
	}
	return (count + pageSize - 1) / pageSize
}

// ValidNoteOrderings lists the accepted ordering values.
var ValidNoteOrderings = []string{OrderUpdatedAsc, OrderUpdatedDesc, OrderCreatedAsc, OrderCreatedDesc}

// IsValidNoteOrdering reports whether s is an accepted ordering value.
func IsValidNoteOrdering(s string) bool {
	for _, o := range ValidNoteOrderings {
		if o == s {
			return true
		}
	}
	return false
}

// NoteExport describes a stored snapshot of a user's notes.
type NoteExport struct {
	ObjectKey string `json:"object_key"`
	Count     int    `json:"count"`
}
