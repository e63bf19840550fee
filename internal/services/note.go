package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/notekeep/apiserver/types"
)

// NoteRepository defines owner-scoped persistence operations for notes.
type NoteRepository interface {
	List(ctx context.Context, userID int64, filter types.NoteFilter) ([]types.Note, int, error)
	ListAll(ctx context.Context, userID int64) ([]types.Note, error)
	Get(ctx context.Context, userID, id int64) (types.Note, error)
	Create(ctx context.Context, note types.Note) (types.Note, error)
	Update(ctx context.Context, note types.Note) (types.Note, error)
	Delete(ctx context.Context, userID, id int64) error
}

// NoteService encapsulates note use-cases. Every method takes the caller's
// user id; there is no way to reach another user's notes through it.
type NoteService struct {
	repo   NoteRepository
	events *Events
}

func NewNoteService(repo NoteRepository, events *Events) *NoteService {
	return &NoteService{repo: repo, events: events}
}

// List returns one page of the user's notes. Pagination values outside their
// valid range are rejected rather than clamped.
func (s *NoteService) List(ctx context.Context, userID int64, filter types.NoteFilter) (types.NotePage, error) {
	if filter.Ordering == "" {
		filter.Ordering = types.DefaultNoteOrdering
	}
	if verr := validateNoteFilter(filter); !verr.Empty() {
		return types.NotePage{}, verr
	}

	notes, total, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return types.NotePage{}, err
	}

	if pages := types.PageCount(total, filter.PageSize); filter.Page > pages {
		return types.NotePage{}, NewValidationError("page",
			fmt.Sprintf("Invalid page %d: must be between 1 and %d.", filter.Page, pages))
	}

	return types.NotePage{
		Notes:    notes,
		Count:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

func (s *NoteService) Get(ctx context.Context, userID, id int64) (types.Note, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *NoteService) Create(ctx context.Context, userID int64, title, content string) (types.Note, error) {
	note := types.Note{
		UserID:  userID,
		Title:   strings.TrimSpace(title),
		Content: content,
	}
	if verr := validateNote(note); !verr.Empty() {
		return types.Note{}, verr
	}

	created, err := s.repo.Create(ctx, note)
	if err != nil {
		return types.Note{}, err
	}
	s.events.Emit(ctx, types.EventNoteCreated, userID, created.ID, types.NewNoteResponse(created))
	return created, nil
}

// Update applies patch to the user's note and refreshes its updated_at.
func (s *NoteService) Update(ctx context.Context, userID, id int64, patch types.NotePatch) (types.Note, error) {
	current, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return types.Note{}, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	next := patch.Apply(current)
	if verr := validateNote(next); !verr.Empty() {
		return types.Note{}, verr
	}

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return types.Note{}, err
	}
	s.events.Emit(ctx, types.EventNoteUpdated, userID, updated.ID, types.NewNoteResponse(updated))
	return updated, nil
}

func (s *NoteService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.events.Emit(ctx, types.EventNoteDeleted, userID, id, nil)
	return nil
}

func validateNote(note types.Note) *ValidationError {
	verr := &ValidationError{}
	switch {
	case note.Title == "":
		verr.Add("title", "This field may not be blank.")
	case utf8.RuneCountInString(note.Title) > types.NoteTitleMaxLength:
		verr.Add("title", fmt.Sprintf("Ensure this field has no more than %d characters.", types.NoteTitleMaxLength))
	case hasNullCharacter(note.Title):
		verr.Add("title", nullCharacterMessage)
	}
	if hasNullCharacter(note.Content) {
		verr.Add("content", nullCharacterMessage)
	}
	return verr
}

func validateNoteFilter(filter types.NoteFilter) *ValidationError {
	verr := &ValidationError{}
	if filter.PageSize < 1 || filter.PageSize > types.MaxNotePageSize {
		verr.Add("page_size", fmt.Sprintf("Invalid page size %d: must be between 1 and %d.", filter.PageSize, types.MaxNotePageSize))
	}
	if filter.Page < 1 {
		verr.Add("page", fmt.Sprintf("Invalid page %d: must be 1 or greater.", filter.Page))
	}
	if !utf8.ValidString(filter.Search) || hasNullCharacter(filter.Search) {
		verr.Add("search", "Enter a valid search term.")
	}
	if !types.IsValidNoteOrdering(filter.Ordering) {
		verr.Add("ordering", fmt.Sprintf("Invalid ordering %q: must be one of %s.", filter.Ordering, strings.Join(types.ValidNoteOrderings, ", ")))
	}
	return verr
}
