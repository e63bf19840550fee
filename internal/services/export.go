package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/notekeep/apiserver/types"
)

const exportContentType = "application/json"

// ObjectStore is the subset of object storage used for exports. *storage.Storage satisfies it.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// ExportService writes snapshots of a user's notes to object storage.
type ExportService struct {
	notes  NoteRepository
	store  ObjectStore
	events *Events
	now    func() time.Time
}

func NewExportService(notes NoteRepository, store ObjectStore, events *Events) *ExportService {
	return &ExportService{
		notes:  notes,
		store:  store,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type exportDocument struct {
	User       int64                `json:"user"`
	ExportedAt time.Time            `json:"exported_at"`
	Notes      []types.NoteResponse `json:"notes"`
}

// Export stores every note of the user as one JSON document and returns where it went.
func (s *ExportService) Export(ctx context.Context, userID int64) (types.NoteExport, error) {
	notes, err := s.notes.ListAll(ctx, userID)
	if err != nil {
		return types.NoteExport{}, err
	}

	exportedAt := s.now()
	data, err := json.Marshal(exportDocument{
		User:       userID,
		ExportedAt: exportedAt,
		Notes:      types.NewNoteResponses(notes),
	})
	if err != nil {
		return types.NoteExport{}, err
	}

	key := fmt.Sprintf("exports/%d/%s.json", userID, exportedAt.Format("20060102T150405.000000000Z"))
	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), exportContentType); err != nil {
		return types.NoteExport{}, fmt.Errorf("store export: %w", err)
	}

	result := types.NoteExport{ObjectKey: key, Count: len(notes)}
	s.events.Emit(ctx, types.EventNotesExported, userID, 0, result)
	return result, nil
}
