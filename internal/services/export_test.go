package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/notekeep/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportServiceExport(t *testing.T) {
	notes := newFakeNoteRepo()
	objects := &fakeObjectStore{objects: make(map[string][]byte)}
	pub := &fakePublisher{}
	logger, _ := newTestLogger()
	svc := NewExportService(notes, objects, NewEvents(pub, "notes.events", logger))
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC) }
	ctx := context.Background()

	_, err := notes.Create(ctx, types.Note{UserID: 9, Title: "a"})
	require.NoError(t, err)
	_, err = notes.Create(ctx, types.Note{UserID: 9, Title: "b"})
	require.NoError(t, err)
	_, err = notes.Create(ctx, types.Note{UserID: 10, Title: "not mine"})
	require.NoError(t, err)

	result, err := svc.Export(ctx, 9)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Count)
	assert.True(t, strings.HasPrefix(result.ObjectKey, "exports/9/20240601T123000"))

	var doc struct {
		User  int64                `json:"user"`
		Notes []types.NoteResponse `json:"notes"`
	}
	require.NoError(t, json.Unmarshal(objects.objects[result.ObjectKey], &doc))
	assert.Equal(t, int64(9), doc.User)
	assert.Len(t, doc.Notes, 2)
	for _, n := range doc.Notes {
		assert.Equal(t, int64(9), n.User)
	}
	assert.Equal(t, []string{types.EventNotesExported}, pub.kinds())
}

func TestExportServiceStorageFailure(t *testing.T) {
	objects := &fakeObjectStore{objects: make(map[string][]byte), err: errors.New("bucket gone")}
	svc := NewExportService(newFakeNoteRepo(), objects, nil)

	_, err := svc.Export(context.Background(), 1)
	assert.ErrorContains(t, err, "bucket gone")
}
