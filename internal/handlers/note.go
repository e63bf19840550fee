package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/notekeep/apiserver/internal/services"
	"github.com/notekeep/apiserver/types"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// NoteHandler provides HTTP handlers for the caller's notes.
type NoteHandler struct {
	noteService   *services.NoteService
	exportService *services.ExportService
	log           logrus.FieldLogger
}

// NoteRouter registers note routes. The router must already require
// authentication. The export route exists only when exportService is set.
func NoteRouter(r chi.Router, noteService *services.NoteService, exportService *services.ExportService, log logrus.FieldLogger) {
	handler := &NoteHandler{noteService: noteService, exportService: exportService, log: log}

	r.Get("/", handler.ListNotes)
	r.Post("/", handler.CreateNote)
	if exportService != nil {
		r.Post("/export", handler.ExportNotes)
	}
	r.Route("/{noteID}", func(r chi.Router) {
		r.Get("/", handler.GetNote)
		r.Put("/", handler.ReplaceNote)
		r.Patch("/", handler.PatchNote)
		r.Delete("/", handler.DeleteNote)
	})
}

// NoteRequest is the body of note writes. Pointers distinguish absent
// fields from empty ones; id, user and timestamps are never read.
type NoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// NoteListResponse is one page of notes with links to its neighbours.
type NoteListResponse struct {
	Count    int                  `json:"count"`
	Next     *string              `json:"next"`
	Previous *string              `json:"previous"`
	Results  []types.NoteResponse `json:"results"`
}

func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	filter, verr := parseNoteFilter(r.URL.Query())
	if !verr.Empty() {
		writeJSON(w, http.StatusBadRequest, verr.Fields)
		return
	}

	userID, _ := userIDFromContext(r.Context())
	page, err := h.noteService.List(r.Context(), userID, filter)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	resp := NoteListResponse{
		Count:   page.Count,
		Results: types.NewNoteResponses(page.Notes),
	}
	if page.HasNext() {
		resp.Next = pageURL(r, page.Page+1)
	}
	if page.HasPrevious() {
		resp.Previous = pageURL(r, page.Page-1)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Title == nil {
		writeJSON(w, http.StatusBadRequest, services.NewValidationError("title", "This field is required.").Fields)
		return
	}
	content := ""
	if req.Content != nil {
		content = *req.Content
	}

	userID, _ := userIDFromContext(r.Context())
	note, err := h.noteService.Create(r.Context(), userID, *req.Title, content)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.NewNoteResponse(note))
}

func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "noteID")
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}

	userID, _ := userIDFromContext(r.Context())
	note, err := h.noteService.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewNoteResponse(note))
}

// ReplaceNote handles PUT: title is required, an omitted content is kept.
func (h *NoteHandler) ReplaceNote(w http.ResponseWriter, r *http.Request) {
	h.updateNote(w, r, true)
}

// PatchNote handles PATCH: every field is optional.
func (h *NoteHandler) PatchNote(w http.ResponseWriter, r *http.Request) {
	h.updateNote(w, r, false)
}

func (h *NoteHandler) updateNote(w http.ResponseWriter, r *http.Request, requireTitle bool) {
	id, ok := pathID(r, "noteID")
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}

	var req NoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if requireTitle && req.Title == nil {
		writeJSON(w, http.StatusBadRequest, services.NewValidationError("title", "This field is required.").Fields)
		return
	}

	userID, _ := userIDFromContext(r.Context())
	note, err := h.noteService.Update(r.Context(), userID, id, types.NotePatch{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewNoteResponse(note))
}

func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "noteID")
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}

	userID, _ := userIDFromContext(r.Context())
	if err := h.noteService.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportNotes writes every note of the caller to object storage.
func (h *NoteHandler) ExportNotes(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())
	result, err := h.exportService.Export(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// parseNoteFilter reads listing parameters. Range checks on page, page_size
// and ordering belong to the service; only syntax is checked here.
func parseNoteFilter(q url.Values) (types.NoteFilter, *services.ValidationError) {
	filter := types.NoteFilter{
		Search:   strings.TrimSpace(q.Get("search")),
		Ordering: strings.TrimSpace(q.Get("ordering")),
		Page:     1,
		PageSize: types.DefaultNotePageSize,
	}
	verr := &services.ValidationError{}

	for name, dst := range map[string]*int{"page": &filter.Page, "page_size": &filter.PageSize} {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			verr.Add(name, "A valid integer is required.")
			continue
		}
		*dst = n
	}

	for name, dst := range map[string]**time.Time{"start": &filter.Start, "end": &filter.End} {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		day, err := time.Parse(dateLayout, raw)
		if err != nil {
			verr.Add(name, "Enter a valid date.")
			continue
		}
		*dst = &day
	}

	return filter, verr
}

// pageURL is the absolute URL of the current request with page replaced.
// Page 1 is addressed by omitting the parameter.
func pageURL(r *http.Request, page int) *string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	q := r.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	s := u.String()
	return &s
}
