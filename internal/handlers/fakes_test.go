package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/notekeep/apiserver/internal/services"
	"github.com/notekeep/apiserver/internal/store"
	"github.com/notekeep/apiserver/types"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/crypto/bcrypt"
)

// memDB is an in-memory stand-in for the PostgreSQL repositories.
type memDB struct {
	mu       sync.Mutex
	users    map[int64]types.User
	profiles map[int64]types.Profile
	tokens   map[int64]string
	notes    map[int64]types.Note
	nextUser int64
	nextNote int64
	clock    time.Time
}

func newMemDB() *memDB {
	return &memDB{
		users:    make(map[int64]types.User),
		profiles: make(map[int64]types.Profile),
		tokens:   make(map[int64]string),
		notes:    make(map[int64]types.Note),
		clock:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

// tick advances the fake clock so successive writes get distinct timestamps.
func (m *memDB) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

type memUsers struct{ *memDB }

func (r memUsers) GetByID(_ context.Context, id int64) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r memUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r memUsers) CreateWithProfile(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return types.User{}, store.ErrConflict
		}
	}
	r.nextUser++
	user.ID = r.nextUser
	user.CreatedAt = r.tick()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user
	r.profiles[user.ID] = types.Profile{UserID: user.ID, UpdatedAt: user.CreatedAt}
	return user, nil
}

type memProfiles struct{ *memDB }

func (r memProfiles) GetByUserID(_ context.Context, userID int64) (types.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return types.Profile{}, store.ErrNotFound
	}
	p.User = r.users[userID]
	return p, nil
}

func (r memProfiles) Update(_ context.Context, profile types.Profile) (types.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[profile.UserID]; !ok {
		return types.Profile{}, store.ErrNotFound
	}
	profile.UpdatedAt = r.tick()
	r.profiles[profile.UserID] = types.Profile{UserID: profile.UserID, Bio: profile.Bio, UpdatedAt: profile.UpdatedAt}
	profile.User = r.users[profile.UserID]
	return profile, nil
}

type memTokens struct{ *memDB }

func (r memTokens) GetOrCreate(_ context.Context, userID int64, candidate string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.tokens[userID]; ok {
		return id, nil
	}
	r.tokens[userID] = candidate
	return candidate, nil
}

func (r memTokens) Get(_ context.Context, userID int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.tokens[userID]
	if !ok {
		return "", store.ErrNotFound
	}
	return id, nil
}

func (r memTokens) Delete(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, userID)
	return nil
}

type memNotes struct{ *memDB }

func (r memNotes) List(_ context.Context, userID int64, filter types.NoteFilter) ([]types.Note, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	search := strings.ToLower(filter.Search)
	var matched []types.Note
	for _, n := range r.notes {
		if n.UserID != userID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(n.Title), search) &&
			!strings.Contains(strings.ToLower(n.Content), search) {
			continue
		}
		day := n.UpdatedAt.UTC().Truncate(24 * time.Hour)
		if filter.Start != nil && day.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && day.After(*filter.End) {
			continue
		}
		matched = append(matched, n)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var ta, tb time.Time
		desc := strings.HasPrefix(filter.Ordering, "-")
		if strings.TrimPrefix(filter.Ordering, "-") == "created_at" {
			ta, tb = a.CreatedAt, b.CreatedAt
		} else {
			ta, tb = a.UpdatedAt, b.UpdatedAt
		}
		if !ta.Equal(tb) {
			if desc {
				return ta.After(tb)
			}
			return ta.Before(tb)
		}
		return a.ID < b.ID
	})

	total := len(matched)
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if filter.PageSize == 0 || end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r memNotes) ListAll(ctx context.Context, userID int64) ([]types.Note, error) {
	notes, _, err := r.List(ctx, userID, types.NoteFilter{Ordering: types.OrderCreatedAsc})
	return notes, err
}

func (r memNotes) Get(_ context.Context, userID, id int64) (types.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok || n.UserID != userID {
		return types.Note{}, store.ErrNotFound
	}
	return n, nil
}

func (r memNotes) Create(_ context.Context, note types.Note) (types.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextNote++
	note.ID = r.nextNote
	note.CreatedAt = r.tick()
	note.UpdatedAt = note.CreatedAt
	r.notes[note.ID] = note
	return note, nil
}

func (r memNotes) Update(_ context.Context, note types.Note) (types.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.notes[note.ID]
	if !ok || current.UserID != note.UserID {
		return types.Note{}, store.ErrNotFound
	}
	note.CreatedAt = current.CreatedAt
	note.UpdatedAt = r.tick()
	r.notes[note.ID] = note
	return note, nil
}

func (r memNotes) Delete(_ context.Context, userID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok || n.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.notes, id)
	return nil
}

// setNoteTimes backdates a note for date filter and ordering tests.
func (m *memDB) setNoteTimes(id int64, created, updated time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.notes[id]
	n.CreatedAt, n.UpdatedAt = created, updated
	m.notes[id] = n
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

type testAPI struct {
	server  *httptest.Server
	db      *memDB
	objects *memObjects
}

// newTestAPI serves the real route table over in-memory repositories.
func newTestAPI(t *testing.T, withExport bool) *testAPI {
	t.Helper()
	log, _ := test.NewNullLogger()
	mem := newMemDB()

	svc := Services{
		Users:    services.NewUserService(memUsers{mem}, nil, bcrypt.MinCost),
		Auth:     services.NewAuthService(memTokens{mem}, nil, "test-secret", time.Hour, log),
		Profiles: services.NewProfileService(memProfiles{mem}),
		Notes:    services.NewNoteService(memNotes{mem}, nil),
	}
	objects := &memObjects{objects: make(map[string][]byte)}
	if withExport {
		svc.Export = services.NewExportService(memNotes{mem}, objects, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, middleware.StripSlashes)
	Register(r, svc, log)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testAPI{server: srv, db: mem, objects: objects}
}

func (a *testAPI) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, a.server.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
