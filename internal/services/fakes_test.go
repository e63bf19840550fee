package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/notekeep/apiserver/internal/store"
	"github.com/notekeep/apiserver/types"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func newTestLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return logger, hook
}

type fakeUserRepo struct {
	users     map[string]types.User
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]types.User)}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (types.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	u, ok := r.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) CreateWithProfile(_ context.Context, user types.User) (types.User, error) {
	if r.createErr != nil {
		return types.User{}, r.createErr
	}
	user.ID = int64(len(r.users) + 1)
	r.users[user.Username] = user
	return user, nil
}

type fakeTokenRepo struct {
	tokens   map[int64]string
	gets     int
	onDelete func(userID int64)
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[int64]string)}
}

func (r *fakeTokenRepo) GetOrCreate(_ context.Context, userID int64, candidate string) (string, error) {
	if id, ok := r.tokens[userID]; ok {
		return id, nil
	}
	r.tokens[userID] = candidate
	return candidate, nil
}

func (r *fakeTokenRepo) Get(_ context.Context, userID int64) (string, error) {
	r.gets++
	id, ok := r.tokens[userID]
	if !ok {
		return "", store.ErrNotFound
	}
	return id, nil
}

func (r *fakeTokenRepo) Delete(_ context.Context, userID int64) error {
	if r.onDelete != nil {
		r.onDelete(userID)
	}
	delete(r.tokens, userID)
	return nil
}

type fakeTokenCache struct {
	entries   map[int64]string
	err       error
	deleteErr error
	ttls      map[int64]time.Duration
}

func (c *fakeTokenCache) Get(_ context.Context, userID int64) (string, bool, error) {
	if c.err != nil {
		return "", false, c.err
	}
	id, ok := c.entries[userID]
	return id, ok, nil
}

func (c *fakeTokenCache) Set(_ context.Context, userID int64, tokenID string, ttl time.Duration) error {
	if c.err != nil {
		return c.err
	}
	c.entries[userID] = tokenID
	if c.ttls != nil {
		c.ttls[userID] = ttl
	}
	return nil
}

func (c *fakeTokenCache) Delete(_ context.Context, userID int64) error {
	if c.deleteErr != nil {
		return c.deleteErr
	}
	delete(c.entries, userID)
	return nil
}

type fakeNoteRepo struct {
	notes     map[int64]types.Note
	nextID    int64
	total     int
	lastQuery types.NoteFilter
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[int64]types.Note)}
}

func (r *fakeNoteRepo) List(_ context.Context, userID int64, filter types.NoteFilter) ([]types.Note, int, error) {
	r.lastQuery = filter
	var out []types.Note
	for _, n := range r.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	total := len(out)
	if r.total > 0 {
		total = r.total
	}
	return out, total, nil
}

func (r *fakeNoteRepo) ListAll(ctx context.Context, userID int64) ([]types.Note, error) {
	notes, _, err := r.List(ctx, userID, types.NoteFilter{})
	return notes, err
}

func (r *fakeNoteRepo) Get(_ context.Context, userID, id int64) (types.Note, error) {
	n, ok := r.notes[id]
	if !ok || n.UserID != userID {
		return types.Note{}, store.ErrNotFound
	}
	return n, nil
}

func (r *fakeNoteRepo) Create(_ context.Context, note types.Note) (types.Note, error) {
	r.nextID++
	note.ID = r.nextID
	note.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	note.UpdatedAt = note.CreatedAt
	r.notes[note.ID] = note
	return note, nil
}

func (r *fakeNoteRepo) Update(_ context.Context, note types.Note) (types.Note, error) {
	current, ok := r.notes[note.ID]
	if !ok || current.UserID != note.UserID {
		return types.Note{}, store.ErrNotFound
	}
	note.CreatedAt = current.CreatedAt
	note.UpdatedAt = current.UpdatedAt.Add(time.Minute)
	r.notes[note.ID] = note
	return note, nil
}

func (r *fakeNoteRepo) Delete(_ context.Context, userID, id int64) error {
	n, ok := r.notes[id]
	if !ok || n.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.notes, id)
	return nil
}

type published struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, published{channel: channel, data: data, attrs: attrs})
	return "msg-1", nil
}

func (p *fakePublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		kinds = append(kinds, m.attrs["kind"])
	}
	return kinds
}

type fakeObjectStore struct {
	objects map[string][]byte
	err     error
}

func (s *fakeObjectStore) Put(_ context.Context, key string, r io.Reader, size int64, _ string) error {
	if s.err != nil {
		return s.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	s.objects[key] = data
	return nil
}
