package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Repositories
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User // by username
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[u.Username]; exists {
		return domain.ErrDuplicateUser
	}
	r.users[u.Username] = cloneUser(u)
	return nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) List(_ context.Context, excludeID string) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.users {
		if u.ID != excludeID {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

type stubSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session // by digest
	deleted  int
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *stubSessionRepo) Replace(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for d, existing := range r.sessions {
		if existing.UserID == s.UserID {
			delete(r.sessions, d)
		}
	}
	clone := *s
	r.sessions[s.TokenDigest] = &clone
	return nil
}

func (r *stubSessionRepo) FindByDigest(_ context.Context, digest string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[digest]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *stubSessionRepo) Delete(_ context.Context, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[digest]; ok {
		r.deleted++
	}
	delete(r.sessions, digest)
	return nil
}

func (r *stubSessionRepo) countFor(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

type stubMessageRepo struct {
	mu       sync.Mutex
	nextID   int64
	messages map[int64]*domain.Message
	resolves int
}

func newStubMessageRepo() *stubMessageRepo {
	return &stubMessageRepo{messages: make(map[int64]*domain.Message)}
}

func cloneMessage(m *domain.Message) *domain.Message {
	clone := *m
	return &clone
}

func (r *stubMessageRepo) Insert(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	r.messages[m.ID] = cloneMessage(m)
	return nil
}

func (r *stubMessageRepo) FindByID(_ context.Context, id int64) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	return cloneMessage(m), nil
}

func (r *stubMessageRepo) Resolve(_ context.Context, id int64, out domain.Outcome, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return domain.ErrMessageNotFound
	}
	if m.Status != domain.StatusPending {
		return domain.ErrAlreadyResolved
	}
	r.resolves++
	m.Status = out.Status
	if out.Status == domain.StatusDelivered {
		reply := out.Reply
		m.ReplyBody = &reply
	}
	m.ResolvedAt = &at
	return nil
}

func (r *stubMessageRepo) ListForRecipient(_ context.Context, recipientID string, since int64, limit int) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	for _, m := range r.messages {
		if m.RecipientID == recipientID && m.ID > since {
			out = append(out, cloneMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubMessageRepo) MarkConsumed(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return domain.ErrMessageNotFound
	}
	if !m.Consumed {
		m.Consumed = true
		m.ConsumedAt = &at
	}
	return nil
}

func (r *stubMessageRepo) ListPending(_ context.Context) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	for _, m := range r.messages {
		if m.Status == domain.StatusPending {
			out = append(out, cloneMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubMessageRepo) ListConversation(_ context.Context, a, b string, limit, offset int) ([]*domain.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*domain.Message
	for _, m := range r.messages {
		if (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a) {
			all = append(all, cloneMessage(m))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

type stubActivityRepo struct {
	mu     sync.Mutex
	err    error
	events []*domain.ActivityEvent
}

func (r *stubActivityRepo) Insert(_ context.Context, e *domain.ActivityEvent) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

// plainHasher keeps tests fast; it is not a real hash.
type plainHasher struct {
	mu    sync.Mutex
	n     int
	calls int
}

func (h *plainHasher) Hash(password string) (string, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.n++
	salt := fmt.Sprintf("salt%d", h.n)
	return "h:" + salt + ":" + password, salt, nil
}

func (h *plainHasher) Verify(password, hash, salt string) bool {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	return hash == "h:"+salt+":"+password
}

type seqTokens struct {
	mu sync.Mutex
	n  int
}

func (t *seqTokens) NewToken() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
	return fmt.Sprintf("token-%d", t.n), nil
}

func (t *seqTokens) Digest(token string) string { return "d:" + token }

type recordedActivity struct {
	Kind   domain.ActivityKind
	UserID string
	Detail string
}

type stubRecorder struct {
	mu     sync.Mutex
	events []recordedActivity
}

func (r *stubRecorder) Record(_ context.Context, kind domain.ActivityKind, userID, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedActivity{Kind: kind, UserID: userID, Detail: detail})
}

func (r *stubRecorder) kinds() []domain.ActivityKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ActivityKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *stubRecorder) count(kind domain.ActivityKind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

type stubEnqueuer struct {
	mu  sync.Mutex
	err error
	ids []int64
}

func (q *stubEnqueuer) Enqueue(_ context.Context, id int64, _ string) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
	return nil
}

type stubLimiter struct {
	blocked  bool
	failures map[string]int
	resets   int
}

func (l *stubLimiter) Allow(_ context.Context, username string) (bool, error) {
	return !l.blocked, nil
}

func (l *stubLimiter) RecordFailure(_ context.Context, username string) error {
	if l.failures == nil {
		l.failures = make(map[string]int)
	}
	l.failures[username]++
	return nil
}

func (l *stubLimiter) Reset(_ context.Context, username string) error {
	l.resets++
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCredentialStore() (*CredentialStore, *stubUserRepo, *plainHasher) {
	users := newStubUserRepo()
	hasher := &plainHasher{}
	store, err := NewCredentialStore(users, hasher)
	if err != nil {
		panic(err)
	}
	return store, users, hasher
}
