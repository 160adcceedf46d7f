package services

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/cryptox"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/contacts"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// --- in-memory store enforcing the same constraints as the schema ---

type memStore struct {
	mu       sync.Mutex
	users    map[int64]*models.User
	contacts map[int64]*models.Contact
	lastUID  int64
	lastCID  int64

	// injected failures
	usersErr error
	touchErr error
	contErr  error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*models.User{},
		contacts: map[int64]*models.Contact{},
	}
}

type fakeRepoManager struct {
	s *memStore
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository            { return &memUsers{s: m.s} }
func (m *fakeRepoManager) Contacts(dbx.DBTX) contacts.Repository      { return &memContacts{s: m.s} }

type memUsers struct{ s *memStore }

func (r *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.usersErr != nil {
		return nil, r.s.usersErr
	}
	for _, existing := range r.s.users {
		if existing.UserName == u.UserName {
			return nil, common.ErrDuplicateUsername
		}
	}
	r.s.lastUID++
	cp := *u
	cp.ID = r.s.lastUID
	r.s.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memUsers) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.usersErr != nil {
		return nil, r.s.usersErr
	}
	for _, u := range r.s.users {
		if u.UserName == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.usersErr != nil {
		return nil, r.s.usersErr
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *memUsers) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.touchErr != nil {
		return r.s.touchErr
	}
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.LastLogin = &at
	return nil
}

type memContacts struct{ s *memStore }

func (r *memContacts) Create(_ context.Context, c *models.Contact) (*models.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.contErr != nil {
		return nil, r.s.contErr
	}
	if _, ok := r.s.users[c.OwnerID]; !ok {
		return nil, common.ErrorUnauthorized
	}
	if r.phoneTaken(c.OwnerID, c.Telefone, 0) {
		return nil, common.ErrDuplicatePhone
	}
	r.s.lastCID++
	cp := *c
	cp.ID = r.s.lastCID
	r.s.contacts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memContacts) phoneTaken(ownerID int64, tel string, exceptID int64) bool {
	for _, c := range r.s.contacts {
		if c.OwnerID == ownerID && c.Telefone == tel && c.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *memContacts) collect(keep func(*models.Contact) bool) ([]*models.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.contErr != nil {
		return nil, r.s.contErr
	}
	out := make([]*models.Contact, 0)
	for _, c := range r.s.contacts {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Nome), strings.ToLower(out[j].Nome)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memContacts) ListByOwner(_ context.Context, ownerID int64) ([]*models.Contact, error) {
	return r.collect(func(c *models.Contact) bool { return c.OwnerID == ownerID })
}

func (r *memContacts) Search(_ context.Context, ownerID int64, term string) ([]*models.Contact, error) {
	lt := strings.ToLower(term)
	return r.collect(func(c *models.Contact) bool {
		return c.OwnerID == ownerID &&
			(strings.Contains(strings.ToLower(c.Nome), lt) || strings.Contains(c.Telefone, term))
	})
}

func (r *memContacts) GetByID(_ context.Context, ownerID, id int64) (*models.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memContacts) update(target *models.Contact, in *models.Contact) (*models.Contact, error) {
	if r.phoneTaken(target.OwnerID, in.Telefone, target.ID) {
		return nil, common.ErrDuplicatePhone
	}
	target.Nome, target.Telefone, target.Email, target.UpdatedAt = in.Nome, in.Telefone, in.Email, in.UpdatedAt
	cp := *target
	return &cp, nil
}

func (r *memContacts) UpdateByPhone(_ context.Context, currentPhone string, in *models.Contact) (*models.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.contacts {
		if c.OwnerID == in.OwnerID && c.Telefone == currentPhone {
			return r.update(c, in)
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memContacts) UpdateByID(_ context.Context, in *models.Contact) (*models.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[in.ID]
	if !ok || c.OwnerID != in.OwnerID {
		return nil, common.ErrorNotFound
	}
	return r.update(c, in)
}

func (r *memContacts) DeleteByPhone(_ context.Context, ownerID int64, tel string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, c := range r.s.contacts {
		if c.OwnerID == ownerID && c.Telefone == tel {
			delete(r.s.contacts, id)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r *memContacts) DeleteByID(_ context.Context, ownerID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	delete(r.s.contacts, id)
	return nil
}

// --- wiring helpers ---

type fixture struct {
	store *memStore
	pool  *dbx.Pool
	logs  *bytes.Buffer
	log   logging.Logger
	users *UserService
	conts *ContactService
	clock *fakeClock
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// newSQLitePool backs a Pool with an in-memory sqlite database. The fakes
// ignore the connection; the pool still enforces checkout limits and runs
// real BEGIN/COMMIT/ROLLBACK.
func newSQLitePool(t *testing.T, cfg dbx.PoolConfig) *dbx.Pool {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	p := dbx.NewPool(db, cfg)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithPool(t, newSQLitePool(t, dbx.PoolConfig{MaxConns: 4, AcquireTimeout: 2 * time.Second}))
}

func newFixtureWithPool(t *testing.T, pool *dbx.Pool) *fixture {
	t.Helper()

	hasher, err := cryptox.NewPasswordHasher(4)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	log := logging.NewJSONLogger(&syncWriter{w: buf}, slog.LevelDebug)

	store := newMemStore()
	rm := &fakeRepoManager{s: store}
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	us := NewUserService(pool, rm, hasher, log)
	us.now = clock.Now
	cs := NewContactService(pool, rm, log)
	cs.now = clock.Now

	return &fixture{store: store, pool: pool, logs: buf, log: log, users: us, conts: cs, clock: clock}
}

type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func strPtr(s string) *string { return &s }
