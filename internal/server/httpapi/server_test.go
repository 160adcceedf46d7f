package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/auth"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

type fakeUsers struct {
	registerErr error
	loginErr    error
	changeErr   error
	identityErr error

	gotOld, gotNew string
	gotIdentity    *models.Identity
}

func (f *fakeUsers) Register(_ context.Context, username, _ string, email *string) (*models.Identity, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.Identity{ID: 1, UserName: username, Email: email}, nil
}

func (f *fakeUsers) Login(_ context.Context, username, _ string) (*models.Identity, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.Identity{ID: 1, UserName: username}, nil
}

func (f *fakeUsers) ChangePassword(_ context.Context, id *models.Identity, oldPassword, newPassword string) error {
	f.gotIdentity, f.gotOld, f.gotNew = id, oldPassword, newPassword
	return f.changeErr
}

func (f *fakeUsers) Identity(_ context.Context, id int64) (*models.Identity, error) {
	if f.identityErr != nil {
		return nil, f.identityErr
	}
	return &models.Identity{ID: id, UserName: "alice"}, nil
}

type fakeContacts struct {
	err      error
	gotOwner int64
	gotID    int64
	gotTerm  string
	items    []*models.Contact
}

func (f *fakeContacts) Add(_ context.Context, ownerID int64, nome, telefone string, email *string) (*models.Contact, error) {
	f.gotOwner = ownerID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Contact{ID: 7, OwnerID: ownerID, Nome: nome, Telefone: telefone, Email: email}, nil
}

func (f *fakeContacts) List(_ context.Context, ownerID int64) ([]*models.Contact, error) {
	f.gotOwner = ownerID
	return f.items, f.err
}

func (f *fakeContacts) Search(_ context.Context, ownerID int64, term string) ([]*models.Contact, error) {
	f.gotOwner, f.gotTerm = ownerID, term
	return f.items, f.err
}

func (f *fakeContacts) Get(_ context.Context, ownerID, id int64) (*models.Contact, error) {
	f.gotOwner, f.gotID = ownerID, id
	if f.err != nil {
		return nil, f.err
	}
	return &models.Contact{ID: id, OwnerID: ownerID, Nome: "Bob", Telefone: "111"}, nil
}

func (f *fakeContacts) UpdateByID(_ context.Context, ownerID, id int64, nome, telefone string, email *string) (*models.Contact, error) {
	f.gotOwner, f.gotID = ownerID, id
	if f.err != nil {
		return nil, f.err
	}
	return &models.Contact{ID: id, OwnerID: ownerID, Nome: nome, Telefone: telefone, Email: email}, nil
}

func (f *fakeContacts) RemoveByID(_ context.Context, ownerID, id int64) error {
	f.gotOwner, f.gotID = ownerID, id
	return f.err
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, us *fakeUsers, cs *fakeContacts, db Pinger) (*Server, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	log := logging.NewJSONLogger(buf, slog.LevelDebug)
	s, err := NewServer(Options{Address: ":0", SecretKey: testSecret, SessionTTL: time.Hour}, log, us, cs, db)
	require.NoError(t, err)
	return s, buf
}

func tokenFor(t *testing.T, id int64) string {
	t.Helper()
	tok, err := auth.GenerateToken(&models.Identity{ID: id, UserName: "alice"}, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRegister(t *testing.T) {
	s, _ := newTestServer(t, &fakeUsers{}, &fakeContacts{}, fakePinger{})

	w := do(s, http.MethodPost, "/register", `{"username":"alice","password":"secret1","email":"a@x.com"}`, "")
	assert.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, common.MsgRegistered, body["message"])
	assert.NotContains(t, w.Body.String(), "password")

	w = do(s, http.MethodPost, "/register", `{not json`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_ErrorStatuses(t *testing.T) {
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{common.NewValidationError("username is required"), http.StatusBadRequest, "username is required"},
		{common.ErrDuplicateUsername, http.StatusConflict, "this username is already taken"},
		{common.ErrPoolExhausted, http.StatusServiceUnavailable, "server is busy, try again later"},
		{common.ErrStorage, http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		s, _ := newTestServer(t, &fakeUsers{registerErr: tt.err}, &fakeContacts{}, fakePinger{})
		w := do(s, http.MethodPost, "/register", `{"username":"x","password":"y"}`, "")
		assert.Equal(t, tt.code, w.Code, tt.err.Error())
		body := decode(t, w)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, tt.msg, body["message"])
	}
}

func TestLogin_SetsCookieAndToken(t *testing.T) {
	s, logs := newTestServer(t, &fakeUsers{}, &fakeContacts{}, fakePinger{})

	w := do(s, http.MethodPost, "/login", `{"username":"alice","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	id, err := auth.ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id.ID)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, token, cookies[0].Value)

	assert.NotContains(t, logs.String(), "secret1")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s, _ := newTestServer(t, &fakeUsers{loginErr: common.ErrInvalidCredentials}, &fakeContacts{}, fakePinger{})

	w := do(s, http.MethodPost, "/login", `{"username":"alice","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid username or password", decode(t, w)["message"])
	assert.Empty(t, w.Result().Cookies())
}

func TestLogout_ClearsCookie(t *testing.T) {
	s, _ := newTestServer(t, &fakeUsers{}, &fakeContacts{}, fakePinger{})

	for _, m := range []string{http.MethodGet, http.MethodPost} {
		w := do(s, m, "/logout", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "", cookies[0].Value)
		assert.True(t, cookies[0].MaxAge < 0)
	}
}

func TestCheckStatus(t *testing.T) {
	s, _ := newTestServer(t, &fakeUsers{}, &fakeContacts{}, fakePinger{})

	w := do(s, http.MethodGet, "/check_status", "", "")
	assert.Equal(t, false, decode(t, w)["logged_in"])

	w = do(s, http.MethodGet, "/check_status", "", "garbage")
	assert.Equal(t, false, decode(t, w)["logged_in"])

	req := httptest.NewRequest(http.MethodGet, "/check_status", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: tokenFor(t, 3)})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	body := decode(t, rec)
	assert.Equal(t, true, body["logged_in"])
	user := body["user"].(map[string]any)
	assert.Equal(t, float64(3), user["id"])

	gone, _ := newTestServer(t, &fakeUsers{identityErr: common.ErrorUnauthorized}, &fakeContacts{}, fakePinger{})
	w = do(gone, http.MethodGet, "/check_status", "", tokenFor(t, 3))
	assert.Equal(t, false, decode(t, w)["logged_in"])
}

func TestAPI_RequiresSession(t *testing.T) {
	s, _ := newTestServer(t, &fakeUsers{}, &fakeContacts{}, fakePinger{})

	for _, path := range []string{"/api/contacts", "/api/contacts/1"} {
		w := do(s, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "not authorized", decode(t, w)["message"])
	}

	expired, err := auth.GenerateToken(&models.Identity{ID: 1}, testSecret, -time.Minute)
	require.NoError(t, err)
	w := do(s, http.MethodGet, "/api/contacts", "", expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	forged, err := auth.GenerateToken(&models.Identity{ID: 1}, []byte("other"), time.Hour)
	require.NoError(t, err)
	w = do(s, http.MethodGet, "/api/contacts", "", forged)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestContacts_ScopedToSessionOwner(t *testing.T) {
	cs := &fakeContacts{items: []*models.Contact{{ID: 1, OwnerID: 9, Nome: "Bob", Telefone: "111"}}}
	s, _ := newTestServer(t, &fakeUsers{}, cs, fakePinger{})
	tok := tokenFor(t, 9)

	w := do(s, http.MethodGet, "/api/contacts?q=bo", "", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(9), cs.gotOwner)
	assert.Equal(t, "bo", cs.gotTerm)
	assert.NotContains(t, w.Body.String(), "owner_id")

	w = do(s, http.MethodPost, "/api/contacts", `{"nome":"Bob","telefone":"111"}`, tok)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, common.MsgContactAdded, decode(t, w)["message"])

	w = do(s, http.MethodGet, "/api/contacts/5", "", tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), cs.gotID)

	w = do(s, http.MethodPut, "/api/contacts/5", `{"nome":"Robert","telefone":"222"}`, tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, common.MsgContactUpdated, decode(t, w)["message"])

	w = do(s, http.MethodDelete, "/api/contacts/5", "", tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, common.MsgContactRemoved, decode(t, w)["message"])

	w = do(s, http.MethodGet, "/api/contacts/abc", "", tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContacts_ErrorStatuses(t *testing.T) {
	tok := tokenFor(t, 2)

	cs := &fakeContacts{err: common.ErrDuplicatePhone}
	s, _ := newTestServer(t, &fakeUsers{}, cs, fakePinger{})
	w := do(s, http.MethodPost, "/api/contacts", `{"nome":"Bob","telefone":"111"}`, tok)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "this phone number is already registered", decode(t, w)["message"])

	cs.err = common.ErrorNotFound
	w = do(s, http.MethodDelete, "/api/contacts/3", "", tok)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(s, http.MethodPost, "/api/contacts", `[`, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangePassword(t *testing.T) {
	us := &fakeUsers{}
	s, _ := newTestServer(t, us, &fakeContacts{}, fakePinger{})

	w := do(s, http.MethodPost, "/api/password", `{"old_password":"secret1","new_password":"secret2"}`, tokenFor(t, 4))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(4), us.gotIdentity.ID)
	assert.Equal(t, "secret1", us.gotOld)
	assert.Equal(t, "secret2", us.gotNew)

	us.changeErr = common.ErrInvalidCredentials
	w = do(s, http.MethodPost, "/api/password", `{"old_password":"x","new_password":"secret2"}`, tokenFor(t, 4))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthz(t *testing.T) {
	ok, _ := newTestServer(t, &fakeUsers{}, &fakeContacts{}, fakePinger{})
	assert.Equal(t, http.StatusOK, do(ok, http.MethodGet, "/healthz", "", "").Code)

	down, _ := newTestServer(t, &fakeUsers{}, &fakeContacts{}, fakePinger{err: errors.New("no route to host")})
	assert.Equal(t, http.StatusServiceUnavailable, do(down, http.MethodGet, "/healthz", "", "").Code)
}

func TestRequestIDAndMetrics(t *testing.T) {
	s, logs := newTestServer(t, &fakeUsers{}, &fakeContacts{}, fakePinger{})

	w := do(s, http.MethodGet, "/healthz", "", "")
	id := w.Header().Get(requestIDHeader)
	assert.Len(t, id, 36)
	assert.Contains(t, logs.String(), id)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	w = do(s, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `contactbook_http_requests_total{method="GET",path="/healthz",status="200"} 2`)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t, &fakeUsers{}, &fakeContacts{}, fakePinger{})
	s.address = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
