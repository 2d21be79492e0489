package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

func twoOrgs() []crmapi.Organization {
	return []crmapi.Organization{
		{ID: "org-1", Name: "Acme", UserOrganizations: []crmapi.UserOrganization{{UserID: "u-1", OrganizationID: "org-1", UserType: "OWNER"}}},
		{ID: "org-2", Name: "Globex", UserOrganizations: []crmapi.UserOrganization{{UserID: "u-1", OrganizationID: "org-2", UserType: "USER"}}},
		{ID: "org-3", Name: "Other", UserOrganizations: []crmapi.UserOrganization{{UserID: "u-2", OrganizationID: "org-3", UserType: "ADMIN"}}},
	}
}

func newTestManager(store Store) *Manager {
	return NewManager(store, ManagerConfig{Secret: "test-secret", TTL: time.Hour}, logging.New("error"))
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client)
	ctx := context.Background()

	sess := &Session{ID: "s-1", UserID: "u-1", AccessToken: "tok"}
	require.NoError(t, store.Save(ctx, sess, time.Minute))

	got, err := store.Load(ctx, "s-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, time.Hour, mr.TTL(redisKeyPrefix+"s-1"))

	require.NoError(t, store.Delete(ctx, "s-1"))
	_, err = store.Load(ctx, "s-1", time.Hour)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "s-2", UserID: "u"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "s-2", time.Minute)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "s-1", UserID: "u"}, time.Minute))
	now = now.Add(30 * time.Second)
	_, err := store.Load(ctx, "s-1", time.Minute)
	require.NoError(t, err)

	now = now.Add(90 * time.Second)
	_, err = store.Load(ctx, "s-1", time.Minute)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	m := newTestManager(NewMemoryStore())
	ctx := context.Background()

	sess, err := m.Begin(ctx, "u-1", "tok-1", twoOrgs())
	require.NoError(t, err)
	assert.Empty(t, sess.OrganizationID, "organization stays pending with several choices")
	assert.Len(t, sess.Organizations, 2)
	assert.False(t, sess.Identity().Complete())

	sess, err = m.SelectOrganization(ctx, sess, "org-2")
	require.NoError(t, err)
	assert.Equal(t, tenancy.RoleUser, sess.Role)
	assert.True(t, sess.Identity().Complete())

	_, err = m.SelectOrganization(ctx, sess, "org-3")
	assert.ErrorIs(t, err, ErrUnknownOrganization)

	loaded, err := m.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "org-2", loaded.OrganizationID)

	require.NoError(t, m.End(ctx, sess.ID))
	_, err = m.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestBeginBindsSingleOrganization(t *testing.T) {
	m := newTestManager(NewMemoryStore())
	sess, err := m.Begin(context.Background(), "u-1", "tok", twoOrgs()[:1])
	require.NoError(t, err)
	assert.Equal(t, "org-1", sess.OrganizationID)
	assert.Equal(t, tenancy.RoleOwner, sess.Role)
}

func TestSwitchingOrganizationDropsViews(t *testing.T) {
	m := newTestManager(NewMemoryStore())
	ctx := context.Background()
	sess, err := m.Begin(ctx, "u-1", "tok", twoOrgs())
	require.NoError(t, err)
	_, err = m.SelectOrganization(ctx, sess, "org-1")
	require.NoError(t, err)
	require.NoError(t, m.SaveView(ctx, sess, "prospects", ViewState{Search: "jo", Page: 2}))

	_, err = m.SelectOrganization(ctx, sess, "org-2")
	require.NoError(t, err)
	assert.Equal(t, ViewState{}, sess.View("prospects"))
}

func TestCookieRoundTrip(t *testing.T) {
	m := newTestManager(NewMemoryStore())
	sess := &Session{ID: "s-9", UserID: "u-1"}

	rec := httptest.NewRecorder()
	require.NoError(t, m.IssueCookie(rec, sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	id, err := m.SessionID(req)
	require.NoError(t, err)
	assert.Equal(t, "s-9", id)
}

func TestCookieSignedWithOtherSecretIsRejected(t *testing.T) {
	issuer := NewManager(NewMemoryStore(), ManagerConfig{Secret: "a"}, nil)
	verifier := NewManager(NewMemoryStore(), ManagerConfig{Secret: "b"}, nil)

	rec := httptest.NewRecorder()
	require.NoError(t, issuer.IssueCookie(rec, &Session{ID: "s-1"}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	_, err := verifier.SessionID(req)
	assert.ErrorIs(t, err, ErrInvalidCookie)
}

func TestMiddlewarePlacesIdentity(t *testing.T) {
	m := newTestManager(NewMemoryStore())
	ctx := context.Background()
	sess, err := m.Begin(ctx, "u-1", "tok-1", twoOrgs()[:1])
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, m.IssueCookie(rec, sess))

	var got tenancy.Identity
	handler := m.Middleware(RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = tenancy.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tenancy.Identity{UserID: "u-1", OrganizationID: "org-1", Role: tenancy.RoleOwner, AccessToken: "tok-1"}, got)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type fakeAuth struct {
	result *crmapi.LoginResult
	err    error
	orgs   []crmapi.Organization
}

func (f *fakeAuth) Login(context.Context, crmapi.Credentials) (*crmapi.LoginResult, error) {
	return f.result, f.err
}

func (f *fakeAuth) UserOrganizations(context.Context, string) ([]crmapi.Organization, error) {
	return f.orgs, nil
}

func TestLoginHandler(t *testing.T) {
	auth := &fakeAuth{
		result: &crmapi.LoginResult{Token: "tok-1", User: crmapi.LoginUser{ID: "u-1"}},
		orgs:   twoOrgs(),
	}
	h := NewHandler(auth, newTestManager(NewMemoryStore()), logging.New("error"))

	body, _ := json.Marshal(map[string]string{"email": "sam@example.com", "password": "pw"})
	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	var view View
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.True(t, view.NeedsOrganization)
	assert.Len(t, view.Organizations, 2)
	assert.NotContains(t, w.Body.String(), "tok-1")
	assert.NotEmpty(t, w.Result().Cookies())
}

func TestLoginHandlerValidation(t *testing.T) {
	h := NewHandler(&fakeAuth{}, newTestManager(NewMemoryStore()), logging.New("error"))

	body, _ := json.Marshal(map[string]string{"email": "not-an-email", "password": ""})
	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestLoginHandlerRejected(t *testing.T) {
	auth := &fakeAuth{err: &crmapi.HTTPError{Op: "auth.login", StatusCode: 401, Message: "Invalid credentials"}}
	h := NewHandler(auth, newTestManager(NewMemoryStore()), logging.New("error"))

	body, _ := json.Marshal(map[string]string{"email": "sam@example.com", "password": "bad"})
	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")
}
