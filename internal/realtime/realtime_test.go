package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/events"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/session"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

// newServer authenticates each request as a member of the org named in
// the ?org= query parameter.
func newServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	h := NewHandler(hub, []string{"https://console.example.com"}, logging.New("error"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if org := r.URL.Query().Get("org"); org != "" {
			sess := &session.Session{ID: "s-" + org, UserID: "u-" + org, OrganizationID: org, Role: tenancy.RoleAdmin}
			r = r.WithContext(session.WithSession(r.Context(), sess))
		}
		h.ServeWS(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, org string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?org=" + org
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://console.example.com"}})
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubFansOutToSameOrganization(t *testing.T) {
	hub := NewHub(logging.New("error"))
	srv := newServer(t, hub)

	mine := dial(t, srv, "org-1")
	other := dial(t, srv, "org-2")
	require.Eventually(t, func() bool {
		return hub.Connections("org-1") == 1 && hub.Connections("org-2") == 1
	}, time.Second, 10*time.Millisecond)

	e, err := events.New(events.TypeLeadStatusChanged, "org-1", "lead-9", "u1", events.LeadStatusChangedV1{From: "PROSPECT", To: "LEAD"})
	require.NoError(t, err)
	require.NoError(t, hub.Subscriber()(context.Background(), e))

	require.NoError(t, mine.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := mine.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, events.TypeLeadStatusChanged, msg.Type)
	assert.Equal(t, "lead-9", msg.LeadID)
	assert.Contains(t, msg.Refresh, "clients")

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = other.ReadMessage()
	assert.Error(t, err)
}

func TestHubForgetsClosedConnections(t *testing.T) {
	hub := NewHub(logging.New("error"))
	srv := newServer(t, hub)

	conn := dial(t, srv, "org-1")
	require.Eventually(t, func() bool { return hub.Connections("org-1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Connections("org-1") == 0 }, time.Second, 10*time.Millisecond)
	assert.Zero(t, hub.Broadcast("org-1", Message{Type: events.TypeLeadDeleted}))
}

func TestServeWSRequiresSession(t *testing.T) {
	hub := NewHub(logging.New("error"))
	srv := newServer(t, hub)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://console.example.com/"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://console.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}

func TestSubscriberIgnoresUnknownEvents(t *testing.T) {
	hub := NewHub(logging.New("error"))
	assert.NoError(t, hub.Subscriber()(context.Background(), events.Event{Type: "unknown.v1", OrgID: "org-1"}))
}
