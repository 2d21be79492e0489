package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Secret       string
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
}

// Manager is the only writer of sessions. Begin, SelectOrganization,
// SaveView and End mutate; everything else reads.
type Manager struct {
	store  Store
	cfg    ManagerConfig
	logger *logging.Logger
	now    func() time.Time
}

type cookieClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func NewManager(store Store, cfg ManagerConfig, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "crm_session"
	}
	return &Manager{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// Begin opens a session at login. The organization stays pending unless the
// user belongs to exactly one.
func (m *Manager) Begin(ctx context.Context, userID, accessToken string, orgs []crmapi.Organization) (*Session, error) {
	if userID == "" || accessToken == "" {
		return nil, errors.New("session: user id and access token are required")
	}
	sess := &Session{
		ID:            uuid.NewString(),
		UserID:        userID,
		AccessToken:   accessToken,
		Organizations: choicesFor(userID, orgs),
		CreatedAt:     m.now().UTC(),
	}
	if len(sess.Organizations) == 1 {
		bind(sess, sess.Organizations[0])
	}
	if err := m.store.Save(ctx, sess, m.cfg.TTL); err != nil {
		return nil, err
	}
	m.logger.Info("session started", "session_id", sess.ID, "user_id", userID, "organizations", len(sess.Organizations))
	return sess, nil
}

// SelectOrganization binds the session to one of the user's organizations.
func (m *Manager) SelectOrganization(ctx context.Context, sess *Session, orgID string) (*Session, error) {
	for _, choice := range sess.Organizations {
		if choice.ID == orgID {
			bind(sess, choice)
			if err := m.store.Save(ctx, sess, m.cfg.TTL); err != nil {
				return nil, err
			}
			m.logger.Info("organization selected", "session_id", sess.ID, "org_id", orgID, "role", sess.Role)
			return sess, nil
		}
	}
	return nil, ErrUnknownOrganization
}

func bind(sess *Session, choice OrganizationChoice) {
	if sess.OrganizationID != choice.ID {
		sess.Views = nil
	}
	sess.OrganizationID = choice.ID
	sess.Role = choice.Role
}

// Get loads a session and slides its expiry.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	return m.store.Load(ctx, id, m.cfg.TTL)
}

// SaveView remembers the list state of one page kind.
func (m *Manager) SaveView(ctx context.Context, sess *Session, kind string, view ViewState) error {
	if sess.Views == nil {
		sess.Views = make(map[string]ViewState)
	}
	sess.Views[kind] = view
	return m.store.Save(ctx, sess, m.cfg.TTL)
}

// End deletes the session.
func (m *Manager) End(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info("session ended", "session_id", id)
	return nil
}

// IssueCookie writes the signed session cookie.
func (m *Manager) IssueCookie(w http.ResponseWriter, sess *Session) error {
	now := m.now()
	claims := cookieClaims{
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return fmt.Errorf("session: sign cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.cfg.TTL.Seconds()),
	})
	return nil
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		MaxAge:   -1,
	})
}

// SessionID extracts and verifies the session id carried by the request.
func (m *Manager) SessionID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrInvalidCookie
	}
	claims := cookieClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(m.cfg.Secret), nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid || claims.SessionID == "" {
		return "", ErrInvalidCookie
	}
	return claims.SessionID, nil
}

// Middleware loads the session (when present) and places it and its
// identity into the request context. Anonymous requests pass through.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.SessionID(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		sess, err := m.Get(r.Context(), id)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) {
				m.logger.Error("failed to load session", "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := WithSession(r.Context(), sess)
		ctx = tenancy.WithIdentity(ctx, sess.Identity())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession rejects requests without a signed-in user.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			http.Error(w, "sign in required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
