package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/alrena-group/amqms-portal/internal/config"
)

const sessionUserKey = "user_id"

// SessionManager keeps the signed-in profile id in a signed cookie.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
}

func NewSessionManager(cfg config.SessionConfig) *SessionManager {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: parseSameSite(cfg.SameSite),
	}

	return &SessionManager{store: store, name: cfg.Name}
}

// Start writes a fresh session for the profile.
func (m *SessionManager) Start(w http.ResponseWriter, r *http.Request, profileID uuid.UUID) error {
	// A decode error only means the old cookie is unusable; Get still returns a new session
	session, _ := m.store.Get(r, m.name)
	session.Values = map[interface{}]interface{}{
		sessionUserKey: profileID.String(),
	}
	return session.Save(r, w)
}

// CurrentUserID returns the profile id stored in the request's session cookie.
func (m *SessionManager) CurrentUserID(r *http.Request) (uuid.UUID, bool) {
	session, err := m.store.Get(r, m.name)
	if err != nil || session.IsNew {
		return uuid.Nil, false
	}

	raw, ok := session.Values[sessionUserKey].(string)
	if !ok {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, m.name)
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(value) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
