package elearn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Session is the authenticated identity and token pair held by the
// client for the current user.
type Session struct {
	User         User
	AccessToken  string
	RefreshToken string
}

// DisplayName is the user's full name, falling back to the email.
func (s *Session) DisplayName() string {
	if s.User.FirstName == "" && s.User.LastName == "" {
		return s.User.Email
	}
	return s.User.FirstName + " " + s.User.LastName
}

// CredentialStore persists the session as three entries: access token,
// refresh token and serialized user. Implementations must keep the
// triple atomic: after any operation either all three are present or
// all three are absent.
type CredentialStore interface {
	SaveCredentials(accessToken, refreshToken string, user *User) error
	LoadCredentials() (accessToken, refreshToken string, user *User, err error)
	ClearCredentials() error
}

// MemoryStore is an in-memory CredentialStore for ephemeral sessions
// and tests.
type MemoryStore struct {
	mu      sync.Mutex
	access  string
	refresh string
	user    *User
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) SaveCredentials(accessToken, refreshToken string, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := *user
	m.access, m.refresh, m.user = accessToken, refreshToken, &u
	return nil
}

func (m *MemoryStore) LoadCredentials() (string, string, *User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.access == "" || m.refresh == "" || m.user == nil {
		return "", "", nil, nil
	}
	u := *m.user
	return m.access, m.refresh, &u, nil
}

func (m *MemoryStore) ClearCredentials() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh, m.user = "", "", nil
	return nil
}

// authResponse is the payload of /auth/login and /auth/signup.
type authResponse struct {
	User         User   `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// SessionStore owns the auth lifecycle: login, signup, logout, refresh
// and startup hydration. It implements Authenticator for the Client it
// is bound to, so every API call picks up the current token.
type SessionStore struct {
	client *Client
	creds  CredentialStore

	mu      sync.RWMutex
	current *Session
}

// NewSessionStore wires a session store to a client and a credential
// store, and binds itself as the client's authenticator.
func NewSessionStore(client *Client, creds CredentialStore) *SessionStore {
	s := &SessionStore{client: client, creds: creds}
	client.BindAuth(s)
	return s
}

// Current returns a copy of the active session, or nil.
func (s *SessionStore) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	sess := *s.current
	return &sess
}

// AccessToken implements Authenticator.
func (s *SessionStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.AccessToken
}

// Login authenticates with email and password. On success the session
// is stored atomically; on failure any prior session is left untouched.
func (s *SessionStore) Login(ctx context.Context, email, password string, role Role) (*Session, error) {
	body := map[string]any{"email": email, "password": password, "role": role}
	var resp authResponse
	err := s.client.post(ctx, "/auth/login", body, &resp, requestOptions{skipAuth: true, noRetry: true})
	if err != nil {
		return nil, loginError(err, "login failed")
	}
	return s.adopt(resp)
}

// Signup creates an account. Form validation (email format, password
// strength) is expected to have run in the form layer; the server stays
// authoritative.
func (s *SessionStore) Signup(ctx context.Context, form SignupForm) (*Session, error) {
	body := map[string]any{
		"firstName": form.FirstName,
		"lastName":  form.LastName,
		"email":     form.Email,
		"password":  form.Password,
		"role":      form.Role,
	}
	var resp authResponse
	err := s.client.post(ctx, "/auth/signup", body, &resp, requestOptions{skipAuth: true, noRetry: true})
	if err != nil {
		return nil, loginError(err, "signup failed")
	}
	return s.adopt(resp)
}

func (s *SessionStore) adopt(resp authResponse) (*Session, error) {
	sess := &Session{
		User:         resp.User,
		AccessToken:  resp.Token,
		RefreshToken: resp.RefreshToken,
	}
	if err := s.creds.SaveCredentials(sess.AccessToken, sess.RefreshToken, &sess.User); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	Log.Info("session established", zap.String("user", sess.User.Email), zap.String("role", string(sess.User.Role)))
	out := *sess
	return &out, nil
}

// Logout notifies the server best-effort and always clears local state.
func (s *SessionStore) Logout(ctx context.Context) {
	if s.AccessToken() != "" {
		if err := s.client.post(ctx, "/auth/logout", nil, nil, requestOptions{noRetry: true}); err != nil {
			// Network trouble during logout must not keep the session alive.
			Log.Debug("logout notification failed", zap.Error(err))
		}
	}
	s.clear()
	Log.Info("session cleared")
}

func (s *SessionStore) clear() {
	if err := s.creds.ClearCredentials(); err != nil {
		Log.Warn("failed to clear stored credentials", zap.Error(err))
	}
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Refresh exchanges the stored refresh token for a new token pair. Any
// failure forces a full logout, because a session that cannot refresh
// is unusable.
func (s *SessionStore) Refresh(ctx context.Context) error {
	s.mu.RLock()
	var refreshToken string
	if s.current != nil {
		refreshToken = s.current.RefreshToken
	}
	s.mu.RUnlock()

	if refreshToken == "" {
		s.clear()
		return ErrNoRefreshToken
	}

	body := map[string]string{"refreshToken": refreshToken}
	var resp struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	err := s.client.post(ctx, "/auth/refresh", body, &resp, requestOptions{skipAuth: true, noRetry: true})
	if err != nil {
		s.clear()
		return fmt.Errorf("token refresh failed: %w", err)
	}

	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return ErrNotSignedIn
	}
	s.current.AccessToken = resp.Token
	s.current.RefreshToken = resp.RefreshToken
	sess := *s.current
	s.mu.Unlock()

	if err := s.creds.SaveCredentials(sess.AccessToken, sess.RefreshToken, &sess.User); err != nil {
		return fmt.Errorf("failed to persist refreshed session: %w", err)
	}
	Log.Debug("token pair refreshed")
	return nil
}

// Hydrate restores a session from the credential store at startup. The
// stored token is verified against the API; on verification failure the
// store and the in-memory session are cleared (fail closed).
func (s *SessionStore) Hydrate(ctx context.Context) (*Session, error) {
	access, refresh, user, err := s.creds.LoadCredentials()
	if err != nil {
		return nil, fmt.Errorf("failed to load stored session: %w", err)
	}
	if access == "" || refresh == "" || user == nil {
		return nil, nil
	}

	sess := &Session{User: *user, AccessToken: access, RefreshToken: refresh}
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	if !s.verify(ctx, access) {
		s.clear()
		return nil, nil
	}

	Log.Debug("session hydrated", zap.String("user", sess.User.Email))
	out := *sess
	return &out, nil
}

// verify asks the API whether the token is still valid. Any failure
// counts as invalid.
func (s *SessionStore) verify(ctx context.Context, token string) bool {
	err := s.client.get(ctx, "/auth/verify", nil, requestOptions{bearer: token, noRetry: true})
	return err == nil
}

// EnsureFresh refreshes the token pair proactively when the access
// token is about to expire. The expiry claim is read without signature
// verification; the server remains the authority.
func (s *SessionStore) EnsureFresh(ctx context.Context) error {
	token := s.AccessToken()
	if token == "" {
		return ErrNotSignedIn
	}
	if !tokenExpiringWithin(token, 30*time.Second) {
		return nil
	}
	return s.Refresh(ctx)
}

func tokenExpiringWithin(token string, window time.Duration) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// Opaque tokens carry no expiry we can read; leave refresh to
		// the 401 path.
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < window
}

// loginError keeps the server's message when there is one and falls
// back to a generic one otherwise.
func loginError(err error, fallback string) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return errors.New(apiErr.Message)
	}
	return fmt.Errorf("%s: %w", fallback, err)
}

// encodeUser and decodeUser are the serialization used for the "user"
// credential entry.
func encodeUser(u *User) (string, error) {
	raw, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("failed to serialize user: %w", err)
	}
	return string(raw), nil
}

func decodeUser(raw string) (*User, error) {
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("failed to parse stored user: %w", err)
	}
	return &u, nil
}
