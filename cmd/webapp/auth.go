package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"elearn"

	"github.com/gorilla/sessions"
)

// cookieCreds stores the credential triple in the browser's cookie
// session, the web equivalent of the terminal client's local store. The
// triple is written and cleared together so it is never partial.
type cookieCreds struct {
	session *sessions.Session
	r       *http.Request
	w       http.ResponseWriter
}

const (
	keyToken        = "token"
	keyRefreshToken = "refreshToken"
	keyUser         = "user"
)

func (c *cookieCreds) SaveCredentials(accessToken, refreshToken string, user *elearn.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to serialize user: %w", err)
	}
	c.session.Values[keyToken] = accessToken
	c.session.Values[keyRefreshToken] = refreshToken
	c.session.Values[keyUser] = string(raw)
	return c.session.Save(c.r, c.w)
}

func (c *cookieCreds) LoadCredentials() (string, string, *elearn.User, error) {
	access, _ := c.session.Values[keyToken].(string)
	refresh, _ := c.session.Values[keyRefreshToken].(string)
	userJSON, _ := c.session.Values[keyUser].(string)
	if access == "" || refresh == "" || userJSON == "" {
		if access != "" || refresh != "" || userJSON != "" {
			// Partial triple: treat as absent and clear it.
			return "", "", nil, c.ClearCredentials()
		}
		return "", "", nil, nil
	}

	var user elearn.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return "", "", nil, c.ClearCredentials()
	}
	return access, refresh, &user, nil
}

func (c *cookieCreds) ClearCredentials() error {
	delete(c.session.Values, keyToken)
	delete(c.session.Values, keyRefreshToken)
	delete(c.session.Values, keyUser)
	return c.session.Save(c.r, c.w)
}

// reqContext bundles the per-request client wiring: a fresh session
// store bound to this browser's cookie credentials.
type reqContext struct {
	cookie   *sessions.Session
	client   *elearn.Client
	sessions *elearn.SessionStore
	session  *elearn.Session
}

func (s *Server) newReqContext(w http.ResponseWriter, r *http.Request) *reqContext {
	cookie, _ := s.store.Get(r, sessionName)
	creds := &cookieCreds{session: cookie, r: r, w: w}
	client := elearn.NewClient(s.cfg.API.BaseURL, s.httpClient)
	return &reqContext{
		cookie:   cookie,
		client:   client,
		sessions: elearn.NewSessionStore(client, creds),
	}
}

// requireAuth is the route guard: unauthenticated requests are sent to
// the login screen with the originally requested path preserved for
// the post-login return.
func (s *Server) requireAuth(h func(http.ResponseWriter, *http.Request, *reqContext)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := s.newReqContext(w, r)
		sess, err := rc.sessions.Hydrate(r.Context())
		if err != nil || sess == nil {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		rc.session = sess
		h(w, r, rc)
	}
}

// handleHome redirects to the dashboard or the login screen; any other
// path is a not-found view regardless of auth state.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.notFound(w)
		return
	}
	rc := s.newReqContext(w, r)
	if sess, err := rc.sessions.Hydrate(r.Context()); err == nil && sess != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func safeNext(raw string) string {
	// Only same-site paths are valid post-login targets.
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/dashboard"
	}
	return raw
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))

	if r.Method == http.MethodGet {
		s.render(w, "login", map[string]interface{}{"Next": next, "Email": ""})
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	next = safeNext(r.FormValue("next"))

	form := elearn.LoginForm{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
		Role:     elearn.Role(r.FormValue("role")),
	}
	if form.Role == "" {
		form.Role = elearn.RoleStudent
	}
	if err := form.Validate(); err != nil {
		s.render(w, "login", map[string]interface{}{
			"Next":  next,
			"Email": form.Email,
			"Error": "Please enter a valid email and password.",
		})
		return
	}

	rc := s.newReqContext(w, r)
	if _, err := rc.sessions.Login(r.Context(), form.Email, form.Password, form.Role); err != nil {
		s.render(w, "login", map[string]interface{}{
			"Next":  next,
			"Email": form.Email,
			"Error": err.Error(),
		})
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.render(w, "signup", nil)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	form := elearn.SignupForm{
		FirstName:       strings.TrimSpace(r.FormValue("firstName")),
		LastName:        strings.TrimSpace(r.FormValue("lastName")),
		Email:           strings.TrimSpace(r.FormValue("email")),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirmPassword"),
		Role:            elearn.Role(r.FormValue("role")),
	}
	if form.Role == "" {
		form.Role = elearn.RoleStudent
	}

	if err := form.Validate(); err != nil {
		s.render(w, "signup", map[string]interface{}{
			"Form":  form,
			"Error": signupErrorMessage(err),
		})
		return
	}

	rc := s.newReqContext(w, r)
	if _, err := rc.sessions.Signup(r.Context(), form); err != nil {
		s.render(w, "signup", map[string]interface{}{
			"Form":  form,
			"Error": err.Error(),
		})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func signupErrorMessage(err error) string {
	if pwErr, ok := err.(*elearn.PasswordError); ok {
		return "Password " + strings.Join(pwErr.Problems, ", ") + "."
	}
	return "Please fill in all fields with a valid email and matching passwords."
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	rc := s.newReqContext(w, r)
	if _, err := rc.sessions.Hydrate(r.Context()); err == nil {
		rc.sessions.Logout(r.Context())
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
