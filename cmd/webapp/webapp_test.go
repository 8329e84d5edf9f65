package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"elearn"

	"github.com/gorilla/sessions"
)

// apiStub is a minimal platform API for driving the front end. Auth
// accepts the fixed access-1/refresh-1 pair; refresh always fails, so
// an expired access token ends the session.
type apiStub struct {
	mu          sync.Mutex
	submits     int
	coursesFail bool

	srv *httptest.Server
}

func (a *apiStub) submitCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.submits
}

func (a *apiStub) failCourses() {
	a.mu.Lock()
	a.coursesFail = true
	a.mu.Unlock()
}

func newAPIStub(t *testing.T) *apiStub {
	t.Helper()
	a := &apiStub{}
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "Passw0rd" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"success":false,"message":"Invalid email or password"}`)
			return
		}
		fmt.Fprintf(w, `{"success":true,"data":{"user":{"id":"u1","email":%q,"firstName":"Jane","lastName":"Doe","role":"student"},"token":"access-1","refreshToken":"refresh-1"}}`, body.Email)
	})
	mux.HandleFunc("/auth/verify", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"success":false,"message":"invalid token"}`)
			return
		}
		fmt.Fprint(w, `{"success":true}`)
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"success":false,"message":"refresh token expired"}`)
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true}`)
	})

	mux.HandleFunc("/dashboard/metrics", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":{"enrolledCourses":1}}`)
	})
	mux.HandleFunc("/dashboard/courses", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":[]}`)
	})
	mux.HandleFunc("/dashboard/quizzes", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":[]}`)
	})
	mux.HandleFunc("/quiz/history", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":[]}`)
	})

	mux.HandleFunc("/courses", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		fail := a.coursesFail
		a.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"success":false,"message":"token expired"}`)
			return
		}
		fmt.Fprint(w, `{"success":true,"data":{"items":[],"page":1,"limit":12,"total":0}}`)
	})

	mux.HandleFunc("/quiz/generate", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":{"id":"quiz-1","courseId":"c1","questions":[`+
			`{"id":"q1","text":"Question 1","type":"short_answer","correctAnswer":"answer 1"},`+
			`{"id":"q2","text":"Question 2","type":"short_answer","correctAnswer":"answer 2"}]}}`)
	})
	mux.HandleFunc("/quiz/quiz-1/questions/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":{"isCorrect":true,"explanation":"Correct."}}`)
	})
	mux.HandleFunc("/quiz/quiz-1/submit", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.submits++
		a.mu.Unlock()
		fmt.Fprint(w, `{"success":true,"data":{"id":"attempt-1"}}`)
	})

	a.srv = httptest.NewServer(mux)
	t.Cleanup(a.srv.Close)
	return a
}

// newWebServer wires a Server against the stub API and returns its test
// URL plus a cookie-holding client that does not follow redirects.
func newWebServer(t *testing.T, api *apiStub) (string, *http.Client) {
	t.Helper()

	templates, err := loadTemplates("../../templates")
	if err != nil {
		t.Fatalf("loadTemplates: %v", err)
	}
	cfg := &elearn.Config{
		API: elearn.APIConfig{BaseURL: api.srv.URL, TimeoutSeconds: 5},
		Web: elearn.WebConfig{
			CookieSecret:  "test-secret",
			TranscriptDir: t.TempDir(),
		},
	}
	server := &Server{
		cfg:        cfg,
		store:      sessions.NewCookieStore([]byte(cfg.Web.CookieSecret)),
		templates:  templates,
		httpClient: &http.Client{Timeout: cfg.API.Timeout()},
		flows:      make(map[string]*flowEntry),
		toasts:     make(map[string]string),
	}
	srv := httptest.NewServer(server.routes())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	browser := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return srv.URL, browser
}

func login(t *testing.T, browser *http.Client, base string) {
	t.Helper()
	resp, err := browser.PostForm(base+"/login", url.Values{
		"email":    {"jane@example.com"},
		"password": {"Passw0rd"},
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
}

func TestGuardRedirectsToLoginWithNext(t *testing.T) {
	base, browser := newWebServer(t, newAPIStub(t))

	resp, err := browser.Get(base + "/dashboard")
	if err != nil {
		t.Fatalf("GET /dashboard: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != "/login?next=%2Fdashboard" {
		t.Errorf("Location = %q, want the login screen with the path preserved", loc)
	}
}

func TestLoginRedirectsToNext(t *testing.T) {
	base, browser := newWebServer(t, newAPIStub(t))

	resp, err := browser.PostForm(base+"/login", url.Values{
		"email":    {"jane@example.com"},
		"password": {"Passw0rd"},
		"next":     {"/courses"},
	})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != "/courses" {
		t.Errorf("Location = %q, want %q", loc, "/courses")
	}
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", "/dashboard"},
		{"/courses", "/courses"},
		{"/quiz?course=c1", "/quiz?course=c1"},
		{"//evil.example.com", "/dashboard"},
		{"https://evil.example.com", "/dashboard"},
		{"dashboard", "/dashboard"},
	}
	for _, tt := range tests {
		if got := safeNext(tt.raw); got != tt.want {
			t.Errorf("safeNext(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestAuthedPageRenders(t *testing.T) {
	base, browser := newWebServer(t, newAPIStub(t))
	login(t, browser, base)

	resp, err := browser.Get(base + "/dashboard")
	if err != nil {
		t.Fatalf("GET /dashboard: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestExpiredSessionRedirectsToLogin(t *testing.T) {
	api := newAPIStub(t)
	base, browser := newWebServer(t, api)
	login(t, browser, base)

	// The access token now 401s on API calls and the refresh fails too:
	// the page must hand the learner back to the login screen rather
	// than render a degraded view.
	api.failCourses()

	resp, err := browser.Get(base + "/courses")
	if err != nil {
		t.Fatalf("GET /courses: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want %q", loc, "/login")
	}
}

func TestCompletedQuizSubmitsOnce(t *testing.T) {
	api := newAPIStub(t)
	base, browser := newWebServer(t, api)
	login(t, browser, base)

	post := func(action string, form url.Values) {
		t.Helper()
		resp, err := browser.PostForm(base+"/quiz/"+action, form)
		if err != nil {
			t.Fatalf("POST /quiz/%s: %v", action, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusSeeOther {
			t.Fatalf("POST /quiz/%s status = %d, want %d", action, resp.StatusCode, http.StatusSeeOther)
		}
	}

	post("generate", url.Values{})
	if n := api.submitCount(); n != 0 {
		t.Fatalf("submits after generate = %d, want 0", n)
	}

	post("check", url.Values{"question": {"q1"}, "value": {"answer 1"}})
	if n := api.submitCount(); n != 0 {
		t.Fatalf("submits after first check = %d, want 0", n)
	}

	// Grading the last open question completes the quiz; that is the
	// one submission.
	post("check", url.Values{"question": {"q2"}, "value": {"answer 2"}})
	if n := api.submitCount(); n != 1 {
		t.Fatalf("submits after completion = %d, want 1", n)
	}

	// Re-checking a question on the completed quiz must not record
	// another attempt.
	post("check", url.Values{"question": {"q1"}, "value": {"answer 1"}})
	if n := api.submitCount(); n != 1 {
		t.Errorf("submits after re-check = %d, want 1", n)
	}
}
