package main

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"sync"

	"elearn"

	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
)

// Server is the web front end: it renders the platform UI server-side
// and talks to the platform REST API on the user's behalf. Per-browser
// state (the credential triple, the active quiz flow id) lives in a
// cookie session.
type Server struct {
	cfg        *elearn.Config
	store      *sessions.CookieStore
	templates  map[string]*template.Template
	httpClient *http.Client

	mu     sync.Mutex
	flows  map[string]*flowEntry
	toasts map[string]string
}

const sessionName = "elearn-session"

func main() {
	godotenv.Load()

	cfg, err := elearn.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	elearn.InitLogger(cfg.Log.File, cfg.Log.Verbose)

	if cfg.Web.CookieSecret == "" {
		log.Fatal("web.cookie_secret (ELEARN_COOKIE_SECRET) is required")
	}
	store := sessions.NewCookieStore([]byte(cfg.Web.CookieSecret))
	store.Options.HttpOnly = true

	templates, err := loadTemplates(cfg.Web.TemplateDir)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	server := &Server{
		cfg:        cfg,
		store:      store,
		templates:  templates,
		httpClient: &http.Client{Timeout: cfg.API.Timeout()},
		flows:      make(map[string]*flowEntry),
		toasts:     make(map[string]string),
	}

	log.Printf("Starting web front end on %s", cfg.Web.Addr)
	log.Fatal(http.ListenAndServe(cfg.Web.Addr, server.routes()))
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/signup", s.handleSignup)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/dashboard", s.requireAuth(s.handleDashboard))
	mux.HandleFunc("/courses", s.requireAuth(s.handleCourses))
	mux.HandleFunc("/courses/", s.requireAuth(s.handleCourse))
	mux.HandleFunc("/quiz", s.requireAuth(s.handleQuiz))
	mux.HandleFunc("/quiz/", s.requireAuth(s.handleQuizAction))
	mux.HandleFunc("/progress", s.requireAuth(s.handleProgress))
	mux.HandleFunc("/profile", s.requireAuth(s.handleProfile))
	return mux
}

func loadTemplates(dir string) (map[string]*template.Template, error) {
	funcMap := template.FuncMap{
		"add":      func(a, b int) int { return a + b },
		"deref":    func(b *bool) bool { return b != nil && *b },
		"duration": elearn.FormatDuration,
		"truncate": elearn.TruncateText,
		"progress": elearn.CalculateProgress,
		"printf":   fmt.Sprintf,
	}

	pages := []string{
		"login", "signup", "dashboard", "courses", "course",
		"quiz", "progress", "profile", "notfound",
	}

	templates := make(map[string]*template.Template, len(pages))
	base := filepath.Join(dir, "base.html")
	for _, page := range pages {
		t, err := template.New(page).Funcs(funcMap).ParseFiles(base, filepath.Join(dir, page+".html"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		templates[page] = t
	}
	return templates, nil
}

// render executes a page template against base.html.
func (s *Server) render(w http.ResponseWriter, page string, data map[string]interface{}) {
	t, ok := s.templates[page]
	if !ok {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	if err := t.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Template error in %s: %v", page, err)
	}
}

func (s *Server) notFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	s.render(w, "notfound", nil)
}

// setToast stores a one-shot message for a quiz flow, popped on the
// next quiz page render.
func (s *Server) setToast(flowID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts[flowID] = message
}

func (s *Server) popToast(flowID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.toasts[flowID]
	delete(s.toasts, flowID)
	return msg
}
