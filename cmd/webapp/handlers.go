package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"elearn"

	"go.uber.org/zap"
)

// flowService is the stable QuizService handed to a long-lived flow.
// The underlying client is per-request (it carries that request's
// cookie credentials), so each quiz request swaps it in before use.
type flowService struct {
	mu     sync.Mutex
	client *elearn.Client
}

func (p *flowService) set(c *elearn.Client) {
	p.mu.Lock()
	p.client = c
	p.mu.Unlock()
}

func (p *flowService) current() *elearn.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

func (p *flowService) GenerateQuiz(ctx context.Context, req elearn.GenerationRequest) (*elearn.Quiz, error) {
	return p.current().GenerateQuiz(ctx, req)
}

func (p *flowService) CheckAnswer(ctx context.Context, quizID, questionID, answer string) (*elearn.CheckResult, error) {
	return p.current().CheckAnswer(ctx, quizID, questionID, answer)
}

func (p *flowService) RevealAnswer(ctx context.Context, quizID, questionID string) (*elearn.RevealResult, error) {
	return p.current().RevealAnswer(ctx, quizID, questionID)
}

type flowEntry struct {
	flow      *elearn.QuizFlow
	svc       *flowService
	courseID  string
	course    string // title, shown on the quiz screen
	submitted bool   // guarded by Server.mu; a quiz is submitted at most once
}

// sessionLost redirects to the login screen when an API error means the
// session could not be refreshed. The session store has already cleared
// the stored credentials; only the navigation is left to do.
func (s *Server) sessionLost(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil || !errors.Is(err, elearn.ErrSessionExpired) {
		return false
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	return true
}

// flowFor returns the browser's quiz flow, creating one when none
// exists yet or when the requested course changed. Lessons come from
// the course detail; the demo list covers a failed fetch.
func (s *Server) flowFor(w http.ResponseWriter, r *http.Request, rc *reqContext, courseID string) *flowEntry {
	flowID, _ := rc.cookie.Values["flowID"].(string)

	s.mu.Lock()
	entry := s.flows[flowID]
	s.mu.Unlock()
	if entry != nil && (courseID == "" || entry.courseID == courseID) {
		entry.svc.set(rc.client)
		return entry
	}

	flowID = elearn.NewID()
	rc.cookie.Values["flowID"] = flowID
	rc.cookie.Save(r, w)

	var lessons []elearn.LessonRef
	courseTitle := ""
	if courseID != "" {
		if course, err := rc.client.Course(r.Context(), courseID); err == nil {
			courseTitle = course.Title
			for _, l := range course.Lessons {
				lessons = append(lessons, elearn.LessonRef{
					ID:        l.ID,
					Title:     l.Title,
					IsCurrent: !l.IsCompleted && !hasCurrent(lessons),
				})
			}
		} else {
			elearn.Log.Warn("Course fetch failed, using demo lessons",
				zap.String("course", courseID), zap.Error(err))
		}
	}

	svc := &flowService{client: rc.client}
	flow := elearn.NewQuizFlow(svc, courseID, lessons)
	if s.cfg.AI.APIKey != "" {
		flow.SetFallbackGenerator(elearn.NewOfflineGenerator(s.cfg.AI.APIKey, s.cfg.AI.Model))
	}
	if t, err := elearn.NewTranscript(s.cfg.Web.TranscriptDir, flowID); err == nil {
		flow.SetTranscript(t)
	}
	flow.OnCelebration(func(c elearn.Celebration) {
		s.setToast(flowID, c.Message)
	})

	entry = &flowEntry{flow: flow, svc: svc, courseID: courseID, course: courseTitle}
	s.mu.Lock()
	s.flows[flowID] = entry
	s.mu.Unlock()
	return entry
}

func hasCurrent(lessons []elearn.LessonRef) bool {
	for _, l := range lessons {
		if l.IsCurrent {
			return true
		}
	}
	return false
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, rc *reqContext) {
	ctx := r.Context()

	metrics, err := rc.client.DashboardMetrics(ctx)
	if s.sessionLost(w, r, err) {
		return
	}
	if err != nil {
		elearn.Log.Warn("Dashboard metrics unavailable", zap.Error(err))
		metrics = &elearn.DashboardMetrics{}
	}
	courses, err := rc.client.StudentCourses(ctx)
	if s.sessionLost(w, r, err) {
		return
	}
	if err != nil {
		elearn.Log.Warn("Enrolled courses unavailable", zap.Error(err))
	}
	history, err := rc.client.QuizHistory(ctx)
	if s.sessionLost(w, r, err) {
		return
	}
	if err != nil {
		history = elearn.DemoQuizHistory()
	}
	upcoming, _ := rc.client.UpcomingQuizzes(ctx)

	s.render(w, "dashboard", map[string]interface{}{
		"User":     rc.session.User,
		"Name":     rc.session.DisplayName(),
		"Metrics":  metrics,
		"Courses":  courses,
		"History":  history,
		"Upcoming": upcoming,
	})
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request, rc *reqContext) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	catalog, err := rc.client.Courses(r.Context(), page, 12)
	if s.sessionLost(w, r, err) {
		return
	}
	if err != nil {
		s.render(w, "courses", map[string]interface{}{
			"User":       rc.session.User,
			"Error":      "Could not load the course catalog. Please try again.",
			"Courses":    []elearn.Course(nil),
			"Page":       1,
			"TotalPages": 0,
		})
		return
	}

	totalPages := (catalog.Total + catalog.Limit - 1) / catalog.Limit
	s.render(w, "courses", map[string]interface{}{
		"User":       rc.session.User,
		"Courses":    catalog.Items,
		"Page":       catalog.Page,
		"TotalPages": totalPages,
	})
}

func (s *Server) handleCourse(w http.ResponseWriter, r *http.Request, rc *reqContext) {
	courseID := strings.TrimPrefix(r.URL.Path, "/courses/")
	if courseID == "" || strings.Contains(courseID, "/") {
		s.notFound(w)
		return
	}
	ctx := r.Context()

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Failed to parse form", http.StatusBadRequest)
			return
		}
		switch r.FormValue("action") {
		case "enroll":
			if err := rc.client.Enroll(ctx, courseID); err != nil {
				if s.sessionLost(w, r, err) {
					return
				}
				elearn.Log.Warn("Enroll failed", zap.String("course", courseID), zap.Error(err))
			}
		case "complete":
			lessonID := r.FormValue("lesson")
			if lessonID != "" {
				if err := rc.client.CompleteLesson(ctx, lessonID); err != nil {
					if s.sessionLost(w, r, err) {
						return
					}
					elearn.Log.Warn("Lesson completion failed", zap.String("lesson", lessonID), zap.Error(err))
				}
			}
		}
		http.Redirect(w, r, "/courses/"+courseID, http.StatusSeeOther)
		return
	}

	course, err := rc.client.Course(ctx, courseID)
	if s.sessionLost(w, r, err) {
		return
	}
	if err != nil {
		s.notFound(w)
		return
	}
	progress, _ := rc.client.CourseProgress(ctx, courseID)

	s.render(w, "course", map[string]interface{}{
		"User":     rc.session.User,
		"Course":   course,
		"Progress": progress,
	})
}

// questionView is one question with the learner's answer state, shaped
// for the quiz template.
type questionView struct {
	Number   int
	Question elearn.Question
	Answer   string
	Feedback *elearn.Feedback
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request, rc *reqContext) {
	entry := s.flowFor(w, r, rc, r.URL.Query().Get("course"))
	flow := entry.flow

	flowID, _ := rc.cookie.Values["flowID"].(string)
	difficulty, questionType := flow.Config()

	var questions []questionView
	for i, q := range flow.Questions() {
		questions = append(questions, questionView{
			Number:   i + 1,
			Question: q,
			Answer:   flow.Answer(q.ID),
			Feedback: flow.Feedback(q.ID),
		})
	}
	correct, total := flow.Score()

	s.render(w, "quiz", map[string]interface{}{
		"User":         rc.session.User,
		"State":        string(flow.State()),
		"CourseID":     entry.courseID,
		"CourseTitle":  entry.course,
		"Lessons":      flow.Lessons(),
		"Selected":     selectedSet(flow),
		"Difficulty":   string(difficulty),
		"QuestionType": string(questionType),
		"Questions":    questions,
		"Correct":      correct,
		"Total":        total,
		"Completed":    flow.Completed(),
		"Elapsed":      elearn.FormatElapsed(flow.Elapsed()),
		"Toast":        s.popToast(flowID),
	})
}

func selectedSet(flow *elearn.QuizFlow) map[string]bool {
	set := make(map[string]bool)
	for _, l := range flow.Lessons() {
		if flow.IsSelected(l.ID) || l.IsCurrent {
			set[l.ID] = true
		}
	}
	return set
}

func (s *Server) handleQuizAction(w http.ResponseWriter, r *http.Request, rc *reqContext) {
	if r.Method != http.MethodPost {
		s.notFound(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	entry := s.flowFor(w, r, rc, r.FormValue("course"))
	flow := entry.flow
	ctx := r.Context()

	action := strings.TrimPrefix(r.URL.Path, "/quiz/")
	switch action {
	case "toggle":
		flow.ToggleLesson(r.FormValue("lesson"))
	case "config":
		if d := elearn.Difficulty(r.FormValue("difficulty")); d != "" {
			flow.SetDifficulty(d)
		}
		if t := elearn.QuestionType(r.FormValue("type")); t != "" {
			flow.SetQuestionType(t)
		}
	case "generate":
		s.mu.Lock()
		entry.submitted = false
		s.mu.Unlock()
		if err := flow.Generate(ctx); err != nil {
			elearn.Log.Error("Quiz generation failed", zap.Error(err))
		}
	case "answer":
		flow.SetAnswer(r.FormValue("question"), r.FormValue("value"))
	case "check":
		questionID := r.FormValue("question")
		flow.SetAnswer(questionID, r.FormValue("value"))
		if _, err := flow.Check(ctx, questionID); err != nil {
			elearn.Log.Warn("Answer check failed", zap.String("question", questionID), zap.Error(err))
		}
		s.maybeSubmit(ctx, rc, entry)
	case "reveal":
		questionID := r.FormValue("question")
		if _, err := flow.Reveal(ctx, questionID); err != nil {
			elearn.Log.Warn("Answer reveal failed", zap.String("question", questionID), zap.Error(err))
		}
	case "reset":
		flow.Reset()
		s.mu.Lock()
		entry.submitted = false
		s.mu.Unlock()
	default:
		s.notFound(w)
		return
	}

	redirect := "/quiz"
	if entry.courseID != "" {
		redirect += "?course=" + entry.courseID
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// maybeSubmit records a finished quiz with the platform, at most once
// per generated quiz: re-checking a question on a completed quiz must
// not produce another attempt. Local (fallback) quizzes have nothing to
// submit; failures are logged and the learner keeps the in-page result.
func (s *Server) maybeSubmit(ctx context.Context, rc *reqContext, entry *flowEntry) {
	flow := entry.flow
	if !flow.Completed() || flow.QuizID() == "local" {
		return
	}
	s.mu.Lock()
	already := entry.submitted
	entry.submitted = true
	s.mu.Unlock()
	if already {
		return
	}
	var answers []elearn.AnswerSubmission
	for _, q := range flow.Questions() {
		answers = append(answers, elearn.AnswerSubmission{
			QuestionID: q.ID,
			Answer:     flow.Answer(q.ID),
		})
	}
	if _, err := rc.client.SubmitQuiz(ctx, flow.QuizID(), answers); err != nil {
		elearn.Log.Warn("Quiz submission failed", zap.String("quiz", flow.QuizID()), zap.Error(err))
	}
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request, rc *reqContext) {
	ctx := r.Context()

	stats, err := rc.client.QuizStatistics(ctx)
	if s.sessionLost(w, r, err) {
		return
	}
	if err != nil {
		elearn.Log.Warn("Quiz statistics unavailable", zap.Error(err))
		stats = &elearn.QuizStatistics{}
	}
	lessons, err := rc.client.CompletedLessons(ctx)
	if s.sessionLost(w, r, err) {
		return
	}
	summary, err := rc.client.CompletedLessonsSummary(ctx)
	if s.sessionLost(w, r, err) {
		return
	}
	if err != nil {
		summary = &elearn.CompletedSummary{}
	}

	s.render(w, "progress", map[string]interface{}{
		"User":    rc.session.User,
		"Stats":   stats,
		"Lessons": lessons,
		"Summary": summary,
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, rc *reqContext) {
	if r.Method == http.MethodGet {
		s.render(w, "profile", map[string]interface{}{
			"User":     rc.session.User,
			"Initials": elearn.Initials(rc.session.User.FirstName, rc.session.User.LastName),
		})
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()

	// Avatar uploads and field updates share the form; multipart means
	// a file may be attached.
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	if file, header, err := r.FormFile("avatar"); err == nil {
		defer file.Close()
		if _, err := rc.client.UploadAvatar(ctx, header.Filename, file); err != nil {
			if s.sessionLost(w, r, err) {
				return
			}
			elearn.Log.Warn("Avatar upload failed", zap.Error(err))
		}
	}

	update := elearn.ProfileUpdate{
		FirstName: strings.TrimSpace(r.FormValue("firstName")),
		LastName:  strings.TrimSpace(r.FormValue("lastName")),
		Email:     strings.TrimSpace(r.FormValue("email")),
	}
	initials := elearn.Initials(rc.session.User.FirstName, rc.session.User.LastName)
	if update.Email != "" && !elearn.ValidateEmail(update.Email) {
		s.render(w, "profile", map[string]interface{}{
			"User":     rc.session.User,
			"Initials": initials,
			"Error":    "Please enter a valid email address.",
		})
		return
	}
	if update != (elearn.ProfileUpdate{}) {
		if _, err := rc.client.UpdateProfile(ctx, update); err != nil {
			if s.sessionLost(w, r, err) {
				return
			}
			s.render(w, "profile", map[string]interface{}{
				"User":     rc.session.User,
				"Initials": initials,
				"Error":    "Profile update failed. Please try again.",
			})
			return
		}
	}
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
