package elearn

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FlowState is the quiz workflow's coarse state.
type FlowState string

const (
	StateSetup      FlowState = "setup"
	StateGenerating FlowState = "generating"
	StateActive     FlowState = "active"
)

// DefaultQuestionCount is the fixed number of questions requested per
// generation.
const DefaultQuestionCount = 6

// QuizService is the remote surface the workflow talks to. *Client
// implements it.
type QuizService interface {
	GenerateQuiz(ctx context.Context, req GenerationRequest) (*Quiz, error)
	CheckAnswer(ctx context.Context, quizID, questionID, answer string) (*CheckResult, error)
	RevealAnswer(ctx context.Context, quizID, questionID string) (*RevealResult, error)
}

// Generator produces questions locally. OfflineGenerator implements it;
// the workflow uses it as the first fallback when the platform call
// fails.
type Generator interface {
	GenerateQuestions(ctx context.Context, topic string, req GenerationRequest) ([]Question, error)
}

// CelebrationTier grades the one-time completion acknowledgment.
type CelebrationTier int

const (
	TierPlain   CelebrationTier = iota // below 66%
	TierNice                           // 66% and up
	TierAmazing                        // 80% and up
)

// Celebration is the one-time completion signal. It fires at most once
// per active quiz, when every question has a recorded correctness.
type Celebration struct {
	Score   int // percent
	Correct int
	Total   int
	Tier    CelebrationTier
	Message string
	Elapsed time.Duration
}

func celebrationFor(correct, total int, elapsed time.Duration) Celebration {
	pct := int(math.Round(float64(correct) / float64(total) * 100))
	timeMsg := ""
	if elapsed > 0 {
		timeMsg = " • Time: " + FormatElapsed(elapsed)
	}

	c := Celebration{Score: pct, Correct: correct, Total: total, Elapsed: elapsed}
	switch {
	case pct >= 80:
		c.Tier = TierAmazing
		c.Message = "Amazing! You scored 80%+ 🎉" + timeMsg
	case pct >= 66:
		c.Tier = TierNice
		c.Message = fmt.Sprintf("Nice! Score: %d%%%s", pct, timeMsg)
	default:
		c.Tier = TierPlain
		c.Message = fmt.Sprintf("Score: %d%%%s", pct, timeMsg)
	}
	return c
}

// QuizFlow drives one visit to the generation screen: lesson selection
// and configuration in Setup, a single generation request, then
// per-question answering with check and reveal until every question is
// graded. Returning to Setup discards questions, answers and feedback
// but keeps the chosen configuration.
type QuizFlow struct {
	svc      QuizService
	fallback Generator

	onCelebration func(Celebration)
	transcript    *Transcript

	mu           sync.Mutex
	state        FlowState
	gen          int // bumped on generate/reset; guards stale call results
	courseID     string
	lessons      []LessonRef
	selected     map[string]bool
	difficulty   Difficulty
	questionType QuestionType
	numQuestions int

	quizID     string
	local      bool // quiz came from a fallback; grade locally
	questions  []Question
	answers    map[string]string
	feedback   map[string]*Feedback
	celebrated bool
	startedAt  time.Time
}

// NewQuizFlow creates a workflow for one course. When lessons is empty
// the demo lesson list is used. The first current-flagged lesson (or
// the first lesson) is the current one and is always included in
// generation.
func NewQuizFlow(svc QuizService, courseID string, lessons []LessonRef) *QuizFlow {
	if len(lessons) == 0 {
		lessons = DemoLessons()
	}
	hasCurrent := false
	for _, l := range lessons {
		if l.IsCurrent {
			hasCurrent = true
			break
		}
	}
	if !hasCurrent {
		lessons[0].IsCurrent = true
	}
	return &QuizFlow{
		svc:          svc,
		state:        StateSetup,
		courseID:     courseID,
		lessons:      lessons,
		selected:     make(map[string]bool),
		difficulty:   DifficultyMedium,
		questionType: TypeMixed,
		numQuestions: DefaultQuestionCount,
		answers:      make(map[string]string),
		feedback:     make(map[string]*Feedback),
	}
}

// SetFallbackGenerator installs a local generator tried before the
// fixed fallback set when the platform call fails.
func (f *QuizFlow) SetFallbackGenerator(g Generator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = g
}

// OnCelebration registers the one-time completion callback.
func (f *QuizFlow) OnCelebration(fn func(Celebration)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onCelebration = fn
}

// SetTranscript attaches a transcript that records the session.
func (f *QuizFlow) SetTranscript(t *Transcript) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcript = t
}

// State returns the coarse workflow state.
func (f *QuizFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Lessons returns the lesson list shown in Setup.
func (f *QuizFlow) Lessons() []LessonRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]LessonRef, len(f.lessons))
	copy(out, f.lessons)
	return out
}

// ToggleLesson flips an additional lesson's selection. The current
// lesson is implicitly included and cannot be toggled.
func (f *QuizFlow) ToggleLesson(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lessons {
		if l.ID == id && l.IsCurrent {
			return
		}
	}
	if f.selected[id] {
		delete(f.selected, id)
	} else {
		f.selected[id] = true
	}
}

// IsSelected reports whether a lesson is part of the next generation,
// explicitly or as the current lesson.
func (f *QuizFlow) IsSelected(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selected[id] {
		return true
	}
	for _, l := range f.lessons {
		if l.ID == id {
			return l.IsCurrent
		}
	}
	return false
}

// SetDifficulty updates the configuration for the next generation.
func (f *QuizFlow) SetDifficulty(d Difficulty) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.difficulty = d
}

// SetQuestionType updates the configuration for the next generation.
func (f *QuizFlow) SetQuestionType(t QuestionType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questionType = t
}

// Config returns the current difficulty and question type.
func (f *QuizFlow) Config() (Difficulty, QuestionType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.difficulty, f.questionType
}

func (f *QuizFlow) currentLessonID() string {
	for _, l := range f.lessons {
		if l.IsCurrent {
			return l.ID
		}
	}
	return ""
}

// freezeRequest snapshots the configuration. The current lesson is
// always part of the request; an empty lesson list is never sent.
func (f *QuizFlow) freezeRequest() GenerationRequest {
	ids := make([]string, 0, len(f.selected)+1)
	for id := range f.selected {
		ids = append(ids, id)
	}
	if cur := f.currentLessonID(); cur != "" && !f.selected[cur] {
		ids = append(ids, cur)
	}
	sort.Strings(ids)
	return GenerationRequest{
		CourseID:          f.courseID,
		LessonIDs:         ids,
		Difficulty:        f.difficulty,
		QuestionType:      f.questionType,
		NumberOfQuestions: f.numQuestions,
	}
}

func (f *QuizFlow) topic() string {
	titles := make([]string, 0, 2)
	for _, l := range f.lessons {
		if l.IsCurrent || f.selected[l.ID] {
			titles = append(titles, l.Title)
		}
	}
	return strings.Join(titles, ", ")
}

// Generate issues the single generation request and moves the workflow
// to Active. A failing platform call never blocks the learner: the
// local generator is tried when configured, then the fixed fallback
// set. The only error returned is calling from the wrong state.
func (f *QuizFlow) Generate(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateSetup {
		f.mu.Unlock()
		return fmt.Errorf("cannot generate from state %q", f.state)
	}
	f.state = StateGenerating
	f.gen++
	gen := f.gen
	req := f.freezeRequest()
	topic := f.topic()
	fallbackGen := f.fallback
	transcript := f.transcript
	f.mu.Unlock()

	if transcript != nil {
		transcript.LogGeneration(req, topic)
	}

	quizID := ""
	local := false
	var questions []Question

	quiz, err := f.svc.GenerateQuiz(ctx, req)
	switch {
	case err == nil && len(quiz.Questions) > 0:
		quizID = quiz.ID
		questions = quiz.Questions
	default:
		if err != nil {
			Log.Warn("quiz generation failed, falling back", zap.Error(err))
		}
		local = true
		quizID = "local"
		if fallbackGen != nil {
			if qs, genErr := fallbackGen.GenerateQuestions(ctx, topic, req); genErr == nil && len(qs) > 0 {
				questions = qs
			} else if genErr != nil {
				Log.Warn("local generation failed, using fixed set", zap.Error(genErr))
			}
		}
		if len(questions) == 0 {
			questions = FallbackQuestions()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen != gen || f.state != StateGenerating {
		// The workflow was reset while the request was in flight;
		// ignore the stale result.
		return nil
	}
	f.quizID = quizID
	f.local = local
	f.questions = questions
	f.answers = make(map[string]string)
	f.feedback = make(map[string]*Feedback)
	f.celebrated = false
	f.startedAt = time.Now()
	f.state = StateActive
	return nil
}

// Questions returns the generated question list.
func (f *QuizFlow) Questions() []Question {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Question, len(f.questions))
	copy(out, f.questions)
	return out
}

// QuizID returns the active quiz id ("local" for fallback quizzes).
func (f *QuizFlow) QuizID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quizID
}

// SetAnswer records the learner's current answer for a question.
func (f *QuizFlow) SetAnswer(questionID, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[questionID] = value
}

// Answer returns the learner's current answer for a question.
func (f *QuizFlow) Answer(questionID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answers[questionID]
}

// Feedback returns a copy of the feedback recorded for a question, or
// nil if there is none yet.
func (f *QuizFlow) Feedback(questionID string) *Feedback {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb, ok := f.feedback[questionID]
	if !ok {
		return nil
	}
	out := *fb
	return &out
}

func (f *QuizFlow) question(id string) *Question {
	for i := range f.questions {
		if f.questions[i].ID == id {
			return &f.questions[i]
		}
	}
	return nil
}

// Check grades the current answer for one question and records the
// result. Remote quizzes are graded server-side; on any server trouble
// the stored correct answer grades the question locally instead, so a
// check always resolves. Re-checking replaces the grade and the check's
// explanation, but never clears fields written by a reveal.
func (f *QuizFlow) Check(ctx context.Context, questionID string) (*Feedback, error) {
	f.mu.Lock()
	if f.state != StateActive {
		f.mu.Unlock()
		return nil, fmt.Errorf("cannot check from state %q", f.state)
	}
	q := f.question(questionID)
	if q == nil {
		f.mu.Unlock()
		return nil, ErrQuestionNotFound
	}
	question := *q
	answer := strings.TrimSpace(f.answers[questionID])
	quizID := f.quizID
	local := f.local
	gen := f.gen
	f.mu.Unlock()

	isCorrect := false
	explanation := ""
	if local {
		isCorrect = CheckAnswer(&question, answer)
	} else {
		res, err := f.svc.CheckAnswer(ctx, quizID, questionID, answer)
		if err != nil {
			Log.Debug("server-side check failed, grading locally", zap.Error(err))
			isCorrect = CheckAnswer(&question, answer)
		} else {
			isCorrect = res.IsCorrect
			explanation = res.Explanation
		}
	}
	if explanation == "" {
		if isCorrect {
			explanation = "Great job!"
		} else {
			explanation = "Review the concept and try again."
		}
	}

	f.mu.Lock()
	if f.gen != gen || f.state != StateActive {
		f.mu.Unlock()
		return nil, nil
	}
	fb := f.feedback[questionID]
	if fb == nil {
		fb = &Feedback{}
		f.feedback[questionID] = fb
	}
	fb.IsCorrect = &isCorrect
	// CorrectAnswer is only ever written by a reveal; its presence
	// means the explanation belongs to the reveal and stays. Otherwise
	// each check replaces its own explanation.
	if fb.CorrectAnswer == "" {
		fb.Explanation = explanation
	}
	out := *fb
	transcript := f.transcript
	celebration, fire := f.maybeCelebrateLocked()
	onCelebration := f.onCelebration
	f.mu.Unlock()

	if transcript != nil {
		transcript.LogCheck(questionID, answer, isCorrect)
		if fire {
			transcript.LogCelebration(celebration)
		}
	}
	if fire && onCelebration != nil {
		onCelebration(celebration)
	}
	return &out, nil
}

// Reveal discloses the correct answer and an explanation without
// grading. Revealing is idempotent and never clears a recorded
// correctness.
func (f *QuizFlow) Reveal(ctx context.Context, questionID string) (*Feedback, error) {
	f.mu.Lock()
	if f.state != StateActive {
		f.mu.Unlock()
		return nil, fmt.Errorf("cannot reveal from state %q", f.state)
	}
	q := f.question(questionID)
	if q == nil {
		f.mu.Unlock()
		return nil, ErrQuestionNotFound
	}
	question := *q
	quizID := f.quizID
	local := f.local
	gen := f.gen
	f.mu.Unlock()

	correctAnswer := question.CorrectAnswer
	explanation := question.Explanation
	if !local {
		res, err := f.svc.RevealAnswer(ctx, quizID, questionID)
		if err != nil {
			Log.Debug("server-side reveal failed, using stored answer", zap.Error(err))
		} else {
			correctAnswer = res.CorrectAnswer
			explanation = res.Explanation
		}
	}

	f.mu.Lock()
	if f.gen != gen || f.state != StateActive {
		f.mu.Unlock()
		return nil, nil
	}
	fb := f.feedback[questionID]
	if fb == nil {
		fb = &Feedback{}
		f.feedback[questionID] = fb
	}
	fb.CorrectAnswer = correctAnswer
	if explanation != "" {
		fb.Explanation = explanation
	} else if fb.Explanation == "" {
		fb.Explanation = "Study this solution and try related questions."
	}
	out := *fb
	transcript := f.transcript
	f.mu.Unlock()

	if transcript != nil {
		transcript.LogReveal(questionID, correctAnswer)
	}
	return &out, nil
}

// maybeCelebrateLocked recomputes the completion signal. It fires at
// most once per active quiz: the flag stays set even when feedback
// changes afterwards. Caller holds f.mu.
func (f *QuizFlow) maybeCelebrateLocked() (Celebration, bool) {
	if f.celebrated || len(f.questions) == 0 {
		return Celebration{}, false
	}
	correct := 0
	for _, q := range f.questions {
		fb := f.feedback[q.ID]
		if fb == nil || fb.IsCorrect == nil {
			return Celebration{}, false
		}
		if *fb.IsCorrect {
			correct++
		}
	}
	f.celebrated = true
	var elapsed time.Duration
	if !f.startedAt.IsZero() {
		elapsed = time.Since(f.startedAt)
	}
	return celebrationFor(correct, len(f.questions), elapsed), true
}

// Completed reports whether every question has a recorded correctness.
func (f *QuizFlow) Completed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.questions) == 0 {
		return false
	}
	for _, q := range f.questions {
		fb := f.feedback[q.ID]
		if fb == nil || fb.IsCorrect == nil {
			return false
		}
	}
	return true
}

// Score returns the number of correctly answered questions and the
// total.
func (f *QuizFlow) Score() (correct, total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.questions {
		if fb := f.feedback[q.ID]; fb != nil && fb.IsCorrect != nil && *fb.IsCorrect {
			correct++
		}
	}
	return correct, len(f.questions)
}

// Elapsed returns the time since generation completed.
func (f *QuizFlow) Elapsed() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startedAt.IsZero() {
		return 0
	}
	return time.Since(f.startedAt)
}

// HistoryEntry summarizes the active quiz for the local history cache.
func (f *QuizFlow) HistoryEntry(title string) QuizHistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	correct := 0
	for _, q := range f.questions {
		if fb := f.feedback[q.ID]; fb != nil && fb.IsCorrect != nil && *fb.IsCorrect {
			correct++
		}
	}
	total := len(f.questions)
	score := 0
	if total > 0 {
		score = int(math.Round(float64(correct) / float64(total) * 100))
	}
	minutes := 0
	if !f.startedAt.IsZero() {
		minutes = int(time.Since(f.startedAt).Round(time.Minute) / time.Minute)
	}
	return QuizHistoryEntry{
		ID:               f.quizID,
		Title:            title,
		Score:            score,
		Total:            total,
		Correct:          correct,
		TakenAt:          time.Now(),
		TimeSpentMinutes: minutes,
	}
}

// Reset returns to Setup, discarding questions, answers, feedback and
// the celebration flag. Configuration and lesson selection survive.
func (f *QuizFlow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.state = StateSetup
	f.quizID = ""
	f.local = false
	f.questions = nil
	f.answers = make(map[string]string)
	f.feedback = make(map[string]*Feedback)
	f.celebrated = false
	f.startedAt = time.Time{}
}
