package elearn

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Transcript records one quiz session to a file so a learner can review
// what was asked, what they answered and how it was graded.
type Transcript struct {
	file *os.File
	mu   sync.Mutex
}

// NewTranscript creates a transcript file under dir, named after the
// session id.
func NewTranscript(dir, sessionID string) (*Transcript, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s.log", sessionID))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcript file: %w", err)
	}

	t := &Transcript{file: file}
	t.Logf("=== Quiz Session ===\n")
	t.Logf("Session: %s\n", sessionID)
	t.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	t.Logf("====================\n\n")
	return t, nil
}

// Logf writes a timestamped entry.
func (t *Transcript) Logf(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(t.file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
	t.file.Sync()
}

// LogGeneration records the frozen generation request.
func (t *Transcript) LogGeneration(req GenerationRequest, topic string) {
	t.Logf("Generating %d questions (%s, %s)\n", req.NumberOfQuestions, req.Difficulty, req.QuestionType)
	t.Logf("Course: %s, Lessons: %s\n", req.CourseID, strings.Join(req.LessonIDs, ", "))
	if topic != "" {
		t.Logf("Topic: %s\n", topic)
	}
}

// LogCheck records one graded answer.
func (t *Transcript) LogCheck(questionID, answer string, correct bool) {
	verdict := "INCORRECT"
	if correct {
		verdict = "CORRECT"
	}
	t.Logf("Question %s: answered %q - %s\n", questionID, answer, verdict)
}

// LogReveal records a revealed answer.
func (t *Transcript) LogReveal(questionID, correctAnswer string) {
	t.Logf("Question %s: revealed - %q\n", questionID, correctAnswer)
}

// LogCelebration records the final score line.
func (t *Transcript) LogCelebration(c Celebration) {
	t.Logf("Completed: %d/%d correct (%d%%) in %s\n", c.Correct, c.Total, c.Score, FormatElapsed(c.Elapsed))
}

// Close finishes and closes the transcript file.
func (t *Transcript) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file == nil {
		return nil
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(t.file, "[%s] === Session End ===\n", timestamp)
	err := t.file.Close()
	t.file = nil
	return err
}
