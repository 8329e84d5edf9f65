package elearn

import "time"

// Role is a platform account role.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Difficulty of a quiz or question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuestionType selects how a question is answered.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeShortAnswer    QuestionType = "short_answer"
	TypeMixed          QuestionType = "mixed"
)

// User is a platform account as returned by the API.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      Role      `json:"role"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Course as listed in the catalog and on the dashboard.
type Course struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	InstructorID     string   `json:"instructorId"`
	Instructor       *User    `json:"instructor,omitempty"`
	Thumbnail        string   `json:"thumbnail,omitempty"`
	Duration         int      `json:"duration"` // minutes
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	Lessons          []Lesson `json:"lessons,omitempty"`
	EnrolledStudents int      `json:"enrolledStudents"`
	Rating           float64  `json:"rating"`
}

// Lesson is a unit of course content.
type Lesson struct {
	ID          string `json:"id"`
	CourseID    string `json:"courseId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`
	VideoURL    string `json:"videoUrl,omitempty"`
	Duration    int    `json:"duration"` // minutes
	Order       int    `json:"order"`
	IsCompleted bool   `json:"isCompleted,omitempty"`
}

// LessonRef is the slim lesson view shown on the generation screen. The
// current lesson is always part of a generation request and cannot be
// deselected.
type LessonRef struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	IsCurrent bool   `json:"isCurrent"`
}

// Question is a single generated practice question. Options is present
// only for multiple-choice questions.
type Question struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Difficulty    Difficulty   `json:"difficulty"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation,omitempty"`
}

// Quiz is a generated set of questions for a course.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	CourseID    string     `json:"courseId"`
	Questions   []Question `json:"questions"`
	Difficulty  Difficulty `json:"difficulty,omitempty"`
	ScheduledAt time.Time  `json:"scheduledAt,omitempty"`
	Duration    int        `json:"duration,omitempty"` // minutes
	CreatedAt   time.Time  `json:"createdAt,omitempty"`
}

// GenerationRequest is the frozen configuration snapshot sent to the
// backend to produce a quiz. LessonIDs is never empty: when the learner
// selects nothing, the current lesson id is sent alone.
type GenerationRequest struct {
	CourseID          string       `json:"courseId"`
	LessonIDs         []string     `json:"lessonIds"`
	Difficulty        Difficulty   `json:"difficulty"`
	QuestionType      QuestionType `json:"questionType"`
	NumberOfQuestions int          `json:"numberOfQuestions"`
}

// Feedback accumulates what the learner has learned about one question.
// Fields are only ever added or overwritten with newer values; a check
// never clears reveal fields and a reveal never clears IsCorrect.
type Feedback struct {
	IsCorrect     *bool  `json:"isCorrect,omitempty"`
	CorrectAnswer string `json:"correctAnswer,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
}

// CheckResult is the grading outcome for one answer.
type CheckResult struct {
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation,omitempty"`
}

// RevealResult discloses a correct answer without grading.
type RevealResult struct {
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation,omitempty"`
}

// AnswerSubmission is one entry of a full quiz submission.
type AnswerSubmission struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// QuizAttempt is a recorded full-quiz submission.
type QuizAttempt struct {
	ID          string    `json:"id"`
	QuizID      string    `json:"quizId"`
	Score       int       `json:"score"`
	TotalPoints int       `json:"totalPoints"`
	CompletedAt time.Time `json:"completedAt"`
}

// DashboardMetrics are the headline numbers on the student dashboard.
type DashboardMetrics struct {
	EnrolledCourses  int     `json:"enrolledCourses"`
	LessonsCompleted int     `json:"lessonsCompleted"`
	QuizzesTaken     int     `json:"quizzesTaken"`
	AverageScore     float64 `json:"averageScore"`
}

// Progress summarizes a learner's standing in one course.
type Progress struct {
	CourseID         string    `json:"courseId"`
	CompletedLessons int       `json:"completedLessons"`
	TotalLessons     int       `json:"totalLessons"`
	CompletedQuizzes int       `json:"completedQuizzes"`
	TotalQuizzes     int       `json:"totalQuizzes"`
	AverageScore     float64   `json:"averageScore"`
	LastAccessedAt   time.Time `json:"lastAccessedAt"`
}

// CoursePage is one page of the course catalog.
type CoursePage struct {
	Items []Course `json:"items"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
}

// QuizHistoryEntry is one row of the learner's quiz history.
type QuizHistoryEntry struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	CourseTitle      string    `json:"courseTitle,omitempty"`
	Score            int       `json:"score"` // percent
	Total            int       `json:"total"`
	Correct          int       `json:"correct"`
	TakenAt          time.Time `json:"takenAt"`
	TimeSpentMinutes int       `json:"timeSpentMinutes,omitempty"`
}

// CoursePerformance is an aggregate score for one course.
type CoursePerformance struct {
	Course  string  `json:"course"`
	Average float64 `json:"average"`
	Quizzes int     `json:"quizzes"`
}

// TrendPoint is one labelled data point in a statistics series.
type TrendPoint struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// QuizStatistics is the learner's aggregate quiz performance.
type QuizStatistics struct {
	PerformanceByCourse []CoursePerformance `json:"performanceByCourse"`
	Trend               []TrendPoint        `json:"trend"`
	ByType              []TrendPoint        `json:"byType"`
	TotalTimeMinutes    int                 `json:"totalTimeMinutes"`
}

// CompletedLesson is one row of the completed-lessons view.
type CompletedLesson struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CourseTitle string    `json:"courseTitle"`
	CompletedAt time.Time `json:"completedAt"`
	TimeSpent   string    `json:"timeSpent,omitempty"`
	QuizScore   int       `json:"quizScore,omitempty"`
}

// CompletedSummary aggregates the completed-lessons view.
type CompletedSummary struct {
	TotalCompleted int     `json:"totalCompleted"`
	AverageScore   float64 `json:"averageScore"`
	TotalTime      string  `json:"totalTime"`
}

// ProfileUpdate is the editable subset of a user profile.
type ProfileUpdate struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}
