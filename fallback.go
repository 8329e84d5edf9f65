package elearn

import "time"

// Fallback content shown when the platform API errors or returns empty
// results. The generation fallback is a deliberate resilience behavior:
// a backend outage must never block a learner mid-study. The set is
// visibly generic on purpose.

// FallbackQuestions returns the fixed question set substituted when
// quiz generation fails.
func FallbackQuestions() []Question {
	return []Question{
		{
			ID:         "Q1",
			Text:       "What is the primary purpose of the backpropagation algorithm in neural networks?",
			Type:       TypeMultipleChoice,
			Difficulty: DifficultyHard,
			Options: []string{
				"To feed data forward through the network",
				"To calculate gradients and update weights",
				"To initialize weights randomly",
				"To evaluate the final output",
			},
			CorrectAnswer: "To calculate gradients and update weights",
		},
		{
			ID:            "Q2",
			Text:          "What mathematical concept is fundamental to backpropagation?",
			Type:          TypeShortAnswer,
			Difficulty:    DifficultyHard,
			CorrectAnswer: "Chain rule of calculus",
		},
		{
			ID:         "Q3",
			Text:       "In which direction does backpropagation propagate errors?",
			Type:       TypeMultipleChoice,
			Difficulty: DifficultyHard,
			Options: []string{
				"From input to output",
				"From output to input",
				"In random directions",
				"Only within hidden layers",
			},
			CorrectAnswer: "From output to input",
		},
	}
}

// DemoLessons returns the lesson list used when a course carries no
// lessons of its own. The first lesson is the current one.
func DemoLessons() []LessonRef {
	return []LessonRef{
		{ID: "1", Title: "Backpropagation", IsCurrent: true},
		{ID: "2", Title: "Introduction to Machine Learning"},
		{ID: "3", Title: "Types of Machine Learning"},
		{ID: "4", Title: "Supervised Learning Basics"},
		{ID: "5", Title: "Neural Networks Basics"},
	}
}

// DemoQuizHistory returns placeholder recent results for an empty
// history view.
func DemoQuizHistory() []QuizHistoryEntry {
	now := time.Now()
	return []QuizHistoryEntry{
		{ID: "r1", Title: "Supervised Learning", Score: 85, TakenAt: now, TimeSpentMinutes: 12},
		{ID: "r2", Title: "Neural Networks Basics", Score: 92, TakenAt: now.Add(-24 * time.Hour), TimeSpentMinutes: 18},
		{ID: "r3", Title: "Data Preprocessing", Score: 78, TakenAt: now.Add(-48 * time.Hour), TimeSpentMinutes: 10},
	}
}
