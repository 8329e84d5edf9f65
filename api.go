package elearn

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// Dashboard endpoints.

// DashboardMetrics fetches the headline numbers for the dashboard.
func (c *Client) DashboardMetrics(ctx context.Context) (*DashboardMetrics, error) {
	var out DashboardMetrics
	if err := c.get(ctx, "/dashboard/metrics", &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}

// StudentCourses fetches the learner's enrolled courses.
func (c *Client) StudentCourses(ctx context.Context) ([]Course, error) {
	var out []Course
	if err := c.get(ctx, "/dashboard/courses", &out, requestOptions{}); err != nil {
		return nil, err
	}
	return out, nil
}

// UpcomingQuizzes fetches scheduled quizzes for the dashboard.
func (c *Client) UpcomingQuizzes(ctx context.Context) ([]Quiz, error) {
	var out []Quiz
	if err := c.get(ctx, "/dashboard/quizzes", &out, requestOptions{}); err != nil {
		return nil, err
	}
	return out, nil
}

// Course endpoints.

// Courses fetches one page of the course catalog.
func (c *Client) Courses(ctx context.Context, page, limit int) (*CoursePage, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))
	var out CoursePage
	if err := c.get(ctx, "/courses?"+q.Encode(), &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Course fetches a single course with its lessons.
func (c *Client) Course(ctx context.Context, id string) (*Course, error) {
	var out Course
	if err := c.get(ctx, "/courses/"+url.PathEscape(id), &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Enroll enrolls the current user in a course.
func (c *Client) Enroll(ctx context.Context, courseID string) error {
	return c.post(ctx, "/courses/"+url.PathEscape(courseID)+"/enroll", nil, nil, requestOptions{})
}

// CourseProgress fetches the learner's progress in one course.
func (c *Client) CourseProgress(ctx context.Context, courseID string) (*Progress, error) {
	var out Progress
	if err := c.get(ctx, "/courses/"+url.PathEscape(courseID)+"/progress", &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Lesson endpoints.

// Lesson fetches a single lesson.
func (c *Client) Lesson(ctx context.Context, id string) (*Lesson, error) {
	var out Lesson
	if err := c.get(ctx, "/lessons/"+url.PathEscape(id), &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteLesson marks a lesson completed.
func (c *Client) CompleteLesson(ctx context.Context, id string) error {
	return c.post(ctx, "/lessons/"+url.PathEscape(id)+"/complete", nil, nil, requestOptions{})
}

// CompletedLessons fetches the completed-lessons view.
func (c *Client) CompletedLessons(ctx context.Context) ([]CompletedLesson, error) {
	var out []CompletedLesson
	if err := c.get(ctx, "/lessons/completed", &out, requestOptions{}); err != nil {
		return nil, err
	}
	return out, nil
}

// CompletedLessonsSummary fetches the completed-lessons aggregate.
func (c *Client) CompletedLessonsSummary(ctx context.Context) (*CompletedSummary, error) {
	var out CompletedSummary
	if err := c.get(ctx, "/lessons/completed/summary", &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Quiz endpoints.

// GenerateQuiz asks the platform to generate a quiz from the frozen
// request. The QuizFlow falls back to local generation when this fails.
func (c *Client) GenerateQuiz(ctx context.Context, req GenerationRequest) (*Quiz, error) {
	var out Quiz
	if err := c.post(ctx, "/quiz/generate", req, &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Quiz fetches a quiz by id.
func (c *Client) Quiz(ctx context.Context, id string) (*Quiz, error) {
	var out Quiz
	if err := c.get(ctx, "/quiz/"+url.PathEscape(id), &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitQuiz submits a full answer sheet for grading.
func (c *Client) SubmitQuiz(ctx context.Context, quizID string, answers []AnswerSubmission) (*QuizAttempt, error) {
	body := map[string]any{"answers": answers}
	var out QuizAttempt
	if err := c.post(ctx, "/quiz/"+url.PathEscape(quizID)+"/submit", body, &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckAnswer grades a single answer server-side.
func (c *Client) CheckAnswer(ctx context.Context, quizID, questionID, answer string) (*CheckResult, error) {
	path := "/quiz/" + url.PathEscape(quizID) + "/questions/" + url.PathEscape(questionID) + "/answer"
	body := map[string]string{"answer": answer}
	var out CheckResult
	if err := c.post(ctx, path, body, &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevealAnswer discloses the correct answer without grading.
func (c *Client) RevealAnswer(ctx context.Context, quizID, questionID string) (*RevealResult, error) {
	path := "/quiz/" + url.PathEscape(quizID) + "/questions/" + url.PathEscape(questionID) + "/reveal"
	var out RevealResult
	if err := c.get(ctx, path, &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}

// QuizHistory fetches the learner's past quiz results.
func (c *Client) QuizHistory(ctx context.Context) ([]QuizHistoryEntry, error) {
	var out []QuizHistoryEntry
	if err := c.get(ctx, "/quiz/history", &out, requestOptions{}); err != nil {
		return nil, err
	}
	return out, nil
}

// QuizStatistics fetches aggregate quiz performance.
func (c *Client) QuizStatistics(ctx context.Context) (*QuizStatistics, error) {
	var out QuizStatistics
	if err := c.get(ctx, "/quiz/statistics", &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile endpoints.

// UpdateProfile updates the editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	var out User
	if err := c.put(ctx, "/user/profile", update, &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadAvatar uploads a new avatar image and returns its URL.
func (c *Client) UploadAvatar(ctx context.Context, filename string, r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read avatar: %w", err)
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := c.upload(ctx, "/user/avatar", "avatar", filename, content, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}
