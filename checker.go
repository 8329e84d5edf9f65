package elearn

import "strings"

// normalizeAnswer lower-cases, collapses inner whitespace and trims, so
// "  Chain   Rule " and "chain rule" compare equal.
func normalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// CheckAnswer grades an answer locally. Multiple choice requires the
// exact stored option; short answers pass when the normalized response
// contains the normalized correct answer or vice versa. The leniency is
// intentional: generated answers vary in phrasing, and a contained
// match is treated as close enough.
func CheckAnswer(q *Question, answer string) bool {
	answer = strings.TrimSpace(answer)
	if q.Type == TypeMultipleChoice {
		return answer == q.CorrectAnswer
	}

	a := normalizeAnswer(answer)
	c := normalizeAnswer(q.CorrectAnswer)
	if a == "" || c == "" {
		return false
	}
	return strings.Contains(a, c) || strings.Contains(c, a)
}
