package elearn

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FormatDuration renders minutes as "2h 5m", or "35m" under an hour.
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// FormatElapsed renders a duration as "3m 42s" for score messages.
func FormatElapsed(d time.Duration) string {
	s := int(math.Max(0, math.Round(d.Seconds())))
	return fmt.Sprintf("%dm %ds", s/60, s%60)
}

// CalculateProgress returns completed/total as a rounded percentage.
func CalculateProgress(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// Initials returns the upper-cased first letters of both names.
func Initials(first, last string) string {
	var b strings.Builder
	for _, s := range []string{first, last} {
		for _, r := range s {
			b.WriteString(strings.ToUpper(string(r)))
			break
		}
	}
	return b.String()
}

// TruncateText cuts s to max runes and appends an ellipsis.
func TruncateText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// NewID returns a fresh unique identifier.
func NewID() string {
	return uuid.NewString()
}

// Debounce returns a function that delays fn until d has elapsed with
// no further calls.
func Debounce(d time.Duration, fn func()) func() {
	var mu sync.Mutex
	var timer *time.Timer
	return func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, fn)
	}
}

// Throttle returns a function that invokes fn at most once per d;
// calls inside the window are dropped.
func Throttle(d time.Duration, fn func()) func() {
	var mu sync.Mutex
	var last time.Time
	return func() {
		mu.Lock()
		defer mu.Unlock()
		if now := time.Now(); now.Sub(last) >= d {
			last = now
			fn()
		}
	}
}
