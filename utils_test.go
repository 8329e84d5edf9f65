package elearn

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0m"},
		{35, "35m"},
		{59, "59m"},
		{60, "1h 0m"},
		{125, "2h 5m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.minutes); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0m 0s"},
		{42 * time.Second, "0m 42s"},
		{3*time.Minute + 42*time.Second, "3m 42s"},
		{-5 * time.Second, "0m 0s"},
	}
	for _, tt := range tests {
		if got := FormatElapsed(tt.d); got != tt.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestCalculateProgress(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 10, 0},
		{5, 10, 50},
		{1, 3, 33},
		{2, 3, 67},
		{10, 10, 100},
		{3, 0, 0},
	}
	for _, tt := range tests {
		if got := CalculateProgress(tt.completed, tt.total); got != tt.want {
			t.Errorf("CalculateProgress(%d, %d) = %d, want %d", tt.completed, tt.total, got, tt.want)
		}
	}
}

func TestInitials(t *testing.T) {
	tests := []struct {
		first, last, want string
	}{
		{"Jane", "Doe", "JD"},
		{"jane", "doe", "JD"},
		{"Jane", "", "J"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := Initials(tt.first, tt.last); got != tt.want {
			t.Errorf("Initials(%q, %q) = %q, want %q", tt.first, tt.last, got, tt.want)
		}
	}
}

func TestTruncateText(t *testing.T) {
	if got := TruncateText("hello world", 5); got != "hello..." {
		t.Errorf("got %q, want %q", got, "hello...")
	}
	if got := TruncateText("short", 10); got != "short" {
		t.Errorf("got %q, want %q", got, "short")
	}
	if got := TruncateText("héllo wörld", 5); got != "héllo..." {
		t.Errorf("got %q, want %q", got, "héllo...")
	}
}

func TestNewIDUnique(t *testing.T) {
	a, b := NewID(), NewID()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty ids, got %q and %q", a, b)
	}
}

func TestDebounce(t *testing.T) {
	var calls int32
	debounced := Debounce(20*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })
	for i := 0; i < 5; i++ {
		debounced()
	}
	time.Sleep(60 * time.Millisecond)
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 call after burst, got %d", n)
	}
}

func TestThrottle(t *testing.T) {
	var calls int32
	throttled := Throttle(50*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })
	for i := 0; i < 5; i++ {
		throttled()
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected only the first call in the window, got %d", n)
	}
}
