package elearn

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := OpenLocalStore(filepath.Join(t.TempDir(), "elearn.db"))
	if err != nil {
		t.Fatalf("OpenLocalStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLocalStoreCredentialRoundTrip(t *testing.T) {
	store := openTestStore(t)
	user := &User{ID: "u1", Email: "jane@example.com", FirstName: "Jane", Role: RoleStudent}

	if err := store.SaveCredentials("access-1", "refresh-1", user); err != nil {
		t.Fatalf("SaveCredentials: %v", err)
	}
	access, refresh, got, err := store.LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if access != "access-1" || refresh != "refresh-1" {
		t.Errorf("tokens = %q/%q", access, refresh)
	}
	if got == nil || got.ID != "u1" || got.Email != "jane@example.com" {
		t.Errorf("user = %+v", got)
	}

	// Saving again overwrites in place.
	if err := store.SaveCredentials("access-2", "refresh-2", user); err != nil {
		t.Fatalf("SaveCredentials (overwrite): %v", err)
	}
	access, refresh, _, err = store.LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if access != "access-2" || refresh != "refresh-2" {
		t.Errorf("tokens after overwrite = %q/%q", access, refresh)
	}
}

func TestLocalStoreEmptyLoad(t *testing.T) {
	store := openTestStore(t)
	access, refresh, user, err := store.LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if access != "" || refresh != "" || user != nil {
		t.Errorf("empty store returned %q/%q/%+v", access, refresh, user)
	}
}

func TestLocalStoreClearCredentials(t *testing.T) {
	store := openTestStore(t)
	user := &User{ID: "u1", Email: "jane@example.com"}
	if err := store.SaveCredentials("a", "r", user); err != nil {
		t.Fatalf("SaveCredentials: %v", err)
	}
	if err := store.ClearCredentials(); err != nil {
		t.Fatalf("ClearCredentials: %v", err)
	}
	access, _, got, err := store.LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if access != "" || got != nil {
		t.Error("credentials should be gone after clear")
	}
}

func TestLocalStorePartialTripleCountsAsAbsent(t *testing.T) {
	store := openTestStore(t)
	// Write only one of the three entries behind the store's back.
	if _, err := store.db.Exec(
		"INSERT INTO credentials (key, value) VALUES (?, ?)", keyAccessToken, "orphan",
	); err != nil {
		t.Fatalf("seed: %v", err)
	}

	access, refresh, user, err := store.LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if access != "" || refresh != "" || user != nil {
		t.Error("a partial triple must read as absent")
	}

	// The orphan entry must also have been cleared.
	var count int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM credentials").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected the partial triple to be cleared, %d rows remain", count)
	}
}

func TestLocalStoreCorruptUserCountsAsAbsent(t *testing.T) {
	store := openTestStore(t)
	for key, value := range map[string]string{
		keyAccessToken:  "a",
		keyRefreshToken: "r",
		keyUser:         "{not json",
	} {
		if _, err := store.db.Exec("INSERT INTO credentials (key, value) VALUES (?, ?)", key, value); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	access, _, user, err := store.LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if access != "" || user != nil {
		t.Error("a corrupt user entry must invalidate the triple")
	}
}

func TestLocalStoreQuizHistory(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	entries := []QuizHistoryEntry{
		{ID: "h1", Title: "Backpropagation", Score: 67, Total: 3, Correct: 2, TakenAt: now.Add(-time.Hour), TimeSpentMinutes: 5},
		{ID: "h2", Title: "Neural Networks Basics", Score: 100, Total: 3, Correct: 3, TakenAt: now, TimeSpentMinutes: 4},
	}
	for _, e := range entries {
		if err := store.RecordQuizResult(e); err != nil {
			t.Fatalf("RecordQuizResult(%s): %v", e.ID, err)
		}
	}

	got, err := store.RecentQuizzes(10)
	if err != nil {
		t.Fatalf("RecentQuizzes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "h2" || got[1].ID != "h1" {
		t.Errorf("expected newest first, got %s then %s", got[0].ID, got[1].ID)
	}
	if got[0].Score != 100 || got[0].Correct != 3 {
		t.Errorf("entry = %+v", got[0])
	}

	limited, err := store.RecentQuizzes(1)
	if err != nil {
		t.Fatalf("RecentQuizzes(1): %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "h2" {
		t.Errorf("limited = %+v", limited)
	}
}

func TestLocalStoreLocalQuizGetsFreshID(t *testing.T) {
	store := openTestStore(t)
	e := QuizHistoryEntry{ID: "local", Title: "Fallback Quiz", Score: 33, Total: 3, Correct: 1, TakenAt: time.Now()}
	if err := store.RecordQuizResult(e); err != nil {
		t.Fatalf("RecordQuizResult: %v", err)
	}
	if err := store.RecordQuizResult(e); err != nil {
		t.Fatalf("RecordQuizResult (again): %v", err)
	}

	got, err := store.RecentQuizzes(0)
	if err != nil {
		t.Fatalf("RecentQuizzes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 distinct rows for local quizzes", len(got))
	}
	for _, e := range got {
		if e.ID == "local" || e.ID == "" {
			t.Errorf("local quiz kept placeholder id %q", e.ID)
		}
	}
}
