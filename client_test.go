package elearn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// staticAuth is a scripted Authenticator for transport tests.
type staticAuth struct {
	token      atomic.Value // string
	refreshErr error
	refreshed  int32
	nextToken  string
}

func newStaticAuth(token string) *staticAuth {
	a := &staticAuth{}
	a.token.Store(token)
	return a
}

func (a *staticAuth) AccessToken() string { return a.token.Load().(string) }

func (a *staticAuth) Refresh(ctx context.Context) error {
	atomic.AddInt32(&a.refreshed, 1)
	if a.refreshErr != nil {
		return a.refreshErr
	}
	a.token.Store(a.nextToken)
	return nil
}

func TestClientDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dashboard/metrics" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{"success":true,"data":{"enrolledCourses":3,"lessonsCompleted":12,"quizzesTaken":5,"averageScore":81.5}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	c.BindAuth(newStaticAuth("tok-1"))

	metrics, err := c.DashboardMetrics(context.Background())
	if err != nil {
		t.Fatalf("DashboardMetrics: %v", err)
	}
	if metrics.EnrolledCourses != 3 || metrics.AverageScore != 81.5 {
		t.Errorf("metrics = %+v", metrics)
	}
}

func TestClientSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"success":false,"message":"course not found"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.Course(context.Background(), "nope")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != 404 || apiErr.Message != "course not found" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestClientRefreshesOnceOn401(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			if got := r.Header.Get("Authorization"); got != "Bearer stale" {
				t.Errorf("first attempt Authorization = %q", got)
			}
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"success":false,"message":"token expired"}`)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer fresh" {
			t.Errorf("replay Authorization = %q", got)
		}
		fmt.Fprint(w, `{"success":true,"data":{"enrolledCourses":1}}`)
	}))
	defer srv.Close()

	auth := newStaticAuth("stale")
	auth.nextToken = "fresh"
	c := NewClient(srv.URL, nil)
	c.BindAuth(auth)

	metrics, err := c.DashboardMetrics(context.Background())
	if err != nil {
		t.Fatalf("DashboardMetrics after refresh: %v", err)
	}
	if metrics.EnrolledCourses != 1 {
		t.Errorf("metrics = %+v", metrics)
	}
	if n := atomic.LoadInt32(&auth.refreshed); n != 1 {
		t.Errorf("refresh calls = %d, want 1", n)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("request attempts = %d, want 2", n)
	}
}

func TestClientReplayedRequestDoesNotRefreshAgain(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"success":false,"message":"still unauthorized"}`)
	}))
	defer srv.Close()

	auth := newStaticAuth("stale")
	auth.nextToken = "fresh"
	c := NewClient(srv.URL, nil)
	c.BindAuth(auth)

	_, err := c.DashboardMetrics(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("err = %v, want a 401 APIError", err)
	}
	if n := atomic.LoadInt32(&auth.refreshed); n != 1 {
		t.Errorf("refresh calls = %d, want exactly 1", n)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("request attempts = %d, want 2", n)
	}
}

func TestClientFailedRefreshMeansSessionExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"success":false,"message":"token expired"}`)
	}))
	defer srv.Close()

	auth := newStaticAuth("stale")
	auth.refreshErr = errors.New("refresh token rejected")
	c := NewClient(srv.URL, nil)
	c.BindAuth(auth)

	_, err := c.DashboardMetrics(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("err = %v, want ErrSessionExpired", err)
	}
}

func TestIsUnauthorized(t *testing.T) {
	if !IsUnauthorized(&APIError{Status: 401}) {
		t.Error("401 should be unauthorized")
	}
	if IsUnauthorized(&APIError{Status: 403}) {
		t.Error("403 is not unauthorized")
	}
	if IsUnauthorized(errors.New("plain")) {
		t.Error("plain errors are not unauthorized")
	}
	wrapped := fmt.Errorf("call failed: %w", &APIError{Status: 401})
	if !IsUnauthorized(wrapped) {
		t.Error("wrapped 401 should be unauthorized")
	}
}
