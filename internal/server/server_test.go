package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/linesync/internal/models"
	"github.com/desertthunder/linesync/internal/services"
	"github.com/desertthunder/linesync/internal/shared"
	"github.com/desertthunder/linesync/internal/tasks"
	"github.com/go-chi/chi/v5"
)

type stubSource struct {
	accountErr error
}

func (s stubSource) Fetch(_ context.Context, family services.Family, _ services.Params) ([]models.Record, error) {
	switch family {
	case services.FamilyCalls:
		return []models.Record{
			models.CallRecord{ID: "c1", Number: "+15551234567", Direction: models.DirectionInbound},
		}, nil
	case services.FamilyRecordings:
		return nil, shared.ErrAllEndpointsExhausted
	default:
		return nil, nil
	}
}

func (s stubSource) Account(context.Context) (models.Account, error) {
	if s.accountErr != nil {
		return models.Account{}, s.accountErr
	}
	return models.Account{UserID: "u-1", AccountID: 42, Source: models.AccountFromAPI}, nil
}

type stubSession struct{}

func (stubSession) IsAuthenticated() bool          { return true }
func (stubSession) Claims() *models.IdentityClaims { return nil }

func newTestServer(t *testing.T, src stubSource) (*httptest.Server, *tasks.Coordinator) {
	t.Helper()
	logger := shared.NewLogger(io.Discard)
	coord := tasks.NewCoordinator(tasks.Options{Source: src, Session: stubSession{}, Logger: logger})
	router := NewRouter(logger, []Handler{NewStatusHandler(coord, logger)})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, coord
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.StatusCode
}

func TestRouter(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		srv, _ := newTestServer(t, stubSource{})

		var body map[string]string
		if code := getJSON(t, srv.URL+"/healthz", &body); code != http.StatusOK {
			t.Errorf("expected 200, got %d", code)
		}
		if body["status"] != "ok" {
			t.Errorf("expected status ok, got %q", body["status"])
		}
	})

	t.Run("extra middleware", func(t *testing.T) {
		var seen string
		r := NewRouter(shared.NewLogger(io.Discard), nil, func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = r.Header.Get("X-Request-Id")
				next.ServeHTTP(w, r)
			})
		})
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Request-Id", "abc")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if seen != "abc" {
			t.Errorf("expected extra middleware to run, saw %q", seen)
		}
	})

	t.Run("recovers panics", func(t *testing.T) {
		r := NewRouter(shared.NewLogger(io.Discard), []Handler{panicHandler{}})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

type panicHandler struct{}

func (panicHandler) Routes(r chi.Router) {
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
}

func TestStatusHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("lists every collection", func(t *testing.T) {
		srv, coord := newTestServer(t, stubSource{})
		_ = coord.Refresh(ctx, tasks.Calls)
		_ = coord.Refresh(ctx, tasks.Recordings)

		var body struct {
			Collections []tasks.Status `json:"collections"`
		}
		if code := getJSON(t, srv.URL+"/status", &body); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
		if len(body.Collections) != 4 {
			t.Fatalf("expected 4 collections, got %d", len(body.Collections))
		}

		calls, recordings := body.Collections[0], body.Collections[1]
		if calls.Resource != tasks.Calls || calls.Count != 1 || calls.Stale {
			t.Errorf("unexpected calls status: %+v", calls)
		}
		if recordings.LastError == "" || !recordings.Stale {
			t.Errorf("expected recordings error and staleness, got %+v", recordings)
		}
	})

	t.Run("collection items", func(t *testing.T) {
		srv, coord := newTestServer(t, stubSource{})
		_ = coord.Refresh(ctx, tasks.Calls)

		var body struct {
			Status tasks.Status        `json:"status"`
			Items  []models.CallRecord `json:"items"`
		}
		if code := getJSON(t, srv.URL+"/collections/calls", &body); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
		if len(body.Items) != 1 || body.Items[0].ID != "c1" {
			t.Errorf("unexpected items: %+v", body.Items)
		}
		if body.Status.Count != 1 {
			t.Errorf("expected count 1, got %d", body.Status.Count)
		}
	})

	t.Run("collection status accepts dashes", func(t *testing.T) {
		srv, _ := newTestServer(t, stubSource{})

		var status tasks.Status
		if code := getJSON(t, srv.URL+"/collections/platform-numbers/status", &status); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
		if status.Resource != tasks.PlatformNumbers {
			t.Errorf("expected platform_numbers, got %s", status.Resource)
		}
	})

	t.Run("unknown collection", func(t *testing.T) {
		srv, _ := newTestServer(t, stubSource{})

		var body map[string]string
		if code := getJSON(t, srv.URL+"/collections/voicemail", &body); code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", code)
		}
		if !strings.Contains(body["error"], "unknown resource type") {
			t.Errorf("unexpected error: %q", body["error"])
		}
	})

	t.Run("account", func(t *testing.T) {
		srv, _ := newTestServer(t, stubSource{})

		var account models.Account
		if code := getJSON(t, srv.URL+"/account", &account); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
		if account.AccountID != 42 {
			t.Errorf("expected account 42, got %d", account.AccountID)
		}
	})

	t.Run("account unauthorized", func(t *testing.T) {
		srv, _ := newTestServer(t, stubSource{accountErr: shared.ErrUnauthorized})

		var body map[string]string
		if code := getJSON(t, srv.URL+"/account", &body); code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", code)
		}
	})

	t.Run("account upstream failure", func(t *testing.T) {
		srv, _ := newTestServer(t, stubSource{accountErr: errors.New("boom")})

		var body map[string]string
		if code := getJSON(t, srv.URL+"/account", &body); code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", code)
		}
	})
}

func TestStreamEvents(t *testing.T) {
	srv, coord := newTestServer(t, stubSource{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /events failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}

	// headers are flushed after the subscription is registered
	go func() { _ = coord.Refresh(context.Background(), tasks.Calls) }()

	scanner := bufio.NewScanner(resp.Body)
	var kinds []string
	for scanner.Scan() && len(kinds) < 2 {
		line := scanner.Text()
		if kind, ok := strings.CutPrefix(line, "event: "); ok {
			kinds = append(kinds, kind)
		}
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			var payload eventPayload
			if err := json.Unmarshal([]byte(data), &payload); err != nil {
				t.Fatalf("invalid event payload %q: %v", data, err)
			}
			if payload.Resource != tasks.Calls {
				t.Errorf("expected calls event, got %q", payload.Resource)
			}
		}
	}

	want := []string{"refresh_started", "refresh_succeeded"}
	if len(kinds) != 2 || kinds[0] != want[0] || kinds[1] != want[1] {
		t.Errorf("expected %v, got %v", want, kinds)
	}
}

func TestServerRun(t *testing.T) {
	s := New("127.0.0.1:0", http.NotFoundHandler(), shared.NewLogger(io.Discard))
	if s.Addr() != "127.0.0.1:0" {
		t.Errorf("unexpected addr %q", s.Addr())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
