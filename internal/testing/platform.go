package testing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// FakePlatform is a scripted telephony REST API. Unscripted paths answer 404.
//
// Every request is counted per path before it is dispatched, so tests can assert call counts.
type FakePlatform struct {
	Server *httptest.Server
	Router chi.Router

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	hits     map[string]int
	tokens   []string
}

// NewFakePlatform starts a [FakePlatform]; it is closed when the test ends.
func NewFakePlatform(t testing.TB) *FakePlatform {
	t.Helper()
	f := &FakePlatform{
		handlers: map[string]http.HandlerFunc{},
		hits:     map[string]int{},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(f.count)
	r.HandleFunc("/*", f.dispatch)
	f.Router = r

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake platform.
func (f *FakePlatform) URL() string { return f.Server.URL }

// Respond scripts a fixed status and raw body for path.
func (f *FakePlatform) Respond(path string, status int, body string) {
	f.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

// HandleFunc scripts a custom handler for path.
func (f *FakePlatform) HandleFunc(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

// Hits returns how many requests path received.
func (f *FakePlatform) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

// TotalHits returns the number of requests received on any path.
func (f *FakePlatform) TotalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.hits {
		total += n
	}
	return total
}

// BearerTokens returns the bearer tokens presented, in order.
func (f *FakePlatform) BearerTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

func (f *FakePlatform) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.tokens = append(f.tokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakePlatform) dispatch(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	h, ok := f.handlers[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]any{"status": "error", "message": "not found"})
		return
	}
	h(w, r)
}
