package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// Call is one request received by FakeAPI.
type Call struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// DecodeBody unmarshals the recorded JSON body into dst.
func (c Call) DecodeBody(dst any) error {
	return json.Unmarshal(c.Body, dst)
}

// FakeAPI is an httptest backend that records calls per "METHOD /path".
// Unregistered routes answer 404 with a JSON message.
type FakeAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    []Call
}

// NewFakeAPI starts a FakeAPI that is closed when the test ends.
func NewFakeAPI(t TestingTB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{handlers: make(map[string]http.HandlerFunc)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake backend.
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

// Handle registers h for pattern ("GET /authorization/roles").
func (f *FakeAPI) Handle(pattern string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[pattern] = h
}

// JSON registers a handler answering status with body encoded as JSON.
func (f *FakeAPI) JSON(pattern string, status int, body any) {
	f.Handle(pattern, func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, status, body)
	})
}

// Sequence registers handlers served in order; the last one repeats.
func (f *FakeAPI) Sequence(pattern string, hs ...http.HandlerFunc) {
	var (
		mu sync.Mutex
		i  int
	)
	f.Handle(pattern, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		h := hs[min(i, len(hs)-1)]
		i++
		mu.Unlock()
		h(w, r)
	})
}

// Calls returns the recorded calls matching pattern; "" returns all.
func (f *FakeAPI) Calls(pattern string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, 0, len(f.calls))
	for _, c := range f.calls {
		if pattern == "" || c.Method+" "+c.Path == pattern {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of calls matching pattern.
func (f *FakeAPI) Count(pattern string) int {
	return len(f.Calls(pattern))
}

// Reset forgets recorded calls, keeping handlers.
func (f *FakeAPI) Reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	key := r.Method + " " + r.URL.Path

	f.mu.Lock()
	f.calls = append(f.calls, Call{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	h, ok := f.handlers[key]
	f.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]string{"message": "not found: " + key})
		return
	}
	h(w, r)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
