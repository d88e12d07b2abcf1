package ovenflow

import (
	"fmt"
	"net/http"
	"sync"
)

// StubBehavior controls how the stub kitchen backend responds. The modes
// mirror failure patterns seen against real order-acceptance systems.
type StubBehavior int

const (
	// StubHealthy returns the canned acceptance receipt.
	StubHealthy StubBehavior = iota
	// StubServerError always responds 500.
	StubServerError
	// StubMalformed responds 200 with a schema-invalid payload.
	StubMalformed
	// StubRejectPost fails POST requests with 502 but serves GET, so only
	// the client's fallback path succeeds.
	StubRejectPost
	// StubDrop closes the connection without a response, simulating a
	// transport-level failure on every method.
	StubDrop
)

// StubKitchen is an http.Handler standing in for the kitchen's
// order-acceptance endpoint. It ignores POST body content and returns canned
// data. Behavior can be switched at runtime and the first N requests can be
// forced to fail to exercise retry paths.
type StubKitchen struct {
	mu        sync.Mutex
	behavior  StubBehavior
	failFirst int
	requests  int
	prep      int
}

// NewStubKitchen creates a healthy stub quoting a 25 minute prep time.
func NewStubKitchen() *StubKitchen {
	return &StubKitchen{prep: 25}
}

// SetBehavior switches the response mode.
func (s *StubKitchen) SetBehavior(b StubBehavior) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.behavior = b
}

// FailFirst makes the next n requests respond 503 regardless of behavior.
func (s *StubKitchen) FailFirst(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFirst = n
}

// Requests reports how many requests the stub has seen.
func (s *StubKitchen) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// ServeHTTP implements http.Handler.
func (s *StubKitchen) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests++
	seq := s.requests
	behavior := s.behavior
	forceFail := s.failFirst > 0
	if forceFail {
		s.failFirst--
	}
	prep := s.prep
	s.mu.Unlock()

	if r.URL.Path != KitchenPath {
		http.NotFound(w, r)
		return
	}
	if forceFail {
		http.Error(w, "kitchen warming up", http.StatusServiceUnavailable)
		return
	}

	switch behavior {
	case StubServerError:
		http.Error(w, "oven on fire", http.StatusInternalServerError)
		return
	case StubMalformed:
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"","message":"??"}`)
		return
	case StubRejectPost:
		if r.Method == http.MethodPost {
			http.Error(w, "POST handler broken", http.StatusBadGateway)
			return
		}
	case StubDrop:
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				conn.Close() //nolint:errcheck
				return
			}
		}
		http.Error(w, "connection dropped", http.StatusServiceUnavailable)
		return
	case StubHealthy:
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"accepted","message":"Order received by the kitchen","kitchenReference":"KIT-%06d","estimatedPrepMinutes":%d}`, seq, prep)
}
