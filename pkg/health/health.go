// Package health implements Kubernetes-style liveness and readiness probes.
//
// Registered checks run on a shared interval in background goroutines. A
// check flips to unhealthy only after FailAfter consecutive failures and
// recovers after RecoverAfter consecutive successes, so a single slow probe
// does not bounce the pod.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// Check describes a single probe. Zero FailAfter and RecoverAfter default to
// 3 and 1.
type Check struct {
	Name         string
	Timeout      time.Duration
	Probe        CheckFunc
	FailAfter    int
	RecoverAfter int
}

// state is the runtime companion of a Check.
//
// poll() runs on a single goroutine per check, so the consecutive counters
// need no locking. healthy and lastErr are read by HTTP handlers from
// arbitrary goroutines and use atomics.
type state struct {
	check Check

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func newState(c Check) *state {
	if c.FailAfter <= 0 {
		c.FailAfter = 3
	}
	if c.RecoverAfter <= 0 {
		c.RecoverAfter = 1
	}
	s := &state{check: c}
	s.healthy.Store(true)
	return s
}

// poll executes the probe once and applies the thresholds.
func (s *state) poll(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, s.check.Timeout)
	defer cancel()

	err := s.check.Probe(probeCtx)
	s.lastErr.Store(&err)

	if err != nil {
		s.oks = 0
		s.fails++
		if s.fails >= s.check.FailAfter {
			s.healthy.Store(false)
		}
		return
	}
	s.fails = 0
	s.oks++
	if s.oks >= s.check.RecoverAfter {
		s.healthy.Store(true)
	}
}

func (s *state) failure() (string, bool) {
	if s.healthy.Load() {
		return "", false
	}
	if p := s.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error(), true
	}
	return "check is unhealthy", true
}

// Tracker owns the registered probes and the manual serving flag.
type Tracker struct {
	serving atomic.Bool

	mu     sync.RWMutex
	live   []*state
	ready  []*state
	cancel context.CancelFunc
}

// NewTracker creates a Tracker in the not-serving state. Call
// SetServing(true) once initialization is complete.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Liveness registers a probe for /livez. Liveness failures mean the process
// itself is broken (leaked goroutines, deadlock) and should be restarted.
func (t *Tracker) Liveness(c Check) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live = append(t.live, newState(c))
}

// Readiness registers a probe for /readyz. Readiness failures mean a
// dependency (database, cache) is unavailable and traffic should be held.
func (t *Tracker) Readiness(c Check) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ready = append(t.ready, newState(c))
}

// Run starts one polling goroutine per registered check. Register all checks
// before calling Run.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.cancel = cancel
	states := make([]*state, 0, len(t.live)+len(t.ready))
	states = append(states, t.live...)
	states = append(states, t.ready...)
	t.mu.Unlock()

	for _, s := range states {
		go func(s *state) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			s.poll(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.poll(ctx)
				}
			}
		}(s)
	}
}

// Shutdown stops the polling goroutines. Safe to call more than once.
func (t *Tracker) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// SetServing flips the manual readiness gate: true after startup, false at
// the beginning of graceful shutdown.
func (t *Tracker) SetServing(serving bool) {
	t.serving.Store(serving)
}

// Serving reports whether the service should receive traffic: the manual
// gate is open and every readiness probe passes.
func (t *Tracker) Serving() bool {
	if !t.serving.Load() {
		return false
	}

	t.mu.RLock()
	ready := t.ready
	t.mu.RUnlock()

	for _, s := range ready {
		if !s.healthy.Load() {
			return false
		}
	}
	return true
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveHandler serves /livez: 200 while every liveness probe passes, 503 with
// per-check failures otherwise.
func (t *Tracker) LiveHandler(w http.ResponseWriter, _ *http.Request) {
	t.mu.RLock()
	states := make([]*state, len(t.live))
	copy(states, t.live)
	t.mu.RUnlock()

	writeProbe(w, failures(states))
}

// ReadyHandler serves /readyz: 200 only when SetServing(true) was called and
// every readiness probe passes.
func (t *Tracker) ReadyHandler(w http.ResponseWriter, _ *http.Request) {
	serving := t.serving.Load()

	t.mu.RLock()
	states := make([]*state, len(t.ready))
	copy(states, t.ready)
	t.mu.RUnlock()

	failed := failures(states)
	if !serving {
		failed["_serving"] = "service is not accepting traffic"
	}
	writeProbe(w, failed)
}

func failures(states []*state) map[string]string {
	failed := make(map[string]string)
	for _, s := range states {
		if msg, ok := s.failure(); ok {
			failed[s.check.Name] = msg
		}
	}
	return failed
}

func writeProbe(w http.ResponseWriter, failed map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := probeResponse{Status: "ok"}
	code := http.StatusOK
	if len(failed) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failed
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
