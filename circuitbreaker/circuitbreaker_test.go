package circuitbreaker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

var errTestFailure = errors.New("test failure")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestNew verifies circuit breaker creation with valid and default configs
func TestNew(t *testing.T) {
	tests := []struct {
		name           string
		config         Config
		expectedConfig Config
	}{
		{
			name:           "valid config",
			config:         Config{FailureThreshold: 3, Timeout: 10 * time.Second, HalfOpenRequests: 2},
			expectedConfig: Config{FailureThreshold: 3, Timeout: 10 * time.Second, HalfOpenRequests: 2},
		},
		{
			name:           "zero values use defaults",
			config:         Config{},
			expectedConfig: Config{FailureThreshold: 5, Timeout: 30 * time.Second, HalfOpenRequests: 1},
		},
		{
			name:           "partial defaults",
			config:         Config{FailureThreshold: 10},
			expectedConfig: Config{FailureThreshold: 10, Timeout: 30 * time.Second, HalfOpenRequests: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := New(tt.config)
			if cb.State() != StateClosed {
				t.Errorf("expected state CLOSED, got %s", cb.State())
			}

			br := cb.(*breaker)
			if br.config.FailureThreshold != tt.expectedConfig.FailureThreshold {
				t.Errorf("expected FailureThreshold %d, got %d",
					tt.expectedConfig.FailureThreshold, br.config.FailureThreshold)
			}
			if br.config.Timeout != tt.expectedConfig.Timeout {
				t.Errorf("expected Timeout %v, got %v", tt.expectedConfig.Timeout, br.config.Timeout)
			}
			if br.config.HalfOpenRequests != tt.expectedConfig.HalfOpenRequests {
				t.Errorf("expected HalfOpenRequests %d, got %d",
					tt.expectedConfig.HalfOpenRequests, br.config.HalfOpenRequests)
			}
		})
	}
}

// TestStateString verifies string representation of states
func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateClosed, "CLOSED"},
		{StateOpen, "OPEN"},
		{StateHalfOpen, "HALF-OPEN"},
		{State(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

// TestClosedToOpen verifies transition from CLOSED to OPEN after threshold failures
func TestClosedToOpen(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, Timeout: time.Minute})

	for i := 1; i <= 2; i++ {
		if err := cb.Execute(func() error { return errTestFailure }); !errors.Is(err, errTestFailure) {
			t.Errorf("expected test failure error, got %v", err)
		}
		if cb.State() != StateClosed {
			t.Errorf("expected state CLOSED after %d failures, got %s", i, cb.State())
		}
	}

	_ = cb.Execute(func() error { return errTestFailure })
	if cb.State() != StateOpen {
		t.Errorf("expected state OPEN after 3 failures, got %s", cb.State())
	}
}

// TestOpenBlocksRequests verifies that OPEN state blocks all requests
func TestOpenBlocksRequests(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, Timeout: time.Minute})
	_ = cb.Execute(func() error { return errTestFailure })

	err := cb.Execute(func() error {
		t.Error("function should not be called when circuit is OPEN")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

// TestHalfOpen covers the transitions after the open timeout elapsed
func TestHalfOpen(t *testing.T) {
	t.Run("success closes the circuit", func(t *testing.T) {
		clock := newFakeClock()
		cb := New(Config{FailureThreshold: 1, Timeout: time.Second, Now: clock.Now})
		_ = cb.Execute(func() error { return errTestFailure })
		clock.Advance(time.Second)

		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if cb.State() != StateClosed {
			t.Errorf("expected state CLOSED, got %s", cb.State())
		}
	})

	t.Run("stays half-open until all probes succeed", func(t *testing.T) {
		clock := newFakeClock()
		cb := New(Config{FailureThreshold: 1, Timeout: time.Second, HalfOpenRequests: 2, Now: clock.Now})
		_ = cb.Execute(func() error { return errTestFailure })
		clock.Advance(2 * time.Second)

		_ = cb.Execute(func() error { return nil })
		if cb.State() != StateHalfOpen {
			t.Errorf("expected state HALF-OPEN after first success, got %s", cb.State())
		}
		_ = cb.Execute(func() error { return nil })
		if cb.State() != StateClosed {
			t.Errorf("expected state CLOSED after all probes, got %s", cb.State())
		}
	})

	t.Run("failure reopens the circuit", func(t *testing.T) {
		clock := newFakeClock()
		cb := New(Config{FailureThreshold: 1, Timeout: time.Second, HalfOpenRequests: 2, Now: clock.Now})
		_ = cb.Execute(func() error { return errTestFailure })
		clock.Advance(time.Second)

		_ = cb.Execute(func() error { return nil })
		if err := cb.Execute(func() error { return errTestFailure }); !errors.Is(err, errTestFailure) {
			t.Errorf("expected test failure error, got %v", err)
		}
		if cb.State() != StateOpen {
			t.Errorf("expected state OPEN after half-open failure, got %s", cb.State())
		}
	})

	t.Run("not yet elapsed stays open", func(t *testing.T) {
		clock := newFakeClock()
		cb := New(Config{FailureThreshold: 1, Timeout: time.Second, Now: clock.Now})
		_ = cb.Execute(func() error { return errTestFailure })
		clock.Advance(999 * time.Millisecond)

		if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
			t.Errorf("expected ErrCircuitOpen, got %v", err)
		}
	})

	t.Run("concurrent probes beyond limit are rejected", func(t *testing.T) {
		clock := newFakeClock()
		cb := New(Config{FailureThreshold: 1, Timeout: time.Second, HalfOpenRequests: 1, Now: clock.Now})
		_ = cb.Execute(func() error { return errTestFailure })
		clock.Advance(time.Second)

		release := make(chan struct{})
		started := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- cb.Execute(func() error {
				close(started)
				<-release
				return nil
			})
		}()
		<-started

		if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrHalfOpenLimitReached) {
			t.Errorf("expected ErrHalfOpenLimitReached, got %v", err)
		}
		close(release)
		if err := <-done; err != nil {
			t.Errorf("expected probe to succeed, got %v", err)
		}
	})
}

// TestClosedSuccessResetsFailureCount verifies failure count reset on success
func TestClosedSuccessResetsFailureCount(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, Timeout: time.Minute})

	_ = cb.Execute(func() error { return errTestFailure })
	_ = cb.Execute(func() error { return errTestFailure })
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("expected no error on success, got %v", err)
	}

	_ = cb.Execute(func() error { return errTestFailure })
	_ = cb.Execute(func() error { return errTestFailure })
	if cb.State() != StateClosed {
		t.Errorf("expected state still CLOSED after 2 more failures, got %s", cb.State())
	}

	_ = cb.Execute(func() error { return errTestFailure })
	if cb.State() != StateOpen {
		t.Errorf("expected state OPEN after 3 failures, got %s", cb.State())
	}
}

// TestReset verifies Reset() returns circuit to CLOSED state
func TestReset(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, Timeout: time.Minute})
	_ = cb.Execute(func() error { return errTestFailure })

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("expected state CLOSED after reset, got %s", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("expected no error after reset, got %v", err)
	}
}

// TestStateChangeNotifications verifies logging and the transition callback
func TestStateChangeNotifications(t *testing.T) {
	var buf bytes.Buffer
	var transitions []string
	clock := newFakeClock()

	cb := New(Config{
		FailureThreshold: 1,
		Timeout:          time.Second,
		Name:             "relay-a",
		Logger:           slog.New(slog.NewTextHandler(&buf, nil)),
		Now:              clock.Now,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+">"+to.String())
		},
	})

	_ = cb.Execute(func() error { return errTestFailure })
	clock.Advance(time.Second)
	_ = cb.Execute(func() error { return nil })

	want := []string{
		"relay-a:CLOSED>OPEN",
		"relay-a:OPEN>HALF-OPEN",
		"relay-a:HALF-OPEN>CLOSED",
	}
	if strings.Join(transitions, ",") != strings.Join(want, ",") {
		t.Errorf("expected transitions %v, got %v", want, transitions)
	}

	out := buf.String()
	if !strings.Contains(out, "strategy=relay-a") || !strings.Contains(out, "to=OPEN") {
		t.Errorf("expected state changes to be logged, got %q", out)
	}
}

var errTargetMissing = errors.New("target missing")

func classifyTargetErrors(err error) Verdict {
	switch {
	case err == nil, errors.Is(err, errTargetMissing):
		return Healthy
	case errors.Is(err, context.Canceled):
		return Inconclusive
	default:
		return Unhealthy
	}
}

// TestClassify verifies that only unhealthy verdicts count against the relay
func TestClassify(t *testing.T) {
	t.Run("target errors never open the circuit", func(t *testing.T) {
		cb := New(Config{FailureThreshold: 2, Timeout: time.Minute, Classify: classifyTargetErrors})

		for i := 0; i < 10; i++ {
			if err := cb.Execute(func() error { return errTargetMissing }); !errors.Is(err, errTargetMissing) {
				t.Fatalf("expected the call's own error, got %v", err)
			}
		}
		if cb.State() != StateClosed {
			t.Errorf("expected state CLOSED, got %s", cb.State())
		}
	})

	t.Run("healthy target error resets the failure count", func(t *testing.T) {
		cb := New(Config{FailureThreshold: 2, Timeout: time.Minute, Classify: classifyTargetErrors})

		_ = cb.Execute(func() error { return errTestFailure })
		_ = cb.Execute(func() error { return errTargetMissing })
		_ = cb.Execute(func() error { return errTestFailure })
		if cb.State() != StateClosed {
			t.Errorf("expected state CLOSED, got %s", cb.State())
		}
		_ = cb.Execute(func() error { return errTestFailure })
		if cb.State() != StateOpen {
			t.Errorf("expected state OPEN, got %s", cb.State())
		}
	})

	t.Run("inconclusive results leave the count alone", func(t *testing.T) {
		cb := New(Config{FailureThreshold: 2, Timeout: time.Minute, Classify: classifyTargetErrors})

		_ = cb.Execute(func() error { return errTestFailure })
		_ = cb.Execute(func() error { return context.Canceled })
		_ = cb.Execute(func() error { return errTestFailure })
		if cb.State() != StateOpen {
			t.Errorf("expected state OPEN, got %s", cb.State())
		}
	})

	t.Run("inconclusive trial frees the half-open slot", func(t *testing.T) {
		clock := newFakeClock()
		cb := New(Config{
			FailureThreshold: 1,
			Timeout:          time.Second,
			HalfOpenRequests: 1,
			Classify:         classifyTargetErrors,
			Now:              clock.Now,
		})
		_ = cb.Execute(func() error { return errTestFailure })
		clock.Advance(time.Second)

		_ = cb.Execute(func() error { return context.Canceled })
		if cb.State() != StateHalfOpen {
			t.Fatalf("expected state HALF-OPEN, got %s", cb.State())
		}
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Errorf("expected a second trial to run, got %v", err)
		}
		if cb.State() != StateClosed {
			t.Errorf("expected state CLOSED, got %s", cb.State())
		}
	})

	t.Run("default counts every error", func(t *testing.T) {
		cb := New(Config{FailureThreshold: 1, Timeout: time.Minute})
		_ = cb.Execute(func() error { return errTargetMissing })
		if cb.State() != StateOpen {
			t.Errorf("expected state OPEN, got %s", cb.State())
		}
	})
}
