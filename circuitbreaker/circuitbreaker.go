package circuitbreaker

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State represents the current state of the circuit breaker
type State int

const (
	// StateClosed means the relay is used normally
	StateClosed State = iota
	// StateOpen means the relay is skipped
	StateOpen
	// StateHalfOpen means a limited number of trial calls decide whether
	// the relay recovered
	StateHalfOpen
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Verdict is what a call's error says about the health of the guarded relay
type Verdict int

const (
	// Healthy means the relay answered; the error, if any, belongs to the target
	Healthy Verdict = iota
	// Unhealthy means the relay itself misbehaved
	Unhealthy
	// Inconclusive results are not counted either way
	Inconclusive
)

// Classifier maps the error returned by a guarded call to a Verdict
type Classifier func(err error) Verdict

// CountAll treats every non-nil error as a relay failure
func CountAll(err error) Verdict {
	if err != nil {
		return Unhealthy
	}
	return Healthy
}

// Config contains the configuration for a circuit breaker
type Config struct {
	FailureThreshold int           // Consecutive unhealthy calls before opening
	Timeout          time.Duration // Time spent OPEN before trial calls are allowed
	HalfOpenRequests int           // Trial calls allowed, and required, in HALF-OPEN
	Name             string        // Name of the guarded relay, for logs
	Logger           *slog.Logger  // Logger for state changes (optional)
	// Classify decides which errors count against the relay. Defaults to CountAll.
	Classify Classifier
	// OnStateChange is called with the lock held after every transition
	OnStateChange func(name string, from, to State)
	// Now replaces time.Now (optional)
	Now func() time.Time
}

// CircuitBreaker defines the interface for circuit breaker functionality
type CircuitBreaker interface {
	// Execute runs the given function if the circuit allows it
	Execute(func() error) error
	// State returns the current state of the circuit breaker
	State() State
	// Reset resets the circuit breaker to CLOSED state
	Reset()
}

var (
	// ErrCircuitOpen is returned when the circuit breaker is in OPEN state
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrHalfOpenLimitReached is returned when too many requests are made in HALF-OPEN state
	ErrHalfOpenLimitReached = errors.New("circuit breaker half-open request limit reached")
)

type breaker struct {
	config Config
	mu     sync.RWMutex

	state     State
	failures  int
	inFlight  int // trial calls running in HALF-OPEN
	recovered int // healthy trial calls in HALF-OPEN
	openedAt  time.Time
}

// New creates a new circuit breaker with the given configuration
func New(cfg Config) CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenRequests <= 0 {
		cfg.HalfOpenRequests = 1
	}
	if cfg.Classify == nil {
		cfg.Classify = CountAll
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &breaker{
		config: cfg,
		state:  StateClosed,
	}
}

// Execute runs fn unless the circuit is open and records what its error
// says about the relay. The error from fn is always returned unchanged.
func (b *breaker) Execute(fn func() error) error {
	admitted, err := b.admit()
	if err != nil {
		return err
	}

	err = fn()
	b.record(admitted, b.config.Classify(err))
	return err
}

// admit returns the state the call was admitted under
func (b *breaker) admit() (State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.config.Now().Sub(b.openedAt) >= b.config.Timeout {
		b.transitionTo(StateHalfOpen)
	}

	switch b.state {
	case StateOpen:
		return b.state, ErrCircuitOpen
	case StateHalfOpen:
		if b.inFlight >= b.config.HalfOpenRequests {
			return b.state, ErrHalfOpenLimitReached
		}
		b.inFlight++
	}
	return b.state, nil
}

func (b *breaker) record(admitted State, verdict Verdict) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// The circuit moved while the call ran (another trial reopened it or
	// Reset was called); this result no longer applies.
	if b.state != admitted {
		return
	}

	switch admitted {
	case StateClosed:
		switch verdict {
		case Healthy:
			b.failures = 0
		case Unhealthy:
			b.failures++
			if b.failures >= b.config.FailureThreshold {
				b.transitionTo(StateOpen)
			}
		}

	case StateHalfOpen:
		switch verdict {
		case Healthy:
			b.recovered++
			if b.recovered >= b.config.HalfOpenRequests {
				b.transitionTo(StateClosed)
			}
		case Unhealthy:
			b.transitionTo(StateOpen)
		case Inconclusive:
			b.inFlight--
		}
	}
}

// State returns the current state of the circuit breaker
func (b *breaker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Reset resets the circuit breaker to CLOSED state
func (b *breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(StateClosed)
}

// transitionTo changes the circuit breaker state.
// Must be called with lock held.
func (b *breaker) transitionTo(newState State) {
	if b.state == newState {
		return
	}

	oldState := b.state
	b.state = newState
	b.failures = 0
	b.inFlight = 0
	b.recovered = 0
	b.openedAt = time.Time{}
	if newState == StateOpen {
		b.openedAt = b.config.Now()
	}

	if b.config.Logger != nil {
		b.config.Logger.Info("circuit breaker state changed",
			"strategy", b.config.Name,
			"from", oldState.String(),
			"to", newState.String(),
		)
	}
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.config.Name, oldState, newState)
	}
}
