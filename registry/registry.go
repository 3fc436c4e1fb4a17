// Package registry maps opaque handle identifiers to the real external URLs
// they stand in for. Once a URL is registered, only its identifier leaves
// this package.
package registry

import (
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// ErrNotFound is returned when resolving an unknown or expired identifier
var ErrNotFound = errors.New("resource handle not found")

// Kind classifies what a registered URL points at
type Kind int

const (
	// Manifest is a (variant) playlist
	Manifest Kind = iota
	// Segment is a media segment
	Segment
	// Key is an encryption key
	Key
)

// String returns the path segment used for a Kind in proxy URLs
func (k Kind) String() string {
	switch k {
	case Manifest:
		return "manifest"
	case Segment:
		return "segment"
	case Key:
		return "key"
	default:
		return "unknown"
	}
}

// ParseKind converts a proxy path segment back to a Kind
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "manifest":
		return Manifest, true
	case "segment":
		return Segment, true
	case "key":
		return Key, true
	default:
		return 0, false
	}
}

// Handle is a single registration of a real URL
type Handle struct {
	ID           string
	RealURL      string
	Kind         Kind
	RegisteredAt time.Time
}

// Registry allocates identifiers from a monotonic counter and is safe for
// concurrent use. The same URL may be registered any number of times; each
// call yields a distinct handle.
type Registry struct {
	counter atomic.Uint64
	handles *xsync.MapOf[string, Handle]
	maxAge  time.Duration
	now     func() time.Time
}

// Option configures a Registry
type Option func(*Registry)

// WithMaxAge makes handles older than maxAge unresolvable and sweepable.
// Zero (the default) keeps handles for the whole process lifetime.
func WithMaxAge(maxAge time.Duration) Option {
	return func(r *Registry) {
		r.maxAge = maxAge
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{
		handles: xsync.NewMapOf[string, Handle](),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores url under a fresh identifier and returns its handle
func (r *Registry) Register(url string, kind Kind) Handle {
	h := Handle{
		ID:           strconv.FormatUint(r.counter.Add(1), 10),
		RealURL:      url,
		Kind:         kind,
		RegisteredAt: r.now(),
	}
	r.handles.Store(h.ID, h)
	return h
}

// Resolve returns the handle registered under id
func (r *Registry) Resolve(id string) (Handle, error) {
	h, ok := r.handles.Load(id)
	if !ok || r.expired(h) {
		return Handle{}, ErrNotFound
	}
	return h, nil
}

// Sweep deletes expired handles and returns how many were removed.
// It is a no-op when no max age is configured.
func (r *Registry) Sweep() int {
	if r.maxAge <= 0 {
		return 0
	}
	removed := 0
	r.handles.Range(func(id string, h Handle) bool {
		if r.expired(h) {
			r.handles.Delete(id)
			removed++
		}
		return true
	})
	return removed
}

// Len returns the number of live registrations
func (r *Registry) Len() int {
	return r.handles.Size()
}

func (r *Registry) expired(h Handle) bool {
	return r.maxAge > 0 && r.now().Sub(h.RegisteredAt) >= r.maxAge
}
