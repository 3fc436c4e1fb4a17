package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestRegistry_RegisterAndResolve(t *testing.T) {
	t.Run("resolve returns the registered URL", func(t *testing.T) {
		r := New()
		h := r.Register("https://h.example/live/a/index.m3u8", Manifest)

		got, err := r.Resolve(h.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.RealURL != "https://h.example/live/a/index.m3u8" {
			t.Errorf("expected real URL to round-trip, got %q", got.RealURL)
		}
		if got.Kind != Manifest {
			t.Errorf("expected kind manifest, got %s", got.Kind)
		}
		if got.RegisteredAt.IsZero() {
			t.Error("expected registration time to be set")
		}
	})

	t.Run("same URL twice yields distinct handles", func(t *testing.T) {
		r := New()
		a := r.Register("https://cdn.example/seg.ts", Segment)
		b := r.Register("https://cdn.example/seg.ts", Segment)
		if a.ID == b.ID {
			t.Errorf("expected distinct ids, both %q", a.ID)
		}
		if r.Len() != 2 {
			t.Errorf("expected 2 registrations, got %d", r.Len())
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		r := New()
		_, err := r.Resolve("42")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("empty registry resolves nothing", func(t *testing.T) {
		r := New()
		if _, err := r.Resolve(""); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRegistry_Uniqueness(t *testing.T) {
	for _, n := range []int{0, 1, 10, 1000} {
		t.Run(fmt.Sprintf("%d registrations", n), func(t *testing.T) {
			r := New()
			seen := make(map[string]string, n)
			for i := 0; i < n; i++ {
				url := fmt.Sprintf("https://cdn.example/seg%04d.ts", i)
				h := r.Register(url, Segment)
				if _, dup := seen[h.ID]; dup {
					t.Fatalf("duplicate id %q", h.ID)
				}
				seen[h.ID] = url
			}
			for id, url := range seen {
				h, err := r.Resolve(id)
				if err != nil {
					t.Fatalf("resolve %q: %v", id, err)
				}
				if h.RealURL != url {
					t.Errorf("id %q resolved to %q, want %q", id, h.RealURL, url)
				}
			}
		})
	}
}

func TestRegistry_ConcurrentRegister(t *testing.T) {
	r := New()
	const workers, perWorker = 8, 200

	var mu sync.Mutex
	ids := make(map[string]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				h := r.Register(fmt.Sprintf("https://cdn.example/%d/%d.ts", w, i), Segment)
				mu.Lock()
				ids[h.ID] = struct{}{}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	if len(ids) != workers*perWorker {
		t.Errorf("expected %d distinct ids, got %d", workers*perWorker, len(ids))
	}
}

func TestRegistry_MaxAge(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("no max age keeps handles forever", func(t *testing.T) {
		r := New(WithClock(clock))
		h := r.Register("https://cdn.example/a.ts", Segment)
		now = now.Add(24 * time.Hour)
		if _, err := r.Resolve(h.ID); err != nil {
			t.Errorf("expected handle to survive, got %v", err)
		}
		if removed := r.Sweep(); removed != 0 {
			t.Errorf("expected no-op sweep, removed %d", removed)
		}
	})

	t.Run("expired handle is not found and swept", func(t *testing.T) {
		r := New(WithClock(clock), WithMaxAge(time.Hour))
		old := r.Register("https://cdn.example/old.ts", Segment)
		now = now.Add(2 * time.Hour)
		fresh := r.Register("https://cdn.example/new.ts", Segment)

		if _, err := r.Resolve(old.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected expired handle to be not found, got %v", err)
		}
		if removed := r.Sweep(); removed != 1 {
			t.Errorf("expected 1 swept handle, got %d", removed)
		}
		if _, err := r.Resolve(fresh.ID); err != nil {
			t.Errorf("expected fresh handle to resolve, got %v", err)
		}
	})
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{Manifest, Segment, Key} {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := ParseKind("playlist"); ok {
		t.Error("expected unknown kind to be rejected")
	}
}
