package driven

import "github.com/alorle/iptv-relay/registry"

// ResourceRegistry maps opaque identifiers to the real URLs they stand for.
// Implementations must be safe for concurrent use.
type ResourceRegistry interface {
	// Register stores url under a fresh identifier. It never fails.
	Register(url string, kind registry.Kind) registry.Handle

	// Resolve returns the handle registered under id. Returns
	// registry.ErrNotFound for unknown or expired identifiers.
	Resolve(id string) (registry.Handle, error)

	// Len returns the number of live registrations.
	Len() int
}
