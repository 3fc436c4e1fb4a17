package fetcher

import (
	"context"

	"github.com/alorle/iptv-relay/validator"
)

// Interface defines the contract for fetching resources through the
// strategy list
type Interface interface {
	// Fetch returns validated content for url, or an error wrapping
	// ErrExhaustedStrategies
	Fetch(ctx context.Context, url string, kind validator.Kind) ([]byte, error)
	// FetchResource is Fetch that also reports the final URL after redirects
	FetchResource(ctx context.Context, url string, kind validator.Kind) (Resource, error)
}
