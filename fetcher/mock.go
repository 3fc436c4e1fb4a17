package fetcher

import (
	"context"

	"github.com/alorle/iptv-relay/validator"
)

// MockFetcher is a mock implementation of the Fetcher interface for testing
type MockFetcher struct {
	FetchFunc         func(ctx context.Context, url string, kind validator.Kind) ([]byte, error)
	FetchResourceFunc func(ctx context.Context, url string, kind validator.Kind) (Resource, error)
}

// Fetch implements Interface.Fetch
func (m *MockFetcher) Fetch(ctx context.Context, url string, kind validator.Kind) ([]byte, error) {
	if m.FetchResourceFunc != nil {
		res, err := m.FetchResourceFunc(ctx, url, kind)
		return res.Body, err
	}
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, url, kind)
	}
	return nil, nil
}

// FetchResource implements Interface.FetchResource. Without
// FetchResourceFunc the content comes from FetchFunc, served from url itself.
func (m *MockFetcher) FetchResource(ctx context.Context, url string, kind validator.Kind) (Resource, error) {
	if m.FetchResourceFunc != nil {
		return m.FetchResourceFunc(ctx, url, kind)
	}
	body, err := m.Fetch(ctx, url, kind)
	if err != nil {
		return Resource{}, err
	}
	return Resource{Body: body, URL: url}, nil
}

var _ Interface = (*MockFetcher)(nil)
