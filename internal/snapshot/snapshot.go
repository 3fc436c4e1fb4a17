package snapshot

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrEmptySourceURL   = errors.New("source URL cannot be empty")
	ErrEmptyContent     = errors.New("snapshot content cannot be empty")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// Snapshot is the last catalog source document that was fetched
// successfully. It is reparsed when the source becomes unreachable.
type Snapshot struct {
	sourceURL string
	content   []byte
	fetchedAt time.Time
}

// NewSnapshot creates a Snapshot of content fetched from sourceURL.
// Returns ErrEmptySourceURL if the URL is blank and ErrEmptyContent if
// there is nothing to store.
func NewSnapshot(sourceURL string, content []byte, fetchedAt time.Time) (Snapshot, error) {
	trimmed := strings.TrimSpace(sourceURL)
	if trimmed == "" {
		return Snapshot{}, ErrEmptySourceURL
	}
	if len(content) == 0 {
		return Snapshot{}, ErrEmptyContent
	}

	return Snapshot{
		sourceURL: trimmed,
		content:   content,
		fetchedAt: fetchedAt.UTC(),
	}, nil
}

// SourceURL returns the URL the document was fetched from.
func (s Snapshot) SourceURL() string {
	return s.sourceURL
}

// Content returns the raw document.
func (s Snapshot) Content() []byte {
	return s.content
}

// FetchedAt returns when the document was fetched.
func (s Snapshot) FetchedAt() time.Time {
	return s.fetchedAt
}

// Age returns how old the snapshot is at now.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.fetchedAt)
}
