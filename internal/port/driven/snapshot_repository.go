package driven

import (
	"context"

	"github.com/alorle/iptv-relay/internal/snapshot"
)

// SnapshotRepository defines the interface for catalog source snapshot persistence.
// This is a driven port that will be implemented by concrete adapters (e.g., BoltDB).
type SnapshotRepository interface {
	// Save stores a snapshot, replacing any previous one for the same source URL.
	Save(ctx context.Context, s snapshot.Snapshot) error

	// FindBySourceURL retrieves the snapshot for a source URL. Returns
	// snapshot.ErrSnapshotNotFound if none has been stored.
	FindBySourceURL(ctx context.Context, sourceURL string) (snapshot.Snapshot, error)

	// Ping checks if the repository (database) is accessible and operational.
	Ping(ctx context.Context) error
}
