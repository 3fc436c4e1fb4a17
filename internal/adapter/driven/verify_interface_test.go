package driven

import (
	port "github.com/alorle/iptv-relay/internal/port/driven"
	"github.com/alorle/iptv-relay/registry"
)

// Compile-time check that SnapshotBoltDBRepository implements SnapshotRepository interface
var _ port.SnapshotRepository = (*SnapshotBoltDBRepository)(nil)

// Compile-time check that the in-memory registry implements ResourceRegistry interface
var _ port.ResourceRegistry = (*registry.Registry)(nil)
