package application

import (
	"context"
	"errors"
	"time"

	"github.com/alorle/iptv-relay/internal/port/driven"
	"github.com/alorle/iptv-relay/internal/snapshot"
)

// Pinger is a dependency whose availability can be probed
type Pinger interface {
	Ping(ctx context.Context) error
}

// SnapshotAger reports the age of the stored catalog source snapshot
type SnapshotAger interface {
	SnapshotAge(ctx context.Context) (time.Duration, error)
}

// HealthService orchestrates health checks for the application and its dependencies.
type HealthService struct {
	db        driven.SnapshotRepository
	cache     Pinger
	registry  driven.ResourceRegistry
	snapshots SnapshotAger
}

// NewHealthService creates a new health check service. cache may be nil
// when no shared cache is configured.
func NewHealthService(db driven.SnapshotRepository, cache Pinger, registry driven.ResourceRegistry, snapshots SnapshotAger) *HealthService {
	return &HealthService{
		db:        db,
		cache:     cache,
		registry:  registry,
		snapshots: snapshots,
	}
}

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	Status string // "ok", "error" or "disabled"
	Error  string // empty if status is "ok", otherwise contains error message
}

// HealthStatus represents the overall health status of the application.
type HealthStatus struct {
	Status        string          // "ok" if all components are healthy, "degraded" otherwise
	DB            ComponentHealth // snapshot database health
	Cache         ComponentHealth // shared cache health
	RegistrySize  int             // live resource handles
	SnapshotAge   time.Duration   // age of the stored catalog source, zero if none
	SnapshotFound bool
}

// Check performs health checks on all dependencies.
// Returns the overall health status and individual component statuses.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       "ok",
		RegistrySize: s.registry.Len(),
	}

	status.DB = probe(ctx, s.db)
	if status.DB.Status == "error" {
		status.Status = "degraded"
	}

	if s.cache == nil {
		status.Cache = ComponentHealth{Status: "disabled"}
	} else {
		status.Cache = probe(ctx, s.cache)
		if status.Cache.Status == "error" {
			status.Status = "degraded"
		}
	}

	if s.snapshots != nil {
		age, err := s.snapshots.SnapshotAge(ctx)
		if err == nil {
			status.SnapshotAge = age
			status.SnapshotFound = true
		} else if !errors.Is(err, snapshot.ErrSnapshotNotFound) {
			status.Status = "degraded"
		}
	}

	return status
}

func probe(ctx context.Context, p Pinger) ComponentHealth {
	if err := p.Ping(ctx); err != nil {
		return ComponentHealth{
			Status: "error",
			Error:  err.Error(),
		}
	}
	return ComponentHealth{Status: "ok"}
}
