package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alorle/iptv-relay/cache"
	"github.com/alorle/iptv-relay/catalog"
	"github.com/alorle/iptv-relay/fetcher"
	"github.com/alorle/iptv-relay/internal/port/driven"
	"github.com/alorle/iptv-relay/internal/snapshot"
	"github.com/alorle/iptv-relay/metrics"
	"github.com/alorle/iptv-relay/validator"
)

var (
	// ErrUnknownProfile is returned when a catalog profile is not configured
	ErrUnknownProfile = errors.New("unknown catalog profile")
	// ErrNoSource is recorded in fallback catalogs when no source URL is configured
	ErrNoSource = errors.New("no catalog source configured")
)

// CatalogStoreFactory creates the cache that holds the catalogs of one profile
type CatalogStoreFactory func(profile catalog.Profile) cache.Store[catalog.Catalog]

// CatalogService loads, caches and degrades channel catalogs. Load never
// fails for a configured profile: when the source is unreachable it serves
// the last stored snapshot, and without one the hand-authored fallback.
type CatalogService struct {
	sourceURL string
	profiles  map[string]catalog.Profile
	names     []string
	caches    map[string]cache.Store[catalog.Catalog]
	fetcher   fetcher.Interface
	snapshots driven.SnapshotRepository
	group     singleflight.Group
	logger    *slog.Logger
	now       func() time.Time
}

// NewCatalogService creates a catalog service. snapshots may be nil, which
// disables the stale fallback.
func NewCatalogService(
	sourceURL string,
	profiles []catalog.Profile,
	f fetcher.Interface,
	snapshots driven.SnapshotRepository,
	newStore CatalogStoreFactory,
	logger *slog.Logger,
) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &CatalogService{
		sourceURL: sourceURL,
		profiles:  make(map[string]catalog.Profile, len(profiles)),
		caches:    make(map[string]cache.Store[catalog.Catalog], len(profiles)),
		fetcher:   f,
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
	}
	for _, p := range profiles {
		s.profiles[p.Name] = p
		s.names = append(s.names, p.Name)
		s.caches[p.Name] = newStore(p)
	}
	return s
}

// Profiles returns the configured profile names in configuration order
func (s *CatalogService) Profiles() []string {
	return append([]string(nil), s.names...)
}

// Load returns the catalog of the named profile. Concurrent loads of the
// same profile share one upstream fetch.
func (s *CatalogService) Load(ctx context.Context, profileName string) (catalog.Catalog, error) {
	p, ok := s.profiles[profileName]
	if !ok {
		return catalog.Catalog{}, fmt.Errorf("%w: %q", ErrUnknownProfile, profileName)
	}

	store := s.caches[p.Name]
	key := cache.CatalogKey(p.Name)
	cached, found, err := store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("catalog cache lookup failed", "profile", p.Name, "error", err)
	}
	metrics.RecordCacheLookup("catalog", found)
	if found {
		return cached, nil
	}

	// The shared load outlives any single caller
	v, _, _ := s.group.Do(p.Name, func() (any, error) {
		return s.build(context.WithoutCancel(ctx), p), nil
	})
	return v.(catalog.Catalog), nil
}

// Warm loads every profile once, typically at startup
func (s *CatalogService) Warm(ctx context.Context) {
	for _, name := range s.names {
		if ctx.Err() != nil {
			return
		}
		cat, _ := s.Load(ctx, name)
		s.logger.Info("catalog warmed", "profile", name, "source", cat.Source, "channels", len(cat.Channels))
	}
}

// SnapshotAge reports how old the stored source snapshot is
func (s *CatalogService) SnapshotAge(ctx context.Context) (time.Duration, error) {
	if s.snapshots == nil || s.sourceURL == "" {
		return 0, snapshot.ErrSnapshotNotFound
	}
	snap, err := s.snapshots.FindBySourceURL(ctx, s.sourceURL)
	if err != nil {
		return 0, err
	}
	return snap.Age(s.now()), nil
}

func (s *CatalogService) build(ctx context.Context, p catalog.Profile) catalog.Catalog {
	if s.sourceURL == "" {
		return s.record(p, catalog.FallbackCatalog(p, ErrNoSource))
	}

	raw, err := s.fetcher.Fetch(ctx, s.sourceURL, validator.TextPlaylist)
	if err == nil {
		cat := catalog.Parse(raw, p)
		if cat.Succeeded {
			s.storeSnapshot(ctx, raw)
			if setErr := s.caches[p.Name].Set(ctx, cache.CatalogKey(p.Name), cat); setErr != nil {
				s.logger.Warn("failed to update catalog cache", "profile", p.Name, "error", setErr)
			}
		} else {
			s.logger.Warn("catalog source unusable, serving fallback", "profile", p.Name, "error", cat.Err)
		}
		return s.record(p, cat)
	}

	s.logger.Warn("catalog source unreachable", "profile", p.Name, "error", err)
	if cat, ok := s.fromSnapshot(ctx, p); ok {
		return s.record(p, cat)
	}
	return s.record(p, catalog.FallbackCatalog(p, err))
}

func (s *CatalogService) fromSnapshot(ctx context.Context, p catalog.Profile) (catalog.Catalog, bool) {
	if s.snapshots == nil {
		return catalog.Catalog{}, false
	}
	snap, err := s.snapshots.FindBySourceURL(ctx, s.sourceURL)
	if err != nil {
		if !errors.Is(err, snapshot.ErrSnapshotNotFound) {
			s.logger.Warn("failed to read catalog snapshot", "error", err)
		}
		return catalog.Catalog{}, false
	}

	cat := catalog.Parse(snap.Content(), p)
	if !cat.Succeeded {
		return catalog.Catalog{}, false
	}
	cat.Source = catalog.SourceSnapshot
	s.logger.Info("serving catalog from snapshot", "profile", p.Name, "age", snap.Age(s.now()).String())
	return cat, true
}

func (s *CatalogService) storeSnapshot(ctx context.Context, raw []byte) {
	if s.snapshots == nil {
		return
	}
	snap, err := snapshot.NewSnapshot(s.sourceURL, raw, s.now())
	if err != nil {
		return
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		s.logger.Warn("failed to store catalog snapshot", "error", err)
	}
}

func (s *CatalogService) record(p catalog.Profile, cat catalog.Catalog) catalog.Catalog {
	metrics.RecordCatalogLoad(p.Name, string(cat.Source), len(cat.Channels))
	return cat
}
