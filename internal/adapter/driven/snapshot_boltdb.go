package driven

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.etcd.io/bbolt"

	"github.com/alorle/iptv-relay/internal/snapshot"
)

const (
	snapshotsBucket = "snapshots"
)

var errSnapshotsBucketMissing = errors.New("snapshots bucket not found")

// SnapshotBoltDBRepository implements the SnapshotRepository port using BoltDB.
type SnapshotBoltDBRepository struct {
	db *bbolt.DB
}

// NewSnapshotBoltDBRepository creates a new BoltDB-backed snapshot repository.
// It initializes the required bucket if it doesn't exist.
func NewSnapshotBoltDBRepository(db *bbolt.DB) (*SnapshotBoltDBRepository, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(snapshotsBucket))
		return err
	})
	if err != nil {
		return nil, err
	}

	return &SnapshotBoltDBRepository{db: db}, nil
}

// snapshotDTO is used for JSON serialization.
type snapshotDTO struct {
	SourceURL string    `json:"source_url"`
	Content   []byte    `json:"content"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Save stores a snapshot keyed by its source URL, replacing any previous one.
func (r *SnapshotBoltDBRepository) Save(ctx context.Context, s snapshot.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(snapshotDTO{
		SourceURL: s.SourceURL(),
		Content:   s.Content(),
		FetchedAt: s.FetchedAt(),
	})
	if err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotsBucket))
		if bucket == nil {
			return errSnapshotsBucketMissing
		}
		return bucket.Put([]byte(s.SourceURL()), data)
	})
}

// FindBySourceURL retrieves the snapshot stored for sourceURL.
func (r *SnapshotBoltDBRepository) FindBySourceURL(ctx context.Context, sourceURL string) (snapshot.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.Snapshot{}, err
	}

	var s snapshot.Snapshot

	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotsBucket))
		if bucket == nil {
			return errSnapshotsBucketMissing
		}

		data := bucket.Get([]byte(sourceURL))
		if data == nil {
			return snapshot.ErrSnapshotNotFound
		}

		// data is only valid inside the transaction; Unmarshal copies it
		var dto snapshotDTO
		if err := json.Unmarshal(data, &dto); err != nil {
			return err
		}

		reconstructed, err := snapshot.NewSnapshot(dto.SourceURL, dto.Content, dto.FetchedAt)
		if err != nil {
			return err
		}

		s = reconstructed
		return nil
	})

	return s, err
}

// Ping checks if the database is accessible.
func (r *SnapshotBoltDBRepository) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(snapshotsBucket)) == nil {
			return errSnapshotsBucketMissing
		}
		return nil
	})
}
