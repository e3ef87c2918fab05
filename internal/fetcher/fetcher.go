package fetcher

import (
	"context"

	"storage-watch/internal/inventory"
)

// SnapshotFetcher retrieves the current storage inventory.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (inventory.Snapshot, error)
}
