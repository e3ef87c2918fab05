package alerting

import (
	"context"

	"storage-watch/internal/inventory"
)

// Notifier delivers inventory events to a destination.
type Notifier interface {
	Notify(ctx context.Context, ev inventory.Event) error
}
