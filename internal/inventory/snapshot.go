package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrMissingItemName is returned when an item entry carries no name.
var ErrMissingItemName = errors.New("inventory: item entry without name")

// Item is one stored item as reported by the inventory API.
type Item struct {
	Name         string          `json:"item"`
	Amount       decimal.Decimal `json:"amount"`
	SingleWeight decimal.Decimal `json:"singleWeight"`
	TotalWeight  decimal.Decimal `json:"totalWeight"`
}

// Snapshot is a point-in-time read of the storage.
type Snapshot struct {
	TotalWeight decimal.Decimal
	Items       map[string]Item
}

// Empty returns the zero snapshot: no weight, no items.
func Empty() Snapshot {
	return Snapshot{TotalWeight: decimal.Zero, Items: map[string]Item{}}
}

// Len reports the number of distinct items.
func (s Snapshot) Len() int {
	return len(s.Items)
}

// Names returns the item names in ascending order.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s.Items))
	for name := range s.Items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sorted returns the items ordered by name.
func (s Snapshot) Sorted() []Item {
	items := make([]Item, 0, len(s.Items))
	for _, name := range s.Names() {
		items = append(items, s.Items[name])
	}
	return items
}

// Clone returns a copy that shares no map with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{TotalWeight: s.TotalWeight, Items: make(map[string]Item, len(s.Items))}
	for name, item := range s.Items {
		out.Items[name] = item
	}
	return out
}

type payload struct {
	TotalWeight decimal.Decimal `json:"totalWeight"`
	Items       []Item          `json:"items"`
}

// ParseSnapshot decodes an inventory API body. Missing totals and item lists
// decode as zero; an item without a name rejects the whole body. When a name
// repeats, the last entry wins.
func ParseSnapshot(body []byte) (Snapshot, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Snapshot{}, fmt.Errorf("decode inventory payload: %w", err)
	}

	snap := Empty()
	snap.TotalWeight = p.TotalWeight
	for i, item := range p.Items {
		if item.Name == "" {
			return Snapshot{}, fmt.Errorf("items[%d]: %w", i, ErrMissingItemName)
		}
		snap.Items[item.Name] = item
	}
	return snap, nil
}
