package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sample statuses.
const (
	SampleOK      = "ok"
	SampleFailed  = "fetch_failed"
	SampleStartup = "startup"
)

// WeightSample is one observed total weight, recorded every poll.
type WeightSample struct {
	SampledAt   time.Time
	TotalWeight decimal.Decimal
	ItemCount   int
	Status      string
	Error       *string
}

// EventRecord is an emitted notification, kept for auditing and export.
type EventRecord struct {
	ID          int64
	Kind        string
	Item        string
	Delta       decimal.Decimal
	Previous    decimal.Decimal
	Current     decimal.Decimal
	TotalWeight decimal.Decimal
	MaxWeight   decimal.Decimal
	Delivered   bool
	Error       *string
	CreatedAt   time.Time
}
