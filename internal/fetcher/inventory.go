package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storage-watch/internal/inventory"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 8 << 20

// InventoryOptions parameterise the inventory API fetcher.
type InventoryOptions struct {
	Endpoint    string
	BearerToken string
	// Timeout bounds one request; zero leaves the request unbounded.
	Timeout   time.Duration
	UserAgent string
}

// Inventory fetches storage snapshots over HTTP.
type Inventory struct {
	opts   InventoryOptions
	logger zerolog.Logger
	client *http.Client
}

// NewInventory constructs an inventory fetcher.
func NewInventory(opts InventoryOptions, logger zerolog.Logger) *Inventory {
	return &Inventory{
		opts:   opts,
		logger: logger.With().Str("component", "inventory_fetcher").Logger(),
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// FetchSnapshot performs one GET against the endpoint and decodes the body.
func (f *Inventory) FetchSnapshot(ctx context.Context) (inventory.Snapshot, error) {
	if f.opts.Endpoint == "" {
		return inventory.Snapshot{}, errors.New("inventory endpoint not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.opts.Endpoint, nil)
	if err != nil {
		return inventory.Snapshot{}, fmt.Errorf("create inventory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.opts.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+f.opts.BearerToken)
	}
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "storagewatch/1.0")
	}

	started := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return inventory.Snapshot{}, fmt.Errorf("send inventory request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return inventory.Snapshot{}, fmt.Errorf("read inventory response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return inventory.Snapshot{}, parseHTTPError(resp.StatusCode, body)
	}

	snap, err := inventory.ParseSnapshot(body)
	if err != nil {
		return inventory.Snapshot{}, err
	}

	f.logger.Debug().
		Dur("elapsed", time.Since(started)).
		Str("total_weight", snap.TotalWeight.String()).
		Int("items", snap.Len()).
		Msg("inventory fetched")
	return snap, nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("inventory api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("inventory api error (%d): %s", status, apiErr.Error)
		}
	}
	if text := strings.TrimSpace(string(payload)); text != "" {
		if len(text) > 256 {
			text = text[:256]
		}
		return fmt.Errorf("inventory api error (%d): %s", status, text)
	}
	return fmt.Errorf("inventory api error (%d)", status)
}

var _ SnapshotFetcher = (*Inventory)(nil)
