// Command catalog-snapshot fetches the purchasable catalog from the pharmacy
// backend and writes it as a gzip-compressed JSON price list, for offline
// reference at the counter.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/viorhealth/pos-terminal/internal/domain/catalog"
	"github.com/viorhealth/pos-terminal/internal/vior"
)

// snapshotItem is the price list entry written to disk.
type snapshotItem struct {
	Kind      string          `json:"kind"`
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     int             `json:"stock,omitempty"`
}

type snapshot struct {
	TakenAt time.Time      `json:"taken_at"`
	Items   []snapshotItem `json:"items"`
}

func main() {
	var (
		backendURL string
		token      string
		out        string
		timeout    time.Duration
	)

	flag.StringVar(&backendURL, "backend-url", "", "pharmacy backend base URL (or BACKEND_URL env)")
	flag.StringVar(&token, "token", "", "bearer token for backend calls (or BACKEND_TOKEN env)")
	flag.StringVar(&out, "out", "price-list.json.gz", "output file")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "per-call backend timeout")
	flag.Parse()

	if backendURL == "" {
		backendURL = os.Getenv("BACKEND_URL")
	}
	if token == "" {
		token = os.Getenv("BACKEND_TOKEN")
	}
	if backendURL == "" {
		slog.Error("backend URL is required: set --backend-url or BACKEND_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, backendURL, token, timeout, out); err != nil {
		slog.Error("catalog snapshot failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, backendURL, token string, timeout time.Duration, out string) error {
	client, err := vior.NewClient(vior.Config{
		BaseURL: backendURL,
		Token:   token,
		Timeout: timeout,
	})
	if err != nil {
		return errors.Wrap(err, "create backend client")
	}

	items, err := client.FetchCatalog(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch catalog")
	}
	purchasable := catalog.Purchasable(items)
	slog.Info("catalog fetched",
		slog.Int("total", len(items)),
		slog.Int("purchasable", len(purchasable)),
	)

	snap := snapshot{TakenAt: time.Now().UTC(), Items: make([]snapshotItem, len(purchasable))}
	for i, it := range purchasable {
		snap.Items[i] = snapshotItem{
			Kind:      string(it.Kind),
			ID:        it.ID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Stock:     it.Stock,
		}
	}

	f, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "create output file")
	}
	defer func() { _ = f.Close() }()

	zw := pgzip.NewWriter(f)
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "flush gzip stream")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close output file")
	}

	slog.Info("snapshot written", slog.String("file", out), slog.Int("items", len(snap.Items)))
	return nil
}
