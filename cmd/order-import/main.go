// Command order-import migrates legacy order-history exports into the
// storefront database. Exports are gzipped JSONL files, one order per line,
// and the same order commonly appears in several files, so a first pass
// builds per-file bloom filters over order ids to flag likely cross-file
// duplicates before anything touches the database.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/submonth/storefront/internal/domain/currency"
	"github.com/submonth/storefront/internal/domain/order"
	"github.com/submonth/storefront/internal/repository"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000
)

// legacyOrder is one line of a legacy export file.
type legacyOrder struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Customer  struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"customer"`
	Items []struct {
		ProductID string          `json:"productId"`
		Name      string          `json:"name"`
		Quantity  int             `json:"quantity"`
		Price     decimal.Decimal `json:"price"`
		Duration  string          `json:"duration"`
	} `json:"items"`
	Totals struct {
		Subtotal decimal.Decimal `json:"subtotal"`
		Tax      decimal.Decimal `json:"tax"`
		Shipping decimal.Decimal `json:"shipping"`
		Total    decimal.Decimal `json:"total"`
	} `json:"totals"`
	Currency string                `json:"currency"`
	Status   string                `json:"status"`
	Notes    string                `json:"notes"`
	Payment  *order.PaymentDetails `json:"paymentDetails"`
}

func main() {
	var (
		databaseURL string
		dataDir     string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&dataDir, "data-dir", "data", "directory containing orders-*.jsonl.gz export files")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("order import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("order import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "orders-*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob export files")
	}
	if len(files) == 0 {
		return errors.Errorf("no orders-*.jsonl.gz files in %s", dataDir)
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("pass 2: importing orders")
	return importOrders(ctx, repository.NewOrderRepository(pool), files, filters)
}

// buildBloomFilters creates one bloom filter of order ids per file,
// concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var count uint64

			err := streamGzLines(ctx, f, func(line []byte) error {
				var rec struct {
					ID string `json:"id"`
				}
				if err := json.Unmarshal(line, &rec); err != nil || rec.ID == "" {
					return nil // counted and reported in pass 2
				}
				filter.AddString(rec.ID)
				count++
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "build filter for %s", f)
			}

			slog.Info("pass 1 complete", slog.String("file", f), slog.Uint64("orders", count))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// importOrders streams the files in order. Ids flagged by an earlier file's
// bloom filter are tracked exactly, so only the first occurrence of each
// order is written; the database unique constraint backstops bloom false
// negatives (there are none) and same-file repeats.
func importOrders(ctx context.Context, repo *repository.OrderRepository, files []string, filters []*bloom.BloomFilter) error {
	seen := make(map[string]struct{})
	var imported, duplicates, malformed uint64

	for i, f := range files {
		err := streamGzLines(ctx, f, func(line []byte) error {
			var rec legacyOrder
			if err := json.Unmarshal(line, &rec); err != nil || rec.ID == "" {
				malformed++
				return nil
			}

			if crossFileCandidate(rec.ID, i, filters) {
				if _, dup := seen[rec.ID]; dup {
					duplicates++
					return nil
				}
				seen[rec.ID] = struct{}{}
			}

			o, err := toDomainOrder(&rec)
			if err != nil {
				malformed++
				slog.Warn("skipping malformed order", slog.String("id", rec.ID), slog.String("error", err.Error()))
				return nil
			}

			switch err := repo.Create(ctx, o); {
			case errors.Is(err, order.ErrDuplicateID):
				duplicates++
			case err != nil:
				return errors.Wrapf(err, "import order %s", rec.ID)
			default:
				imported++
				if imported%progressEvery == 0 {
					slog.Info("import progress", slog.Uint64("imported", imported))
				}
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "import %s", f)
		}
	}

	slog.Info("import summary",
		slog.Uint64("imported", imported),
		slog.Uint64("duplicates", duplicates),
		slog.Uint64("malformed", malformed),
	)
	return nil
}

// crossFileCandidate reports whether id may also appear in another file.
func crossFileCandidate(id string, idx int, filters []*bloom.BloomFilter) bool {
	for j, f := range filters {
		if j != idx && f.TestString(id) {
			return true
		}
	}
	return false
}

func toDomainOrder(rec *legacyOrder) (*order.Order, error) {
	code, err := currency.Parse(rec.Currency)
	if err != nil {
		return nil, err
	}
	status, err := order.ParseStatus(rec.Status)
	if err != nil {
		return nil, err
	}

	items := make([]order.LineItem, len(rec.Items))
	for i, it := range rec.Items {
		items[i] = order.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
			Duration:  it.Duration,
		}
	}

	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = rec.CreatedAt
	}

	return &order.Order{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: updatedAt,
		Customer: order.Customer{
			Name:  rec.Customer.Name,
			Email: rec.Customer.Email,
			Phone: rec.Customer.Phone,
		},
		Items: items,
		Totals: order.Totals{
			Subtotal: rec.Totals.Subtotal,
			Tax:      rec.Totals.Tax,
			Shipping: rec.Totals.Shipping,
			Total:    rec.Totals.Total,
		},
		Currency:     code,
		Status:       status,
		DeliveryType: "digital",
		Notes:        rec.Notes,
		Payment:      rec.Payment,
		Version:      1,
	}, nil
}

// streamGzLines opens a gzip-compressed file and calls fn for each line.
func streamGzLines(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
