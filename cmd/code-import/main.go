// Command code-import bulk-loads voucher codes from gzip-compressed code
// lists, one code per line. Every imported voucher shares the discount rule
// given on the command line. Codes already present in the database are
// skipped, so re-running an import is safe.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"promo-engine/internal/storage/postgres"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	minCodeLen    = 8
	maxCodeLen    = 10
	batchSize     = 500
)

// The unique index on UPPER(code) makes the conflict target an expression.
const insertVoucherSQL = `INSERT INTO discount_codes
	(id, kind, code, discount_type, discount_value, expiration_date,
	 usage_limit, usage_count, minimum_order_value, eligible_on, eligible_ids, created_at)
	VALUES ($1, 'voucher', $2, $3, $4, $5, $6, 0, $7, '', '{}', $8)
	ON CONFLICT (UPPER(code)) DO NOTHING`

type voucherRule struct {
	discountType  string
	discountValue decimal.Decimal
	expiration    time.Time
	usageLimit    int
	minOrderValue decimal.Decimal
}

func main() {
	var (
		databaseURL   string
		discountType  string
		discountValue string
		expiresIn     time.Duration
		usageLimit    int
		minOrderValue string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&discountType, "discount-type", "percentage", "discount type for imported vouchers (percentage or fixed)")
	flag.StringVar(&discountValue, "discount-value", "10", "discount value for imported vouchers")
	flag.DurationVar(&expiresIn, "expires-in", 30*24*time.Hour, "validity window for imported vouchers")
	flag.IntVar(&usageLimit, "usage-limit", 1, "usage limit per imported voucher")
	flag.StringVar(&minOrderValue, "min-order-value", "0", "minimum order value for imported vouchers")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if flag.NArg() == 0 {
		slog.Error("at least one code file is required")
		os.Exit(1)
	}

	value, err := decimal.NewFromString(discountValue)
	if err != nil {
		slog.Error("invalid discount value", slog.String("value", discountValue))
		os.Exit(1)
	}
	minOrder, err := decimal.NewFromString(minOrderValue)
	if err != nil {
		slog.Error("invalid minimum order value", slog.String("value", minOrderValue))
		os.Exit(1)
	}

	rule := voucherRule{
		discountType:  discountType,
		discountValue: value,
		expiration:    time.Now().UTC().Add(expiresIn),
		usageLimit:    usageLimit,
		minOrderValue: minOrder,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, flag.Args(), rule); err != nil {
		slog.Error("code import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("code import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string, rule voucherRule) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Producers stream the files concurrently; the single consumer dedupes
	// with a bloom filter and writes batches. The filter can drop a genuinely
	// new code at the configured false-positive rate; the ON CONFLICT clause
	// is the exact duplicate guard.
	codes := make(chan string, 4*batchSize)

	g, gctx := errgroup.WithContext(ctx)
	producers, pctx := errgroup.WithContext(gctx)

	for i, f := range files {
		producers.Go(streamFile(pctx, i, f, codes))
	}
	g.Go(func() error {
		defer close(codes)
		return producers.Wait()
	})
	g.Go(func() error {
		return insertCodes(gctx, pool, codes, rule)
	})

	return g.Wait()
}

// streamFile reads one gzip file and sends its well-formed codes downstream.
func streamFile(ctx context.Context, idx int, path string, out chan<- string) func() error {
	return func() error {
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

		var count uint64
		scanner := bufio.NewScanner(gz)
		for scanner.Scan() {
			code := scanner.Text()
			if len(code) < minCodeLen || len(code) > maxCodeLen {
				continue
			}

			select {
			case out <- code:
			case <-ctx.Done():
				return ctx.Err()
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("stream progress", slog.Int("file", idx+1), slog.Uint64("codes", count))
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("stream complete", slog.Int("file", idx+1), slog.Uint64("total_codes", count))
		return nil
	}
}

// insertCodes drains the code channel, skipping codes already seen in this
// run, and writes batches of voucher rows.
func insertCodes(ctx context.Context, pool *pgxpool.Pool, codes <-chan string, rule voucherRule) error {
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	batch := &pgx.Batch{}
	var queued, written uint64

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		br := pool.SendBatch(ctx, batch)
		if err := br.Close(); err != nil {
			return errors.Wrap(err, "send batch")
		}
		written += uint64(batch.Len())
		batch = &pgx.Batch{}
		return nil
	}

	now := time.Now().UTC()
	for code := range codes {
		if seen.TestOrAddString(code) {
			continue
		}

		batch.Queue(insertVoucherSQL,
			uuid.New().String(), code, rule.discountType, rule.discountValue,
			rule.expiration, rule.usageLimit, rule.minOrderValue, now,
		)
		queued++

		if batch.Len() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
			if written%progressEvery < batchSize {
				slog.Info("insert progress", slog.Uint64("written", written))
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	slog.Info("insert complete", slog.Uint64("unique_codes", queued), slog.Uint64("written", written))
	return nil
}
