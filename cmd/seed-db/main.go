// Command seed-db populates the database with a set of demo discount codes.
// It is idempotent: codes that already exist are left untouched.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"promo-engine/internal/domain/discount"
	"promo-engine/internal/domain/order"
	"promo-engine/internal/storage/postgres"
)

const demoOrderID = "00000000-0000-0000-0000-00000000d000"

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	registry := discount.NewRegistry(postgres.NewCodeRepository(pool))
	expiration := time.Now().UTC().AddDate(1, 0, 0)

	demo := []discount.CreateParams{
		{
			Kind:           discount.KindVoucher,
			Code:           "WELCOME10",
			DiscountType:   discount.DiscountPercentage,
			DiscountValue:  decimal.NewFromInt(10),
			ExpirationDate: expiration,
			UsageLimit:     1000,
		},
		{
			Kind:              discount.KindVoucher,
			Code:              "BIGSPENDER",
			DiscountType:      discount.DiscountFixed,
			DiscountValue:     decimal.NewFromInt(25),
			ExpirationDate:    expiration,
			UsageLimit:        500,
			MinimumOrderValue: decimal.NewFromInt(100),
		},
		{
			Kind:           discount.KindPromotion,
			Code:           "BOOKWORM",
			DiscountType:   discount.DiscountPercentage,
			DiscountValue:  decimal.NewFromInt(15),
			ExpirationDate: expiration,
			UsageLimit:     2000,
			EligibleOn:     discount.EligibleCategory,
			EligibleIDs:    []string{"books"},
		},
		{
			Kind:           discount.KindPromotion,
			Code:           "COFFEEDEAL",
			DiscountType:   discount.DiscountFixed,
			DiscountValue:  decimal.NewFromInt(2),
			ExpirationDate: expiration,
			UsageLimit:     2000,
			EligibleOn:     discount.EligibleProduct,
			EligibleIDs:    []string{"sku-coffee-250g", "sku-coffee-1kg"},
		},
	}

	for _, params := range demo {
		if err := seedCode(ctx, registry, params); err != nil {
			return errors.Wrapf(err, "seed code %s", params.Code)
		}
	}

	if err := seedOrder(ctx, postgres.NewOrderRepository(pool)); err != nil {
		return errors.Wrap(err, "seed demo order")
	}

	return nil
}

func seedOrder(ctx context.Context, orders order.Repository) error {
	if _, err := orders.GetByID(ctx, demoOrderID); err == nil {
		slog.Info("demo order already present, skipping", slog.String("id", demoOrderID))
		return nil
	} else if !errors.Is(err, order.ErrNotFound) {
		return errors.Wrap(err, "check existing order")
	}

	items := []order.OrderItem{
		{ProductID: "sku-coffee-250g", Category: "coffee", Price: decimal.RequireFromString("12.50"), Quantity: 2},
		{ProductID: "sku-go-book", Category: "books", Price: decimal.RequireFromString("39.90"), Quantity: 1},
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	o := &order.Order{
		ID:          demoOrderID,
		TotalAmount: total.Round(2),
		Discount:    decimal.Zero,
		Items:       items,
		Version:     1,
		CreatedAt:   time.Now().UTC(),
	}
	if err := orders.Create(ctx, o); err != nil {
		return err
	}

	slog.Info("seeded demo order", slog.String("id", o.ID), slog.String("total", o.TotalAmount.String()))
	return nil
}

func seedCode(ctx context.Context, registry *discount.Registry, params discount.CreateParams) error {
	_, err := registry.FindByCode(ctx, params.Code)
	if err == nil {
		slog.Info("code already present, skipping", slog.String("code", params.Code))
		return nil
	}
	if !errors.Is(err, discount.ErrInvalidCode) {
		return errors.Wrap(err, "check existing code")
	}

	c, err := registry.Create(ctx, params)
	if err != nil {
		return err
	}

	slog.Info("seeded code",
		slog.String("code", c.Code),
		slog.String("kind", string(c.Kind)),
		slog.String("id", c.ID),
	)
	return nil
}
