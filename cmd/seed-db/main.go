// Command seed-db loads a demo catalog, discount codes, and an API key into
// the database. Intended for local development and integration environments.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/eminaliyev/gift-api/internal/storage/postgres"
)

type priceJSON struct {
	Value     decimal.Decimal `json:"value"`
	StartDate time.Time       `json:"startDate"`
	EndDate   *time.Time      `json:"endDate"`
}

type productJSON struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Prices      []priceJSON `json:"prices"`
}

type discountJSON struct {
	Code      string          `json:"code"`
	Type      string          `json:"type"`
	Value     decimal.Decimal `json:"value"`
	Limit     *int            `json:"limit"`
	StartDate time.Time       `json:"startDate"`
	EndDate   *time.Time      `json:"endDate"`
}

type seedFile struct {
	Products  []productJSON  `json:"products"`
	Discounts []discountJSON `json:"discounts"`
}

func main() {
	var (
		databaseURL  string
		seedPath     string
		apiKey       string
		apiKeyPepper string
		customerID   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/catalog.json", "path to seed JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or GIFT_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or GIFT_API_KEY_PEPPER env)")
	flag.StringVar(&customerID, "customer-id", "demo-customer", "customer bound to the seeded API key")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("GIFT_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or GIFT_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("GIFT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath, apiKey, apiKeyPepper, customerID); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath, apiKey, pepper, customerID string) error {
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

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed JSON")
	}

	if err := seedProducts(ctx, pool, seed.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedDiscounts(ctx, pool, seed.Discounts); err != nil {
		return errors.Wrap(err, "seed discounts")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper, customerID); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

const (
	upsertProductSQL = `
INSERT INTO products (id, name, description, category)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name, description = EXCLUDED.description, category = EXCLUDED.category`

	upsertPriceSQL = `
INSERT INTO prices (id, product_id, value, start_date, end_date)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET value = EXCLUDED.value, start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date`

	upsertDiscountSQL = `
INSERT INTO discounts (code, type, value, use_limit, remaining, start_date, end_date)
VALUES ($1, $2, $3, $4, $4, $5, $6)
ON CONFLICT (code) DO UPDATE
SET type = EXCLUDED.type, value = EXCLUDED.value,
    use_limit = EXCLUDED.use_limit, remaining = EXCLUDED.remaining,
    start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date`

	upsertAPIKeySQL = `
INSERT INTO api_keys (id, key_hash, customer_id, billing_profile, active)
VALUES ($1, $2, $3, $4, TRUE)
ON CONFLICT (id) DO UPDATE
SET key_hash = EXCLUDED.key_hash, customer_id = EXCLUDED.customer_id,
    billing_profile = EXCLUDED.billing_profile, active = TRUE`
)

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Description, p.Category); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		for i, price := range p.Prices {
			priceID := fmt.Sprintf("%s-price-%d", p.ID, i+1)
			if _, err := pool.Exec(ctx, upsertPriceSQL,
				priceID, p.ID, price.Value, price.StartDate, price.EndDate); err != nil {
				return errors.Wrapf(err, "upsert price %s", priceID)
			}
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}
	return nil
}

func seedDiscounts(ctx context.Context, pool *pgxpool.Pool, discounts []discountJSON) error {
	slog.Info("upserting discounts", slog.Int("count", len(discounts)))

	for _, d := range discounts {
		if _, err := pool.Exec(ctx, upsertDiscountSQL,
			d.Code, d.Type, d.Value, d.Limit, d.StartDate, d.EndDate); err != nil {
			return errors.Wrapf(err, "upsert discount %s", d.Code)
		}
		slog.Info("upserted discount", slog.String("code", d.Code), slog.String("type", d.Type))
	}
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper, customerID string) error {
	slog.Info("seeding default API key", slog.String("customer_id", customerID))

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		"default", keyHash, customerID, "pm_card_visa"); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}
	return nil
}
