package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS stores (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    owner_id    TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS customers (
    id          TEXT PRIMARY KEY,
    email       TEXT NOT NULL UNIQUE,
    name        TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS surprise_bags (
    id                TEXT PRIMARY KEY,
    store_id          TEXT NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
    name              TEXT NOT NULL,
    description       TEXT NOT NULL DEFAULT '',
    original_value    DOUBLE PRECISION NOT NULL DEFAULT 0,
    discounted_price  DOUBLE PRECISION NOT NULL DEFAULT 0,
    quantity          INT NOT NULL CHECK (quantity >= 0),
    status            TEXT NOT NULL CHECK (status IN ('AVAILABLE','SOLD_OUT','CANCELLED')),
    pickup_start      TIMESTAMPTZ NOT NULL,
    pickup_end        TIMESTAMPTZ NOT NULL,
    CHECK (pickup_start < pickup_end),
    CHECK (status = 'CANCELLED' OR (status = 'SOLD_OUT') = (quantity = 0))
);

CREATE INDEX IF NOT EXISTS surprise_bags_available ON surprise_bags(pickup_start) WHERE status = 'AVAILABLE';

CREATE TABLE IF NOT EXISTS orders (
    id           TEXT PRIMARY KEY,
    bag_id       TEXT NOT NULL REFERENCES surprise_bags(id) ON DELETE RESTRICT,
    customer_id  TEXT NOT NULL REFERENCES customers(id) ON DELETE RESTRICT,
    status       TEXT NOT NULL CHECK (status IN ('PENDING','CONFIRMED','CANCELLED')),
    pickup_code  CHAR(6) NOT NULL,
    order_date   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS orders_customer ON orders(customer_id);
CREATE UNIQUE INDEX IF NOT EXISTS orders_live_pickup_code ON orders(bag_id, pickup_code) WHERE status <> 'CANCELLED';
`

// Migrate applies the schema. It is idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
