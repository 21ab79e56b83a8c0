package repository

import (
	"github.com/jackc/pgx/v4/pgxpool"

	"context"
	"fmt"
)

// Schema creates the ledger tables. Holdings never store zero shares and the
// transaction log rejects updates and deletes.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id           BIGSERIAL PRIMARY KEY,
	cash         NUMERIC NOT NULL CHECK (cash >= 0),
	initial_cash NUMERIC NOT NULL CHECK (initial_cash >= 0),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS holdings (
	account_id BIGINT NOT NULL REFERENCES accounts (id),
	symbol     TEXT NOT NULL,
	shares     BIGINT NOT NULL CHECK (shares > 0),
	PRIMARY KEY (account_id, symbol)
);

CREATE TABLE IF NOT EXISTS transactions (
	id          TEXT PRIMARY KEY,
	account_id  BIGINT NOT NULL REFERENCES accounts (id),
	symbol      TEXT NOT NULL,
	shares      BIGINT NOT NULL CHECK (shares > 0),
	price       NUMERIC NOT NULL CHECK (price > 0),
	side        TEXT NOT NULL CHECK (side IN ('BUY', 'SELL')),
	executed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS transactions_account_id_idx ON transactions (account_id, id);

CREATE OR REPLACE FUNCTION transactions_append_only() RETURNS trigger AS $$
BEGIN
	RAISE EXCEPTION 'transactions are append-only';
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS transactions_append_only ON transactions;
CREATE TRIGGER transactions_append_only
	BEFORE UPDATE OR DELETE ON transactions
	FOR EACH ROW EXECUTE FUNCTION transactions_append_only();
`

// Migrate applies Schema
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
