// Package repository stores accounts, holdings and the transaction log
package repository

import (
	"github.com/chucky-1/stockledger/internal/model"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"context"
	"errors"
	"fmt"
	"time"
)

// Repository works with postgres
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository is constructor
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateAccount inserts an account funded with cash
func (r *Repository) CreateAccount(ctx context.Context, cash decimal.Decimal) (model.Account, error) {
	if cash.IsNegative() {
		return model.Account{}, model.Errorf(model.KindValidation, "initial cash must not be negative, got %s", cash)
	}
	a := model.Account{Cash: cash, InitialCash: cash}
	err := r.pool.QueryRow(ctx, "INSERT INTO accounts (cash, initial_cash) VALUES ($1::numeric, $1::numeric) "+
		"RETURNING id, created_at", cash.String()).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return model.Account{}, model.Wrap(model.KindStore, err, "create account")
	}
	return a, nil
}

// Cash returns the committed cash of an account
func (r *Repository) Cash(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	a, err := getAccount(ctx, r.pool, accountID, "")
	if err != nil {
		return decimal.Decimal{}, err
	}
	return a.Cash, nil
}

// Holding returns the committed share count of symbol, zero when absent
func (r *Repository) Holding(ctx context.Context, accountID int64, symbol string) (int64, error) {
	if _, err := getAccount(ctx, r.pool, accountID, ""); err != nil {
		return 0, err
	}
	return getShares(ctx, r.pool, accountID, symbol)
}

// Snapshot reads cash and holdings in one repeatable-read transaction
func (r *Repository) Snapshot(ctx context.Context, accountID int64) (s model.Snapshot, err error) {
	err = r.readOnly(ctx, func(tx pgx.Tx) error {
		s, err = snapshot(ctx, tx, accountID)
		return err
	})
	return s, err
}

// History returns the transaction log of an account, oldest first
func (r *Repository) History(ctx context.Context, accountID int64) (h []model.Transaction, err error) {
	err = r.readOnly(ctx, func(tx pgx.Tx) error {
		if _, err := getAccount(ctx, tx, accountID, ""); err != nil {
			return err
		}
		h, err = history(ctx, tx, accountID)
		return err
	})
	return h, err
}

// Ledger reads the snapshot and the log in one repeatable-read transaction
func (r *Repository) Ledger(ctx context.Context, accountID int64) (s model.Snapshot, h []model.Transaction, err error) {
	err = r.readOnly(ctx, func(tx pgx.Tx) error {
		if s, err = snapshot(ctx, tx, accountID); err != nil {
			return err
		}
		h, err = history(ctx, tx, accountID)
		return err
	})
	return s, h, err
}

// WithAccountLock runs fn in a database transaction holding the account row lock
func (r *Repository) WithAccountLock(ctx context.Context, accountID int64, fn func(tx AccountTx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return model.Wrap(model.KindStore, err, "begin")
	}
	defer func() {
		// no-op after a successful commit
		rbErr := tx.Rollback(context.Background())
		if rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.WithField("account", accountID).Error(rbErr)
		}
	}()

	a, err := getAccount(ctx, tx, accountID, " FOR UPDATE")
	if err != nil {
		return err
	}
	if err = fn(&pgTx{tx: tx, accountID: accountID, cash: a.Cash}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return model.Wrap(model.KindStore, err, "commit")
	}
	return nil
}

func (r *Repository) readOnly(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return model.Wrap(model.KindStore, err, "begin read")
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return model.Wrap(model.KindStore, err, "commit read")
	}
	return nil
}

// pgTx caches the locked cash so that reads inside the section see its own writes
type pgTx struct {
	tx        pgx.Tx
	accountID int64
	cash      decimal.Decimal
}

func (t *pgTx) Cash(ctx context.Context) (decimal.Decimal, error) {
	return t.cash, nil
}

func (t *pgTx) SetCash(ctx context.Context, cash decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, "UPDATE accounts SET cash = $2::numeric WHERE id = $1", t.accountID, cash.String())
	if err != nil {
		return model.Wrap(model.KindStore, err, "update cash")
	}
	t.cash = cash
	return nil
}

func (t *pgTx) Shares(ctx context.Context, symbol string) (int64, error) {
	return getShares(ctx, t.tx, t.accountID, symbol)
}

func (t *pgTx) SetShares(ctx context.Context, symbol string, shares int64) error {
	var err error
	switch {
	case shares < 0:
		return model.Errorf(model.KindStore, "shares of %s must not be negative, got %d", symbol, shares)
	case shares == 0:
		_, err = t.tx.Exec(ctx, "DELETE FROM holdings WHERE account_id = $1 AND symbol = $2", t.accountID, symbol)
	default:
		_, err = t.tx.Exec(ctx, "INSERT INTO holdings (account_id, symbol, shares) VALUES ($1, $2, $3) "+
			"ON CONFLICT (account_id, symbol) DO UPDATE SET shares = EXCLUDED.shares",
			t.accountID, symbol, shares)
	}
	if err != nil {
		return model.Wrap(model.KindStore, err, fmt.Sprintf("update holding %s", symbol))
	}
	return nil
}

func (t *pgTx) Append(ctx context.Context, tr *model.Transaction) error {
	if err := checkTransaction(tr, t.accountID); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, "INSERT INTO transactions (id, account_id, symbol, shares, price, side, executed_at) "+
		"VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)",
		tr.ID, tr.AccountID, tr.Symbol, tr.Shares, tr.Price.String(), string(tr.Side), tr.ExecutedAt)
	if err != nil {
		return model.Wrap(model.KindStore, err, "append transaction")
	}
	return nil
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx
type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func getAccount(ctx context.Context, q querier, accountID int64, suffix string) (model.Account, error) {
	var (
		a                 model.Account
		cash, initialCash string
	)
	err := q.QueryRow(ctx, "SELECT id, cash::text, initial_cash::text, created_at FROM accounts WHERE id = $1"+suffix,
		accountID).Scan(&a.ID, &cash, &initialCash, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, accountNotFound(accountID)
	}
	if err != nil {
		return model.Account{}, model.Wrap(model.KindStore, err, "read account")
	}
	if a.Cash, err = decimal.NewFromString(cash); err != nil {
		return model.Account{}, model.Wrap(model.KindStore, err, "parse cash")
	}
	if a.InitialCash, err = decimal.NewFromString(initialCash); err != nil {
		return model.Account{}, model.Wrap(model.KindStore, err, "parse initial cash")
	}
	return a, nil
}

func getShares(ctx context.Context, q querier, accountID int64, symbol string) (int64, error) {
	var shares int64
	err := q.QueryRow(ctx, "SELECT shares FROM holdings WHERE account_id = $1 AND symbol = $2",
		accountID, symbol).Scan(&shares)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, model.Wrap(model.KindStore, err, "read holding")
	}
	return shares, nil
}

func snapshot(ctx context.Context, q querier, accountID int64) (model.Snapshot, error) {
	a, err := getAccount(ctx, q, accountID, "")
	if err != nil {
		return model.Snapshot{}, err
	}
	rows, err := q.Query(ctx, "SELECT symbol, shares FROM holdings WHERE account_id = $1 ORDER BY symbol", accountID)
	if err != nil {
		return model.Snapshot{}, model.Wrap(model.KindStore, err, "read holdings")
	}
	defer rows.Close()

	s := model.Snapshot{Account: a, Holdings: make([]model.Holding, 0)}
	for rows.Next() {
		h := model.Holding{AccountID: accountID}
		if err = rows.Scan(&h.Symbol, &h.Shares); err != nil {
			return model.Snapshot{}, model.Wrap(model.KindStore, err, "scan holding")
		}
		s.Holdings = append(s.Holdings, h)
	}
	if err = rows.Err(); err != nil {
		return model.Snapshot{}, model.Wrap(model.KindStore, err, "read holdings")
	}
	return s, nil
}

func history(ctx context.Context, q querier, accountID int64) ([]model.Transaction, error) {
	rows, err := q.Query(ctx, "SELECT id, symbol, shares, price::text, side, executed_at FROM transactions "+
		"WHERE account_id = $1 ORDER BY id", accountID)
	if err != nil {
		return nil, model.Wrap(model.KindStore, err, "read transactions")
	}
	defer rows.Close()

	out := make([]model.Transaction, 0)
	for rows.Next() {
		t := model.Transaction{AccountID: accountID}
		var (
			price, side string
			executedAt  time.Time
		)
		if err = rows.Scan(&t.ID, &t.Symbol, &t.Shares, &price, &side, &executedAt); err != nil {
			return nil, model.Wrap(model.KindStore, err, "scan transaction")
		}
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, model.Wrap(model.KindStore, err, "parse price")
		}
		t.Side = model.Side(side)
		t.ExecutedAt = executedAt.UTC()
		out = append(out, t)
	}
	if err = rows.Err(); err != nil {
		return nil, model.Wrap(model.KindStore, err, "read transactions")
	}
	return out, nil
}
