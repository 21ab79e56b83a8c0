package repository

import (
	"github.com/chucky-1/stockledger/internal/model"
	"github.com/shopspring/decimal"

	"context"
)

// AccountTx is the write surface of one account inside its exclusive section.
// Nothing written through it is visible to readers until the section commits.
type AccountTx interface {
	Cash(ctx context.Context) (decimal.Decimal, error)
	SetCash(ctx context.Context, cash decimal.Decimal) error
	Shares(ctx context.Context, symbol string) (int64, error)
	// SetShares stores the holding of symbol; zero removes it
	SetShares(ctx context.Context, symbol string, shares int64) error
	Append(ctx context.Context, t *model.Transaction) error
}

// AccountStore is the persistence boundary of the ledger
type AccountStore interface {
	CreateAccount(ctx context.Context, cash decimal.Decimal) (model.Account, error)
	Cash(ctx context.Context, accountID int64) (decimal.Decimal, error)
	Holding(ctx context.Context, accountID int64, symbol string) (int64, error)
	Snapshot(ctx context.Context, accountID int64) (model.Snapshot, error)
	History(ctx context.Context, accountID int64) ([]model.Transaction, error)
	Ledger(ctx context.Context, accountID int64) (model.Snapshot, []model.Transaction, error)
	// WithAccountLock runs fn in an exclusive section of the account. Either every write
	// of fn commits or none does; an error returned by fn is returned unchanged.
	WithAccountLock(ctx context.Context, accountID int64, fn func(tx AccountTx) error) error
}

func accountNotFound(accountID int64) error {
	return model.Errorf(model.KindAccountNotFound, "account %d", accountID)
}

func checkTransaction(t *model.Transaction, accountID int64) error {
	switch {
	case t.AccountID != accountID:
		return model.Errorf(model.KindStore, "transaction for account %d appended to account %d", t.AccountID, accountID)
	case t.ID == "":
		return model.Errorf(model.KindStore, "transaction without id")
	case t.Shares <= 0:
		return model.Errorf(model.KindStore, "transaction shares must be positive, got %d", t.Shares)
	case !t.Price.IsPositive():
		return model.Errorf(model.KindStore, "transaction price must be positive, got %s", t.Price)
	case !t.Side.Valid():
		return model.Errorf(model.KindStore, "unknown side %q", t.Side)
	}
	return nil
}
