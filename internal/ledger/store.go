package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avolkov/finledger/internal/models"
)

// TransactionFilter narrows ListTransactions by equality. Nil fields match
// everything.
type TransactionFilter struct {
	AccountID   *uuid.UUID
	Type        *models.TransactionType
	IsRecurring *bool
}

// Store is the storage collaborator the ledger service writes through.
// Lookups scoped by a user ID return (nil, nil) when no row matches, whether
// the record is absent or owned by someone else.
type Store interface {
	GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error)
	// UpsertUser inserts or updates the owner record keyed by external ID,
	// writing the stored ID and creation time back into user.
	UpsertUser(ctx context.Context, user *models.User) error

	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id, userID uuid.UUID) (*models.Account, error)
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]models.Account, error)
	// AdjustAccountBalance applies a signed delta to the stored balance.
	AdjustAccountBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) error

	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, id, userID uuid.UUID) error
	ListTransactions(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]models.Transaction, error)

	// Atomic runs fn against a store whose writes commit together or not at
	// all, isolated from concurrent units of work on the same rows. The
	// ledger service performs every balance-changing sequence inside it.
	Atomic(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
