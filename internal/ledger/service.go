// Package ledger implements the mutation engine for accounts and
// transactions. Every balance change happens together with the transaction
// row that causes it, inside one atomic unit of work, so an account balance
// is never observable out of sync with the sum of its transactions.
package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avolkov/finledger/internal/apperr"
	"github.com/avolkov/finledger/internal/models"
)

type Service struct {
	store Store
	log   zerolog.Logger
}

func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log}
}

// TransactionInput is the caller-supplied part of a transaction. The next
// recurring date is always derived from it, never accepted from the caller.
type TransactionInput struct {
	AccountID         uuid.UUID
	Type              models.TransactionType
	Amount            decimal.Decimal
	Date              time.Time
	Description       string
	Category          string
	IsRecurring       bool
	RecurringInterval models.RecurringInterval
}

func (in *TransactionInput) validate() error {
	if in.AccountID == uuid.Nil {
		return apperr.New(apperr.Validation, "account id is required")
	}
	if !in.Type.Valid() {
		return apperr.Newf(apperr.Validation, "unrecognized transaction type %q", in.Type)
	}
	if in.Amount.IsNegative() {
		return apperr.New(apperr.Validation, "amount must not be negative")
	}
	if in.Date.IsZero() {
		return apperr.New(apperr.Validation, "transaction date is required")
	}
	if in.RecurringInterval != "" && !in.RecurringInterval.Valid() {
		return apperr.Newf(apperr.Validation, "unrecognized recurring interval %q", in.RecurringInterval)
	}
	return nil
}

// nextRecurring derives the schedule field: set only when the transaction is
// recurring and carries an interval, null otherwise.
func (in *TransactionInput) nextRecurring() (*time.Time, *models.RecurringInterval, error) {
	if !in.IsRecurring || in.RecurringInterval == "" {
		return nil, nil, nil
	}
	next, err := NextRecurringDate(in.Date, in.RecurringInterval)
	if err != nil {
		return nil, nil, err
	}
	interval := in.RecurringInterval
	return &next, &interval, nil
}

func (s *Service) CreateTransaction(ctx context.Context, callerID string, in TransactionInput) (*models.Transaction, error) {
	if callerID == "" {
		return nil, apperr.New(apperr.Unauthorized, "no caller identity")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	next, interval, err := in.nextRecurring()
	if err != nil {
		return nil, err
	}

	var created *models.Transaction
	err = s.store.Atomic(ctx, func(ctx context.Context, st Store) error {
		user, err := s.resolveUser(ctx, st, callerID)
		if err != nil {
			return err
		}
		account, err := st.GetAccount(ctx, in.AccountID, user.ID)
		if err != nil {
			return apperr.Wrap(apperr.External, "look up account", err)
		}
		if account == nil {
			return apperr.New(apperr.NotFound, "account not found")
		}

		now := time.Now().UTC()
		tx := &models.Transaction{
			ID:                uuid.New(),
			UserID:            user.ID,
			AccountID:         account.ID,
			Type:              in.Type,
			Amount:            in.Amount,
			Description:       strings.TrimSpace(in.Description),
			Category:          strings.TrimSpace(in.Category),
			Date:              in.Date,
			IsRecurring:       in.IsRecurring,
			RecurringInterval: interval,
			NextRecurringDate: next,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := st.CreateTransaction(ctx, tx); err != nil {
			return apperr.Wrap(apperr.External, "create transaction", err)
		}
		if err := st.AdjustAccountBalance(ctx, account.ID, tx.SignedAmount()); err != nil {
			return apperr.Wrap(apperr.External, "update account balance", err)
		}
		created = tx
		return nil
	})
	if err != nil {
		return nil, atomicErr(err)
	}

	s.log.Info().
		Str("transaction_id", created.ID.String()).
		Str("account_id", created.AccountID.String()).
		Str("type", string(created.Type)).
		Msg("transaction created")
	return created, nil
}

// UpdateTransaction rewrites a transaction and applies the net delta between
// the new and old signed contributions to the account balance, so the
// balance moves exactly once. Moving a transaction to a different account is
// rejected.
func (s *Service) UpdateTransaction(ctx context.Context, callerID string, id uuid.UUID, in TransactionInput) (*models.Transaction, error) {
	if callerID == "" {
		return nil, apperr.New(apperr.Unauthorized, "no caller identity")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	next, interval, err := in.nextRecurring()
	if err != nil {
		return nil, err
	}

	var updated *models.Transaction
	err = s.store.Atomic(ctx, func(ctx context.Context, st Store) error {
		user, err := s.resolveUser(ctx, st, callerID)
		if err != nil {
			return err
		}
		existing, err := st.GetTransaction(ctx, id, user.ID)
		if err != nil {
			return apperr.Wrap(apperr.External, "look up transaction", err)
		}
		if existing == nil {
			return apperr.New(apperr.NotFound, "transaction not found")
		}
		if in.AccountID != existing.AccountID {
			return apperr.New(apperr.Validation, "transaction cannot be moved to a different account")
		}

		tx := &models.Transaction{
			ID:                existing.ID,
			UserID:            existing.UserID,
			AccountID:         existing.AccountID,
			Type:              in.Type,
			Amount:            in.Amount,
			Description:       strings.TrimSpace(in.Description),
			Category:          strings.TrimSpace(in.Category),
			Date:              in.Date,
			IsRecurring:       in.IsRecurring,
			RecurringInterval: interval,
			NextRecurringDate: next,
			CreatedAt:         existing.CreatedAt,
			UpdatedAt:         time.Now().UTC(),
		}
		netDelta := tx.SignedAmount().Sub(existing.SignedAmount())

		if err := st.UpdateTransaction(ctx, tx); err != nil {
			return apperr.Wrap(apperr.External, "update transaction", err)
		}
		if err := st.AdjustAccountBalance(ctx, existing.AccountID, netDelta); err != nil {
			return apperr.Wrap(apperr.External, "update account balance", err)
		}
		updated = tx
		return nil
	})
	if err != nil {
		return nil, atomicErr(err)
	}

	s.log.Info().
		Str("transaction_id", updated.ID.String()).
		Msg("transaction updated")
	return updated, nil
}

// DeleteTransaction removes a transaction and reverses its contribution to
// the account balance in the same unit of work.
func (s *Service) DeleteTransaction(ctx context.Context, callerID string, id uuid.UUID) error {
	if callerID == "" {
		return apperr.New(apperr.Unauthorized, "no caller identity")
	}
	return atomicErr(s.store.Atomic(ctx, func(ctx context.Context, st Store) error {
		user, err := s.resolveUser(ctx, st, callerID)
		if err != nil {
			return err
		}
		existing, err := st.GetTransaction(ctx, id, user.ID)
		if err != nil {
			return apperr.Wrap(apperr.External, "look up transaction", err)
		}
		if existing == nil {
			return apperr.New(apperr.NotFound, "transaction not found")
		}
		if err := st.DeleteTransaction(ctx, id, user.ID); err != nil {
			return apperr.Wrap(apperr.External, "delete transaction", err)
		}
		if err := st.AdjustAccountBalance(ctx, existing.AccountID, existing.SignedAmount().Neg()); err != nil {
			return apperr.Wrap(apperr.External, "update account balance", err)
		}
		return nil
	}))
}

func (s *Service) GetTransaction(ctx context.Context, callerID string, id uuid.UUID) (*models.Transaction, error) {
	if callerID == "" {
		return nil, apperr.New(apperr.Unauthorized, "no caller identity")
	}
	user, err := s.resolveUser(ctx, s.store, callerID)
	if err != nil {
		return nil, err
	}
	tx, err := s.store.GetTransaction(ctx, id, user.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "look up transaction", err)
	}
	if tx == nil {
		return nil, apperr.New(apperr.NotFound, "transaction not found")
	}
	return tx, nil
}

// ListTransactions returns the caller's transactions, newest economic date
// first.
func (s *Service) ListTransactions(ctx context.Context, callerID string, filter TransactionFilter) ([]models.Transaction, error) {
	if callerID == "" {
		return nil, apperr.New(apperr.Unauthorized, "no caller identity")
	}
	user, err := s.resolveUser(ctx, s.store, callerID)
	if err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx, user.ID, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "list transactions", err)
	}
	return txs, nil
}

// CreateAccount opens an account with a zero balance; from then on the
// balance only moves together with transactions.
func (s *Service) CreateAccount(ctx context.Context, callerID, name string) (*models.Account, error) {
	if callerID == "" {
		return nil, apperr.New(apperr.Unauthorized, "no caller identity")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.Validation, "account name is required")
	}
	user, err := s.resolveUser(ctx, s.store, callerID)
	if err != nil {
		return nil, err
	}
	account := &models.Account{
		ID:        uuid.New(),
		UserID:    user.ID,
		Name:      name,
		Balance:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, apperr.Wrap(apperr.External, "create account", err)
	}
	return account, nil
}

func (s *Service) ListAccounts(ctx context.Context, callerID string) ([]models.Account, error) {
	if callerID == "" {
		return nil, apperr.New(apperr.Unauthorized, "no caller identity")
	}
	user, err := s.resolveUser(ctx, s.store, callerID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.store.ListAccounts(ctx, user.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "list accounts", err)
	}
	return accounts, nil
}

// SyncUser upserts the owner record for a caller identity, so first-time
// callers get a user row before their first mutation.
func (s *Service) SyncUser(ctx context.Context, callerID, email, name string) (*models.User, error) {
	if callerID == "" {
		return nil, apperr.New(apperr.Unauthorized, "no caller identity")
	}
	user := &models.User{
		ID:         uuid.New(),
		ExternalID: callerID,
		Email:      strings.TrimSpace(email),
		Name:       strings.TrimSpace(name),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.UpsertUser(ctx, user); err != nil {
		return nil, apperr.Wrap(apperr.External, "sync user", err)
	}
	return user, nil
}

// atomicErr tags failures of the unit of work itself, begin or commit, as
// external service errors. Errors raised inside the unit already carry their
// kind and pass through untouched.
func atomicErr(err error) error {
	if err == nil || apperr.KindOf(err) != apperr.Unknown {
		return err
	}
	return apperr.Wrap(apperr.External, "transaction failed", err)
}

func (s *Service) resolveUser(ctx context.Context, st Store, callerID string) (*models.User, error) {
	user, err := st.GetUserByExternalID(ctx, callerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "look up user", err)
	}
	if user == nil {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	return user, nil
}
