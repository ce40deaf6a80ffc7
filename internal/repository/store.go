// Package repository implements the ledger's storage collaborator on
// Postgres via pgx. Money columns are NUMERIC and travel as text so they
// never pass through binary floating point.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/avolkov/finledger/internal/database"
	"github.com/avolkov/finledger/internal/ledger"
	"github.com/avolkov/finledger/internal/models"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same queries
// run inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db *database.DB
	q  querier
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db, q: db.Pool}
}

// maxTxAttempts bounds retries of serialization aborts; contention beyond
// that surfaces to the caller.
const maxTxAttempts = 3

// Atomic runs fn inside a serializable database transaction. Serializable is
// requested explicitly: two concurrent balance mutations against the same
// account must not both proceed from the same pre-update state. Postgres
// aborts one of them with a serialization failure, which is retried here
// with a fresh transaction rather than bubbled up to the caller.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, st ledger.Store) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if !isSerializationFailure(err) {
			return err
		}
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context, st ledger.Store) error) error {
	tx, err := s.db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(ctx, &Store{db: s.db, q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SQLSTATE 40001, raised by Postgres when a serializable transaction cannot
// be fit into the serial order.
const serializationFailureCode = "40001"

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == serializationFailureCode
}

func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	user := &models.User{}
	err := s.q.QueryRow(ctx,
		`SELECT id, external_id, email, name, created_at
		 FROM users WHERE external_id = $1`,
		externalID,
	).Scan(&user.ID, &user.ExternalID, &user.Email, &user.Name, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) UpsertUser(ctx context.Context, user *models.User) error {
	return s.q.QueryRow(ctx,
		`INSERT INTO users (id, external_id, email, name, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (external_id)
		 DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name
		 RETURNING id, created_at`,
		user.ID, user.ExternalID, user.Email, user.Name, user.CreatedAt,
	).Scan(&user.ID, &user.CreatedAt)
}

func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO accounts (id, user_id, name, balance, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		account.ID, account.UserID, account.Name, account.Balance.String(), account.CreatedAt,
	)
	return err
}

func (s *Store) GetAccount(ctx context.Context, id, userID uuid.UUID) (*models.Account, error) {
	account := &models.Account{}
	var balance string
	err := s.q.QueryRow(ctx,
		`SELECT id, user_id, name, balance::text, created_at
		 FROM accounts WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&account.ID, &account.UserID, &account.Name, &balance, &account.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if account.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	return account, nil
}

func (s *Store) ListAccounts(ctx context.Context, userID uuid.UUID) ([]models.Account, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, user_id, name, balance::text, created_at
		 FROM accounts WHERE user_id = $1
		 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		var balance string
		if err := rows.Scan(&account.ID, &account.UserID, &account.Name, &balance, &account.CreatedAt); err != nil {
			return nil, err
		}
		if account.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("parse balance %q: %w", balance, err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (s *Store) AdjustAccountBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE id = $2`,
		delta.String(), accountID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s not found", accountID)
	}
	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO transactions (id, user_id, account_id, type, amount, description, category,
		 date, is_recurring, recurring_interval, next_recurring_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		tx.ID, tx.UserID, tx.AccountID, string(tx.Type), tx.Amount.String(), tx.Description, tx.Category,
		tx.Date, tx.IsRecurring, intervalParam(tx.RecurringInterval), tx.NextRecurringDate, tx.CreatedAt, tx.UpdatedAt,
	)
	return err
}

func (s *Store) GetTransaction(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error) {
	row := s.q.QueryRow(ctx,
		`SELECT id, user_id, account_id, type, amount::text, description, category,
		 date, is_recurring, recurring_interval, next_recurring_date, created_at, updated_at
		 FROM transactions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE transactions SET type = $1, amount = $2, description = $3, category = $4,
		 date = $5, is_recurring = $6, recurring_interval = $7, next_recurring_date = $8, updated_at = $9
		 WHERE id = $10 AND user_id = $11`,
		string(tx.Type), tx.Amount.String(), tx.Description, tx.Category,
		tx.Date, tx.IsRecurring, intervalParam(tx.RecurringInterval), tx.NextRecurringDate, tx.UpdatedAt,
		tx.ID, tx.UserID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s not found", tx.ID)
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id, userID uuid.UUID) error {
	_, err := s.q.Exec(ctx,
		`DELETE FROM transactions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	return err
}

func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID, filter ledger.TransactionFilter) ([]models.Transaction, error) {
	query := `SELECT id, user_id, account_id, type, amount::text, description, category,
		 date, is_recurring, recurring_interval, next_recurring_date, created_at, updated_at
		 FROM transactions WHERE user_id = $1`
	args := []any{userID}

	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		query += fmt.Sprintf(" AND account_id = $%d", len(args))
	}
	if filter.Type != nil {
		args = append(args, string(*filter.Type))
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.IsRecurring != nil {
		args = append(args, *filter.IsRecurring)
		query += fmt.Sprintf(" AND is_recurring = $%d", len(args))
	}
	query += " ORDER BY date DESC, created_at DESC"

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	tx := &models.Transaction{}
	var (
		txType   string
		amount   string
		interval *string
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.AccountID, &txType, &amount, &tx.Description, &tx.Category,
		&tx.Date, &tx.IsRecurring, &interval, &tx.NextRecurringDate, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}
	tx.Type = models.TransactionType(txType)
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if interval != nil {
		i := models.RecurringInterval(*interval)
		tx.RecurringInterval = &i
	}
	return tx, nil
}

func intervalParam(interval *models.RecurringInterval) *string {
	if interval == nil {
		return nil
	}
	s := string(*interval)
	return &s
}
