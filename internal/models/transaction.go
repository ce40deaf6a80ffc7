package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

type RecurringInterval string

const (
	RecurringDaily   RecurringInterval = "DAILY"
	RecurringWeekly  RecurringInterval = "WEEKLY"
	RecurringMonthly RecurringInterval = "MONTHLY"
	RecurringYearly  RecurringInterval = "YEARLY"
)

func (i RecurringInterval) Valid() bool {
	switch i {
	case RecurringDaily, RecurringWeekly, RecurringMonthly, RecurringYearly:
		return true
	}
	return false
}

// Transaction stores the amount as a non-negative magnitude; the sign of its
// effect on the account balance is derived from Type.
type Transaction struct {
	ID                uuid.UUID          `json:"id"`
	UserID            uuid.UUID          `json:"user_id"`
	AccountID         uuid.UUID          `json:"account_id"`
	Type              TransactionType    `json:"type"`
	Amount            decimal.Decimal    `json:"amount"`
	Description       string             `json:"description"`
	Category          string             `json:"category"`
	Date              time.Time          `json:"date"`
	IsRecurring       bool               `json:"is_recurring"`
	RecurringInterval *RecurringInterval `json:"recurring_interval,omitempty"`
	NextRecurringDate *time.Time         `json:"next_recurring_date,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// SignedAmount is the transaction's contribution to its account balance:
// positive for income, negative for expense.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionTypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}
