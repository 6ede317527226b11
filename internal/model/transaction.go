package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction records one money movement. FromID is nil for a mint, which is
// the initial funding created together with a new wallet. Rows are append-only.
type Transaction struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	FromID    *uuid.UUID      `gorm:"type:uuid" json:"from_id"`
	ToID      uuid.UUID       `gorm:"type:uuid;not null" json:"to_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"amount"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Transaction) TableName() string { return "transaction" }

// TransactionView is one row of the transaction/ledger join for a wallet:
// the shared transaction fields plus that wallet's signed ledger amount and
// resulting running balance.
type TransactionView struct {
	ID             uuid.UUID       `gorm:"column:id" json:"id"`
	FromID         *uuid.UUID      `gorm:"column:from_id" json:"from_id"`
	ToID           uuid.UUID       `gorm:"column:to_id" json:"to_id"`
	Amount         decimal.Decimal `gorm:"column:amount" json:"amount"`
	RunningBalance decimal.Decimal `gorm:"column:running_balance" json:"running_balance"`
	CreatedAt      time.Time       `gorm:"column:created_at" json:"created_at"`
}
