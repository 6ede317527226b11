package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntry is one immutable double-entry line: a signed amount (negative
// debit, positive credit) and the wallet's running balance immediately after
// applying it. A wallet's balance is always the sum of its entries.
type LedgerEntry struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"transaction_id"`
	WalletID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"wallet_id"`
	Amount         decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"amount"`
	RunningBalance decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"running_balance"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (LedgerEntry) TableName() string { return "ledger" }
