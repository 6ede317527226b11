package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is an account row. Balance is the only mutable field and is changed
// exclusively through Repository.AdjustBalance while the row is locked.
type Wallet struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string          `gorm:"size:255;not null;uniqueIndex:wallet_email_key" json:"email"`
	Balance   decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"balance"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Wallet) TableName() string { return "wallet" }
