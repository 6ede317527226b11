package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lumapay/ledger-service/internal/model"
	"github.com/lumapay/ledger-service/internal/repo"
)

// MintResult is the outcome of creating and funding a new wallet.
type MintResult struct {
	WalletID      uuid.UUID
	TransactionID uuid.UUID
	Balance       decimal.Decimal
}

// TransferResult is the outcome of a transfer: the transaction identifier and
// the source wallet's new balance.
type TransferResult struct {
	TransactionID uuid.UUID
	Amount        decimal.Decimal
	NewBalance    decimal.Decimal
}

// canonicalLockOrder puts two wallet identifiers into the globally agreed
// locking order, independent of which one is source or destination. Every
// transfer locking the same pair in the same order makes a wait-for cycle
// between opposite-direction transfers impossible.
func canonicalLockOrder(a, b uuid.UUID) (first, second uuid.UUID) {
	if bytes.Compare(a[:], b[:]) < 0 {
		return a, b
	}
	return b, a
}

// Mint creates a wallet funded with an initial balance, recording the funding
// as a transaction with no source and a single credit ledger entry. No
// cross-wallet locking is needed: the new row is invisible to concurrent
// operations until this transaction commits.
func (s *WalletService) Mint(ctx context.Context, email string, amount decimal.Decimal) (MintResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return MintResult{}, ErrInvalidAmount
	}
	var res MintResult
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.GetWalletByEmail(ctx, tx, email); err == nil {
			return repo.ErrEmailTaken
		} else if !errors.Is(err, repo.ErrWalletNotFound) {
			return err
		}

		walletID, err := s.ids.NewID()
		if err != nil {
			return err
		}
		if err := s.repo.CreateWallet(ctx, tx, &model.Wallet{
			ID:      walletID,
			Email:   email,
			Balance: amount,
		}); err != nil {
			return err
		}

		txnID, err := s.ids.NewID()
		if err != nil {
			return err
		}
		if err := s.repo.CreateTransaction(ctx, tx, &model.Transaction{
			ID:     txnID,
			FromID: nil,
			ToID:   walletID,
			Amount: amount,
		}); err != nil {
			return err
		}

		entryID, err := s.ids.NewID()
		if err != nil {
			return err
		}
		if err := s.repo.CreateLedgerEntry(ctx, tx, &model.LedgerEntry{
			ID:             entryID,
			TransactionID:  txnID,
			WalletID:       walletID,
			Amount:         amount,
			RunningBalance: amount,
		}); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"wallet_id": walletID, "email": email, "balance": amount,
		})
		if err := s.repo.CreateOutboxEvent(ctx, tx, &model.OutboxEvent{
			Aggregate: "Wallet", AggregateID: walletID.String(),
			EventType: "wallet.created", Payload: string(payload),
		}); err != nil {
			return err
		}

		res = MintResult{WalletID: walletID, TransactionID: txnID, Balance: amount}
		return nil
	})
	if err != nil {
		return MintResult{}, err
	}
	s.cacheBalance(ctx, res.WalletID, res.Balance)
	return res, nil
}

// Transfer moves amount between two existing wallets inside one storage
// transaction: lock both rows in canonical order, validate funds, adjust both
// balances, then write the transaction row and its paired ledger entries.
// Any failure rolls the whole unit of work back with zero mutation.
func (s *WalletService) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal) (TransferResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return TransferResult{}, ErrInvalidAmount
	}
	if fromID == toID {
		return TransferResult{}, ErrSameAccountTransfer
	}
	var res TransferResult
	var destBalance decimal.Decimal
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		firstID, secondID := canonicalLockOrder(fromID, toID)

		first, err := s.repo.GetWalletForUpdate(ctx, tx, firstID)
		if err != nil {
			return err
		}
		second, err := s.repo.GetWalletForUpdate(ctx, tx, secondID)
		if err != nil {
			return err
		}

		source := first
		if second.ID == fromID {
			source = second
		}
		if source.Balance.LessThan(amount) {
			return repo.ErrInsufficientFunds
		}

		sourceBalance, err := s.repo.AdjustBalance(ctx, tx, fromID, amount.Neg())
		if err != nil {
			return err
		}
		destBalance, err = s.repo.AdjustBalance(ctx, tx, toID, amount)
		if err != nil {
			return err
		}

		txnID, err := s.ids.NewID()
		if err != nil {
			return err
		}
		from := fromID
		if err := s.repo.CreateTransaction(ctx, tx, &model.Transaction{
			ID:     txnID,
			FromID: &from,
			ToID:   toID,
			Amount: amount,
		}); err != nil {
			return err
		}

		debitID, err := s.ids.NewID()
		if err != nil {
			return err
		}
		if err := s.repo.CreateLedgerEntry(ctx, tx, &model.LedgerEntry{
			ID:             debitID,
			TransactionID:  txnID,
			WalletID:       fromID,
			Amount:         amount.Neg(),
			RunningBalance: sourceBalance,
		}); err != nil {
			return err
		}
		creditID, err := s.ids.NewID()
		if err != nil {
			return err
		}
		if err := s.repo.CreateLedgerEntry(ctx, tx, &model.LedgerEntry{
			ID:             creditID,
			TransactionID:  txnID,
			WalletID:       toID,
			Amount:         amount,
			RunningBalance: destBalance,
		}); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"from": fromID, "to": toID, "amount": amount,
		})
		if err := s.repo.CreateOutboxEvent(ctx, tx, &model.OutboxEvent{
			Aggregate: "Wallet", AggregateID: fromID.String(),
			EventType: "transfer.completed", Payload: string(payload),
		}); err != nil {
			return err
		}

		res = TransferResult{TransactionID: txnID, Amount: amount, NewBalance: sourceBalance}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	s.cacheBalance(ctx, fromID, res.NewBalance)
	s.cacheBalance(ctx, toID, destBalance)
	return res, nil
}
