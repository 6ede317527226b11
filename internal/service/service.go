package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lumapay/ledger-service/internal/idgen"
	"github.com/lumapay/ledger-service/internal/model"
	"github.com/lumapay/ledger-service/internal/repo"
)

// ErrInvalidAmount means non-positive amount passed.
var ErrInvalidAmount = errors.New("amount must be positive")

// ErrSameAccountTransfer means source and destination wallets are equal.
var ErrSameAccountTransfer = errors.New("cannot transfer to the same wallet")

// WalletService glues the mint/transfer orchestration and read queries to the
// repository. All mutations run inside a single storage transaction.
type WalletService struct {
	repo repo.RepositoryInterface
	ids  idgen.Generator
	log  *zap.SugaredLogger
}

// NewWalletService returns WalletService.
func NewWalletService(r repo.RepositoryInterface, ids idgen.Generator, logger *zap.SugaredLogger) *WalletService {
	return &WalletService{repo: r, ids: ids, log: logger}
}

// GetBalance returns current wallet balance, preferring the cache.
func (s *WalletService) GetBalance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	if bal, err := s.repo.GetCachedBalance(ctx, walletID); err == nil {
		return bal, nil
	}
	w, err := s.repo.GetWallet(ctx, walletID)
	if err != nil {
		return decimal.Zero, err
	}
	s.cacheBalance(ctx, walletID, w.Balance)
	return w.Balance, nil
}

// ListWallets returns wallets newest first.
func (s *WalletService) ListWallets(ctx context.Context, limit, offset int) ([]model.Wallet, error) {
	return s.repo.ListWallets(ctx, limit, offset)
}

// ListTransactions returns the joined transaction history for one wallet.
func (s *WalletService) ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]model.TransactionView, error) {
	return s.repo.ListTransactionsByWallet(ctx, walletID, limit, offset)
}

// ListLedger returns a wallet's raw ledger entries, newest first.
func (s *WalletService) ListLedger(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]model.LedgerEntry, error) {
	return s.repo.ListLedgerByWallet(ctx, walletID, limit, offset)
}

// cacheBalance is best effort: a cache fault must never fail a unit of work.
func (s *WalletService) cacheBalance(ctx context.Context, walletID uuid.UUID, bal decimal.Decimal) {
	if err := s.repo.CacheBalance(ctx, walletID, bal); err != nil {
		s.log.Warnf("cache balance %s: %v", walletID, err)
	}
}

// Repo exposes underlying repository (unit tests helper).
func (s *WalletService) Repo() repo.RepositoryInterface {
	return s.repo
}
