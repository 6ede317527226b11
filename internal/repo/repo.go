package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumapay/ledger-service/internal/model"
)

// ErrWalletNotFound is returned when a referenced wallet row does not exist.
var ErrWalletNotFound = errors.New("wallet not found")

// ErrEmailTaken is returned when a wallet with the same email already exists.
var ErrEmailTaken = errors.New("wallet with email already exists")

// ErrInsufficientFunds is returned when wallet balance is not enough.
var ErrInsufficientFunds = errors.New("insufficient funds")

// RepositoryInterface restricts Repo methods so the service can be unit
// tested against a narrow contract.
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB
	CreateWallet(ctx context.Context, tx *gorm.DB, w *model.Wallet) error
	GetWallet(ctx context.Context, id uuid.UUID) (*model.Wallet, error)
	GetWalletForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Wallet, error)
	GetWalletByEmail(ctx context.Context, tx *gorm.DB, email string) (*model.Wallet, error)
	ListWallets(ctx context.Context, limit, offset int) ([]model.Wallet, error)
	AdjustBalance(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	CreateTransaction(ctx context.Context, tx *gorm.DB, t *model.Transaction) error
	ListTransactionsByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]model.TransactionView, error)
	CreateLedgerEntry(ctx context.Context, tx *gorm.DB, e *model.LedgerEntry) error
	ListLedgerByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]model.LedgerEntry, error)
	CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uint64) error
	PublishEvent(ctx context.Context, evt model.OutboxEvent) error
	CacheBalance(ctx context.Context, walletID uuid.UUID, bal decimal.Decimal) error
	GetCachedBalance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
}

// Repository implements RepositoryInterface on postgres, with a best-effort
// redis balance cache and a kafka writer for outbox publication.
type Repository struct {
	db     *gorm.DB
	rdb    *redis.Client
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

// NewRepository constructs repo.
func NewRepository(db *gorm.DB, rdb *redis.Client, w *kafka.Writer, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, writer: w, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// normalizePage applies the list-query defaults: limit 10 when absent or
// non-positive, offset 0 when absent or negative.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// CreateWallet inserts a wallet row. A duplicate email surfaces as
// ErrEmailTaken whether caught by the pre-check or by the unique constraint.
func (r *Repository) CreateWallet(ctx context.Context, tx *gorm.DB, w *model.Wallet) error {
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// GetWallet is a non-locking read.
func (r *Repository) GetWallet(ctx context.Context, id uuid.UUID) (*model.Wallet, error) {
	var w model.Wallet
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("wallet %s: %w", id, ErrWalletNotFound)
		}
		return nil, err
	}
	return &w, nil
}

// GetWalletForUpdate locks the wallet row until the enclosing transaction
// ends. Callers must acquire locks for multiple wallets in canonical order.
func (r *Repository) GetWalletForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Wallet, error) {
	var w model.Wallet
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("wallet %s: %w", id, ErrWalletNotFound)
		}
		return nil, err
	}
	return &w, nil
}

// GetWalletByEmail is a non-locking lookup used to enforce email uniqueness
// before insertion. Absence is reported as ErrWalletNotFound.
func (r *Repository) GetWalletByEmail(ctx context.Context, tx *gorm.DB, email string) (*model.Wallet, error) {
	var w model.Wallet
	if err := tx.WithContext(ctx).Where("email = ?", email).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

// ListWallets returns wallets newest first.
func (r *Repository) ListWallets(ctx context.Context, limit, offset int) ([]model.Wallet, error) {
	limit, offset = normalizePage(limit, offset)
	var ws []model.Wallet
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&ws).Error
	return ws, err
}

// AdjustBalance adds delta to the stored balance in a single statement and
// returns the new balance. The read-modify-write happens inside the database
// so concurrent adjustments under a held row lock never see stale values.
func (r *Repository) AdjustBalance(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var bal decimal.Decimal
	row := tx.WithContext(ctx).
		Raw(`UPDATE wallet SET balance = balance + ? WHERE id = ? RETURNING balance`, delta, id).
		Row()
	if err := row.Scan(&bal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("wallet %s: %w", id, ErrWalletNotFound)
		}
		return decimal.Zero, err
	}
	return bal, nil
}

// CreateTransaction inserts one immutable money-movement record.
func (r *Repository) CreateTransaction(ctx context.Context, tx *gorm.DB, t *model.Transaction) error {
	return tx.WithContext(ctx).Create(t).Error
}

// ListTransactionsByWallet returns the joined transaction/ledger view for one
// wallet, newest first: each row carries the wallet's signed ledger amount and
// the running balance after it.
func (r *Repository) ListTransactionsByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]model.TransactionView, error) {
	limit, offset = normalizePage(limit, offset)
	var views []model.TransactionView
	err := r.db.WithContext(ctx).Raw(`
		SELECT t.id, t.from_id, t.to_id, l.amount, l.running_balance, t.created_at
		FROM "transaction" t
		INNER JOIN ledger l ON l.transaction_id = t.id
		WHERE l.wallet_id = ?
		ORDER BY t.created_at DESC
		LIMIT ? OFFSET ?`, walletID, limit, offset).
		Scan(&views).Error
	return views, err
}

// CreateLedgerEntry appends one immutable ledger line. There is no update or
// delete path for the ledger.
func (r *Repository) CreateLedgerEntry(ctx context.Context, tx *gorm.DB, e *model.LedgerEntry) error {
	return tx.WithContext(ctx).Create(e).Error
}

// ListLedgerByWallet returns a wallet's ledger entries newest first.
func (r *Repository) ListLedgerByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]model.LedgerEntry, error) {
	limit, offset = normalizePage(limit, offset)
	var entries []model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error
	return entries, err
}

// CreateOutboxEvent writes event.
func (r *Repository) CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error {
	return tx.WithContext(ctx).Create(evt).Error
}

// PollOutbox pulls unprocessed events.
func (r *Repository) PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var evts []model.OutboxEvent
	err := r.db.WithContext(ctx).Where("processed = false").Order("created_at").Limit(limit).Find(&evts).Error
	return evts, err
}

// MarkOutboxProcessed sets processed flag.
func (r *Repository) MarkOutboxProcessed(ctx context.Context, id uint64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{"processed": true, "processed_at": &now}).Error
}

// PublishEvent sends to Kafka.
func (r *Repository) PublishEvent(ctx context.Context, evt model.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", evt.ID)),
		Value: []byte(evt.Payload),
		Time:  time.Now(),
	}
	return r.writer.WriteMessages(ctx, msg)
}

// CacheBalance writes Redis.
func (r *Repository) CacheBalance(ctx context.Context, walletID uuid.UUID, bal decimal.Decimal) error {
	return r.rdb.Set(ctx, "balance:"+walletID.String(), bal.String(), 5*time.Minute).Err()
}

// GetCachedBalance reads Redis.
func (r *Repository) GetCachedBalance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	str, err := r.rdb.Get(ctx, "balance:"+walletID.String()).Result()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(str)
}
