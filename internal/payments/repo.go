package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lubrihub/storefront-backend/pkg/db/models"
	"github.com/lubrihub/storefront-backend/pkg/enums"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/pagination"
)

// Repository persists transactions, refunds and status history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateTransaction(ctx context.Context, tx *models.PaymentTransaction) error
	FindTransaction(ctx context.Context, transactionID string) (*models.PaymentTransaction, error)
	ListTransactions(ctx context.Context, query ListQuery) ([]models.PaymentTransaction, *pagination.Cursor, error)
	ListStale(ctx context.Context, statuses []enums.TransactionStatus, updatedBefore time.Time, limit int) ([]models.PaymentTransaction, error)
	CompareAndSetStatus(ctx context.Context, transactionID string, from, to enums.TransactionStatus, updates map[string]any) (bool, error)
	ReserveRefund(ctx context.Context, transactionID string, amount decimal.Decimal) (bool, error)
	ReleaseRefund(ctx context.Context, transactionID string, amount decimal.Decimal) error
	AppendStatusEvent(ctx context.Context, event *models.TransactionStatusEvent) error
	ListStatusEvents(ctx context.Context, transactionID string) ([]models.TransactionStatusEvent, error)
	CreateRefund(ctx context.Context, refund *models.PaymentRefund) error
	FindRefund(ctx context.Context, refundID string) (*models.PaymentRefund, error)
	ListRefunds(ctx context.Context, transactionID string) ([]models.PaymentRefund, error)
	CompareAndSetRefundStatus(ctx context.Context, refundID string, from, to enums.RefundStatus, completedAt *time.Time) (bool, error)
	SumRefunds(ctx context.Context, transactionID string, status enums.RefundStatus) (decimal.Decimal, error)
}

// ListQuery configures transaction list queries.
type ListQuery struct {
	UserID   *uuid.UUID
	Status   *enums.TransactionStatus
	Provider *enums.PaymentProvider
	Limit    int
	Cursor   *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateTransaction(ctx context.Context, tx *models.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *repository) FindTransaction(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "transaction %s not found", transactionID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return &tx, nil
}

func (r *repository) ListTransactions(ctx context.Context, query ListQuery) ([]models.PaymentTransaction, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(query.Limit)
	q := r.db.WithContext(ctx).Model(&models.PaymentTransaction{})
	if query.UserID != nil {
		q = q.Where("user_id = ?", *query.UserID)
	}
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	if query.Provider != nil {
		q = q.Where("provider = ?", *query.Provider)
	}
	if query.Cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND transaction_id < ?)",
			query.Cursor.CreatedAt, query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var rows []models.PaymentTransaction
	if err := q.Order("created_at DESC, transaction_id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > limit {
		last := rows[limit-1]
		return rows[:limit], &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.TransactionID}, nil
	}
	return rows, nil, nil
}

func (r *repository) ListStale(ctx context.Context, statuses []enums.TransactionStatus, updatedBefore time.Time, limit int) ([]models.PaymentTransaction, error) {
	var rows []models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", statuses, updatedBefore).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// CompareAndSetStatus moves the row only if it is still in from.
func (r *repository) CompareAndSetStatus(ctx context.Context, transactionID string, from, to enums.TransactionStatus, updates map[string]any) (bool, error) {
	values := map[string]any{}
	for k, v := range updates {
		values[k] = v
	}
	values["status"] = to
	values["updated_at"] = time.Now().UTC()

	res := r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReserveRefund adds amount to refunded_amount unless that would exceed the
// transaction amount.
func (r *repository) ReserveRefund(ctx context.Context, transactionID string, amount decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("transaction_id = ? AND status IN ? AND refunded_amount + ? <= amount",
			transactionID,
			[]enums.TransactionStatus{enums.TransactionStatusCompleted, enums.TransactionStatusPartiallyRefunded},
			amount).
		Updates(map[string]any{
			"refunded_amount": gorm.Expr("refunded_amount + ?", amount),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ReleaseRefund(ctx context.Context, transactionID string, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("transaction_id = ? AND refunded_amount >= ?", transactionID, amount).
		Updates(map[string]any{
			"refunded_amount": gorm.Expr("refunded_amount - ?", amount),
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (r *repository) AppendStatusEvent(ctx context.Context, event *models.TransactionStatusEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListStatusEvents(ctx context.Context, transactionID string) ([]models.TransactionStatusEvent, error) {
	var events []models.TransactionStatusEvent
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("occurred_at ASC").
		Find(&events).Error
	return events, err
}

func (r *repository) CreateRefund(ctx context.Context, refund *models.PaymentRefund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *repository) FindRefund(ctx context.Context, refundID string) (*models.PaymentRefund, error) {
	var refund models.PaymentRefund
	err := r.db.WithContext(ctx).Where("refund_id = ?", refundID).First(&refund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "refund %s not found", refundID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund")
	}
	return &refund, nil
}

func (r *repository) ListRefunds(ctx context.Context, transactionID string) ([]models.PaymentRefund, error) {
	var refunds []models.PaymentRefund
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&refunds).Error
	return refunds, err
}

func (r *repository) CompareAndSetRefundStatus(ctx context.Context, refundID string, from, to enums.RefundStatus, completedAt *time.Time) (bool, error) {
	values := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if completedAt != nil {
		values["completed_at"] = *completedAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.PaymentRefund{}).
		Where("refund_id = ? AND status = ?", refundID, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SumRefunds(ctx context.Context, transactionID string, status enums.RefundStatus) (decimal.Decimal, error) {
	var refunds []models.PaymentRefund
	if err := r.db.WithContext(ctx).
		Select("amount").
		Where("transaction_id = ? AND status = ?", transactionID, status).
		Find(&refunds).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, refund := range refunds {
		total = total.Add(refund.Amount)
	}
	return total, nil
}
