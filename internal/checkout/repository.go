package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lubrihub/storefront-backend/pkg/db/models"
	"github.com/lubrihub/storefront-backend/pkg/enums"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
)

var inFlightStatuses = []enums.CheckoutDraftStatus{
	enums.CheckoutDraftStatusOpen,
	enums.CheckoutDraftStatusAwaitingPayment,
}

// Repository persists checkout drafts and the orders they produce.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateDraft(ctx context.Context, draft *models.CheckoutDraft) error
	SaveDraft(ctx context.Context, draft *models.CheckoutDraft) error
	FindDraft(ctx context.Context, id uuid.UUID) (*models.CheckoutDraft, error)
	FindOpenByUser(ctx context.Context, userID uuid.UUID) (*models.CheckoutDraft, error)
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.CheckoutDraft, error)
	FindByTransaction(ctx context.Context, transactionID string) (*models.CheckoutDraft, error)
	ListExpired(ctx context.Context, before time.Time, limit int) ([]models.CheckoutDraft, error)
	TransitionDraft(ctx context.Context, id uuid.UUID, from enums.CheckoutDraftStatus, updates map[string]any) (bool, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrderByDraft(ctx context.Context, draftID uuid.UUID) (*models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateDraft(ctx context.Context, draft *models.CheckoutDraft) error {
	return r.db.WithContext(ctx).Create(draft).Error
}

func (r *repository) SaveDraft(ctx context.Context, draft *models.CheckoutDraft) error {
	return r.db.WithContext(ctx).Save(draft).Error
}

func (r *repository) FindDraft(ctx context.Context, id uuid.UUID) (*models.CheckoutDraft, error) {
	var draft models.CheckoutDraft
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&draft).Error; err != nil {
		return nil, notFoundOr(err, "checkout draft not found")
	}
	return &draft, nil
}

func (r *repository) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*models.CheckoutDraft, error) {
	var draft models.CheckoutDraft
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, inFlightStatuses).
		Order("created_at DESC").
		First(&draft).Error
	if err != nil {
		return nil, notFoundOr(err, "no checkout in progress")
	}
	return &draft, nil
}

func (r *repository) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.CheckoutDraft, error) {
	var draft models.CheckoutDraft
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&draft).Error
	if err != nil {
		return nil, notFoundOr(err, "no checkout in progress")
	}
	return &draft, nil
}

func (r *repository) FindByTransaction(ctx context.Context, transactionID string) (*models.CheckoutDraft, error) {
	var draft models.CheckoutDraft
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&draft).Error
	if err != nil {
		return nil, notFoundOr(err, "checkout draft not found")
	}
	return &draft, nil
}

// ListExpired returns in-flight drafts whose expires_at is before the cutoff,
// oldest first.
func (r *repository) ListExpired(ctx context.Context, before time.Time, limit int) ([]models.CheckoutDraft, error) {
	var drafts []models.CheckoutDraft
	q := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?", inFlightStatuses, before).
		Order("expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&drafts).Error; err != nil {
		return nil, err
	}
	return drafts, nil
}

// TransitionDraft applies updates only while the draft is still in from.
func (r *repository) TransitionDraft(ctx context.Context, id uuid.UUID, from enums.CheckoutDraftStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutDraft{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindOrderByDraft(ctx context.Context, draftID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("draft_id = ?", draftID).First(&order).Error; err != nil {
		return nil, notFoundOr(err, "order not found")
	}
	return &order, nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query checkout")
}
