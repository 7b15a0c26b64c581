package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lubrihub/storefront-backend/pkg/db"
	"github.com/lubrihub/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
)

// Repository persists the durable copy of user carts and saved carts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	SaveSnapshot(ctx context.Context, snap Snapshot) (bool, error)
	CreateSaved(ctx context.Context, saved *models.SavedCart) error
	ListSaved(ctx context.Context, userID uuid.UUID) ([]models.SavedCart, error)
	FindSaved(ctx context.Context, userID, savedID uuid.UUID) (*models.SavedCart, error)
	DeleteSaved(ctx context.Context, userID, savedID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

// WithTx binds the repository to a transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var record models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("user_id = ?", userID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return &record, nil
}

// SaveSnapshot replaces the stored cart with snap. It reports false without
// writing when the stored version is already at or beyond snap.Version.
func (r *repository) SaveSnapshot(ctx context.Context, snap Snapshot) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Cart
		err := tx.Where("user_id = ?", snap.UserID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			record := &models.Cart{
				ID:        snap.CartID,
				UserID:    snap.UserID,
				Notes:     optionalNotes(snap.Notes),
				Version:   snap.Version,
				CreatedAt: snap.TakenAt,
				UpdatedAt: snap.TakenAt,
			}
			if err := tx.Create(record).Error; err != nil {
				if db.IsUniqueViolation(err, "") {
					return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart created concurrently")
				}
				return err
			}
			applied = true
			return insertItems(tx, record.ID, snap.Items)
		case err != nil:
			return err
		}

		res := tx.Model(&models.Cart{}).
			Where("id = ? AND version < ?", existing.ID, snap.Version).
			Updates(map[string]any{
				"version":    snap.Version,
				"notes":      optionalNotes(snap.Notes),
				"updated_at": snap.TakenAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		if err := tx.Where("cart_id = ?", existing.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return insertItems(tx, existing.ID, snap.Items)
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func insertItems(tx *gorm.DB, cartID uuid.UUID, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.CartItem, 0, len(items))
	for i, item := range items {
		rows = append(rows, models.CartItem{
			ID:        item.ID,
			CartID:    cartID,
			Position:  i,
			ProductID: item.ProductID,
			PackageID: item.PackageID,
			Product:   item.Product,
			Package:   item.Package,
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt,
			UpdatedAt: item.UpdatedAt,
		})
	}
	return tx.Create(&rows).Error
}

func (r *repository) CreateSaved(ctx context.Context, saved *models.SavedCart) error {
	return r.db.WithContext(ctx).Create(saved).Error
}

func (r *repository) ListSaved(ctx context.Context, userID uuid.UUID) ([]models.SavedCart, error) {
	var rows []models.SavedCart
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindSaved(ctx context.Context, userID, savedID uuid.UUID) (*models.SavedCart, error) {
	var row models.SavedCart
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", savedID, userID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "saved cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load saved cart")
	}
	return &row, nil
}

func (r *repository) DeleteSaved(ctx context.Context, userID, savedID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", savedID, userID).
		Delete(&models.SavedCart{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func optionalNotes(notes string) *string {
	if notes == "" {
		return nil
	}
	return &notes
}

func toCart(record *models.Cart, now time.Time) *Cart {
	userID := record.UserID
	c := &Cart{
		ID:        record.ID,
		UserID:    &userID,
		Version:   record.Version,
		Items:     make([]Item, 0, len(record.Items)),
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
	if record.Notes != nil {
		c.Notes = *record.Notes
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	for _, row := range record.Items {
		c.Items = append(c.Items, Item{
			ID:        row.ID,
			ProductID: row.ProductID,
			PackageID: row.PackageID,
			Product:   row.Product,
			Package:   row.Package,
			Quantity:  row.Quantity,
			AddedAt:   row.AddedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return c
}
