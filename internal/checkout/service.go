package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/lubrihub/storefront-backend/internal/cart"
	"github.com/lubrihub/storefront-backend/internal/payments"
	"github.com/lubrihub/storefront-backend/pkg/db"
	"github.com/lubrihub/storefront-backend/pkg/db/models"
	"github.com/lubrihub/storefront-backend/pkg/enums"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/logger"
	"github.com/lubrihub/storefront-backend/pkg/types"
)

const orderDraftConstraint = "orders_draft_id_key"

type cartEngine interface {
	Get(ctx context.Context, owner cart.Owner) (*cart.Cart, error)
	RemovePurchased(ctx context.Context, owner cart.Owner, lines []types.CartLineSnapshot) (*cart.Cart, error)
}

type paymentService interface {
	InitiatePayment(ctx context.Context, req payments.PaymentRequest) (*payments.PaymentResponse, error)
	CheckTransactionStatus(ctx context.Context, transactionID string) (*payments.TransactionVerification, error)
	GetTransaction(ctx context.Context, transactionID string, userID *uuid.UUID) (*payments.TransactionDetail, error)
}

// ServiceParams groups dependencies for the checkout orchestrator.
type ServiceParams struct {
	Repo     Repository
	TxRunner db.TxRunner
	Carts    cartEngine
	Payments paymentService
	Logger   *logger.Logger
	DraftTTL time.Duration
	Now      func() time.Time
}

// Service walks a user through shipping, payment and confirmation. Progress
// lives in a durable draft so any device resumes at the same step.
type Service struct {
	repo     Repository
	tx       db.TxRunner
	carts    cartEngine
	payments paymentService
	logg     *logger.Logger
	draftTTL time.Duration
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.TxRunner == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Carts == nil {
		return nil, errors.New("cart engine is required")
	}
	if params.Payments == nil {
		return nil, errors.New("payments service is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	ttl := params.DraftTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:     params.Repo,
		tx:       params.TxRunner,
		carts:    params.Carts,
		payments: params.Payments,
		logg:     logg,
		draftTTL: ttl,
		now:      now,
	}, nil
}

// Start resumes the user's draft for the current cart or opens a new one.
func (s *Service) Start(ctx context.Context, userID uuid.UUID) (*models.CheckoutDraft, error) {
	c, err := s.carts.Get(ctx, cart.UserOwner(userID))
	if err != nil {
		return nil, err
	}
	now := s.now()

	draft, err := s.repo.FindOpenByUser(ctx, userID)
	switch {
	case err == nil:
		if draft.Status == enums.CheckoutDraftStatusAwaitingPayment {
			return draft, nil
		}
		if draft.CartID == c.ID && draft.ExpiresAt.After(now) {
			draft.ExpiresAt = now.Add(s.draftTTL)
			if err := s.repo.SaveDraft(ctx, draft); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "extend checkout draft")
			}
			return draft, nil
		}
		if err := s.abandon(ctx, draft); err != nil {
			return nil, err
		}
	case !pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return nil, err
	}

	if len(c.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	draft = &models.CheckoutDraft{
		CartID:    c.ID,
		UserID:    userID,
		Step:      enums.CheckoutStepShipping,
		Status:    enums.CheckoutDraftStatusOpen,
		ExpiresAt: now.Add(s.draftTTL),
	}
	if err := s.repo.CreateDraft(ctx, draft); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout draft")
	}
	return draft, nil
}

// Current returns the in-flight draft, or the last completed one so the
// confirmation screen survives a reload.
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*models.CheckoutDraft, error) {
	draft, err := s.repo.FindLatestByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if draft.Status == enums.CheckoutDraftStatusAbandoned {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout in progress")
	}
	return draft, nil
}

// SubmitShipping stores the delivery form and moves the draft to payment.
func (s *Service) SubmitShipping(ctx context.Context, userID uuid.UUID, details types.ShippingDetails) (*models.CheckoutDraft, error) {
	if err := validateShipping(&details); err != nil {
		return nil, err
	}
	draft, err := s.openDraft(ctx, userID)
	if err != nil {
		return nil, err
	}
	if draft.Status == enums.CheckoutDraftStatusAwaitingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment already in progress")
	}
	draft.Shipping = &details
	draft.Step = enums.CheckoutStepPayment
	draft.ExpiresAt = s.now().Add(s.draftTTL)
	if err := s.repo.SaveDraft(ctx, draft); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save shipping details")
	}
	return draft, nil
}

// Back returns from payment to shipping while no payment is in flight.
func (s *Service) Back(ctx context.Context, userID uuid.UUID) (*models.CheckoutDraft, error) {
	draft, err := s.openDraft(ctx, userID)
	if err != nil {
		return nil, err
	}
	if draft.Status == enums.CheckoutDraftStatusAwaitingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment already in progress")
	}
	if draft.Step == enums.CheckoutStepShipping {
		return draft, nil
	}
	draft.Step = enums.CheckoutStepShipping
	if err := s.repo.SaveDraft(ctx, draft); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save checkout draft")
	}
	return draft, nil
}

// SubmitPayment freezes the cart and initiates a payment for its total.
func (s *Service) SubmitPayment(ctx context.Context, userID uuid.UUID, sel PaymentSelection) (*models.CheckoutDraft, *payments.PaymentResponse, error) {
	draft, err := s.openDraft(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if draft.Status == enums.CheckoutDraftStatusAwaitingPayment {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment already in progress")
	}
	if draft.Step != enums.CheckoutStepPayment || draft.Shipping == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "shipping details are required before payment")
	}

	c, err := s.carts.Get(ctx, cart.UserOwner(userID))
	if err != nil {
		return nil, nil, err
	}
	if len(c.Items) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	snapshot := c.Snapshot()

	phone := sel.PhoneNumber
	if phone == "" && sel.Provider.IsMobileMoney() {
		phone = draft.Shipping.Phone
	}
	cartID := c.ID
	req := payments.PaymentRequest{
		Amount:        snapshot.Summary.Total,
		Currency:      enums.Currency(snapshot.Summary.Currency),
		Provider:      sel.Provider,
		Description:   fmt.Sprintf("LubriHub order for %d items", snapshot.Summary.TotalItems),
		PhoneNumber:   phone,
		AccountNumber: sel.AccountNumber,
		BankCode:      sel.BankCode,
		CardToken:     sel.CardToken,
		CustomerEmail: draft.Shipping.Email,
		Metadata: types.Metadata{
			"checkout_draft_id": draft.ID.String(),
			"cart_version":      fmt.Sprintf("%d", snapshot.Version),
		},
		UserID: &userID,
		CartID: &cartID,
	}
	resp, err := s.payments.InitiatePayment(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	provider := sel.Provider
	transactionID := resp.TransactionID
	draft.CartID = c.ID
	draft.PaymentProvider = &provider
	draft.TransactionID = &transactionID
	draft.CartSnapshot = &snapshot
	draft.Status = enums.CheckoutDraftStatusAwaitingPayment
	draft.ExpiresAt = s.now().Add(s.draftTTL)
	if err := s.repo.SaveDraft(ctx, draft); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment selection")
	}

	if resp.Status == enums.TransactionStatusCompleted {
		finalized, err := s.finalize(ctx, draft.ID, transactionID)
		if err != nil {
			return nil, nil, err
		}
		draft = finalized
	}
	return draft, resp, nil
}

// Confirm checks the payment and completes the checkout once it succeeded.
// Purchased lines leave the cart only after the transaction is completed.
func (s *Service) Confirm(ctx context.Context, userID uuid.UUID) (*models.CheckoutDraft, error) {
	draft, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if draft.Status == enums.CheckoutDraftStatusCompleted {
		return draft, nil
	}
	if draft.Status != enums.CheckoutDraftStatusAwaitingPayment || draft.TransactionID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has not been submitted")
	}

	verification, err := s.payments.CheckTransactionStatus(ctx, *draft.TransactionID)
	if err != nil {
		return nil, err
	}

	switch verification.Status {
	case enums.TransactionStatusCompleted,
		enums.TransactionStatusPartiallyRefunded,
		enums.TransactionStatusRefunded:
		return s.finalize(ctx, draft.ID, *draft.TransactionID)
	case enums.TransactionStatusFailed, enums.TransactionStatusCancelled:
		if err := s.reopen(ctx, draft); err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment was not completed").
			WithDetails(map[string]any{"status": verification.Status})
	default:
		return draft, nil
	}
}

// OnTransactionCompleted finishes the checkout tied to tx. Transactions that
// did not come from checkout are ignored.
func (s *Service) OnTransactionCompleted(ctx context.Context, tx models.PaymentTransaction) error {
	draft, err := s.repo.FindByTransaction(ctx, tx.TransactionID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil
		}
		return err
	}
	if draft.Status == enums.CheckoutDraftStatusCompleted {
		return nil
	}
	if draft.CartSnapshot != nil && !draft.CartSnapshot.Summary.Total.Equal(tx.Amount) {
		s.logg.Warn(s.logg.WithTransactionID(ctx, tx.TransactionID),
			fmt.Sprintf("paid amount %s differs from cart total %s", tx.Amount, draft.CartSnapshot.Summary.Total))
	}
	_, err = s.finalize(ctx, draft.ID, tx.TransactionID)
	return err
}

// ExpireDrafts abandons in-flight drafts past their deadline. Drafts waiting
// on a payment are finalized when it completed and abandoned when it failed.
func (s *Service) ExpireDrafts(ctx context.Context, limit int) (ExpiryResult, error) {
	var result ExpiryResult
	drafts, err := s.repo.ListExpired(ctx, s.now(), limit)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired drafts")
	}
	result.Scanned = len(drafts)

	var errs error
	for i := range drafts {
		draft := &drafts[i]
		if draft.Status == enums.CheckoutDraftStatusOpen || draft.TransactionID == nil {
			if err := s.abandon(ctx, draft); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			result.Abandoned++
			continue
		}

		detail, err := s.payments.GetTransaction(ctx, *draft.TransactionID, nil)
		if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			errs = multierr.Append(errs, err)
			continue
		}
		status := enums.TransactionStatusFailed
		if detail != nil {
			status = detail.Transaction.Status
		}
		switch status {
		case enums.TransactionStatusCompleted,
			enums.TransactionStatusPartiallyRefunded,
			enums.TransactionStatusRefunded:
			if _, err := s.finalize(ctx, draft.ID, *draft.TransactionID); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			result.Finalized++
		case enums.TransactionStatusFailed, enums.TransactionStatusCancelled:
			if err := s.abandon(ctx, draft); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			result.Abandoned++
		}
	}
	return result, errs
}

// finalize creates the order and completes the draft in one transaction,
// then takes the purchased lines off the user's cart. A second caller gets
// the completed draft and leaves the cart alone.
func (s *Service) finalize(ctx context.Context, draftID uuid.UUID, transactionID string) (*models.CheckoutDraft, error) {
	now := s.now()
	var completed *models.CheckoutDraft
	transitioned := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		draft, err := repo.FindDraft(ctx, draftID)
		if err != nil {
			return err
		}
		if draft.Status == enums.CheckoutDraftStatusCompleted {
			completed = draft
			return nil
		}
		if draft.Status != enums.CheckoutDraftStatusAwaitingPayment || draft.TransactionID == nil || *draft.TransactionID != transactionID {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout draft is not waiting for this payment")
		}
		if draft.CartSnapshot == nil || draft.Shipping == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "checkout draft is missing its cart snapshot")
		}

		order := buildOrder(draft, transactionID)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		ok, err := repo.TransitionDraft(ctx, draft.ID, enums.CheckoutDraftStatusAwaitingPayment, map[string]any{
			"status":       enums.CheckoutDraftStatusCompleted,
			"step":         enums.CheckoutStepConfirmation,
			"order_id":     order.ID,
			"completed_at": now,
			"updated_at":   now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "checkout draft changed concurrently")
		}
		draft.Status = enums.CheckoutDraftStatusCompleted
		draft.Step = enums.CheckoutStepConfirmation
		draft.OrderID = &order.ID
		draft.CompletedAt = &now
		completed = draft
		transitioned = true
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, orderDraftConstraint) || pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			return s.repo.FindDraft(ctx, draftID)
		}
		return nil, err
	}

	if !transitioned {
		return completed, nil
	}
	ctx = s.logg.WithTransactionID(s.logg.WithUserID(ctx, completed.UserID.String()), transactionID)
	if _, err := s.carts.RemovePurchased(ctx, cart.UserOwner(completed.UserID), completed.CartSnapshot.Items); err != nil {
		s.logg.Error(ctx, "remove purchased lines from cart", err)
	}
	s.logg.Info(ctx, "checkout completed")
	return completed, nil
}

func (s *Service) openDraft(ctx context.Context, userID uuid.UUID) (*models.CheckoutDraft, error) {
	draft, err := s.repo.FindOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !draft.ExpiresAt.After(s.now()) && draft.Status == enums.CheckoutDraftStatusOpen {
		if err := s.abandon(ctx, draft); err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout expired, start again")
	}
	return draft, nil
}

func (s *Service) abandon(ctx context.Context, draft *models.CheckoutDraft) error {
	_, err := s.repo.TransitionDraft(ctx, draft.ID, draft.Status, map[string]any{
		"status":     enums.CheckoutDraftStatusAbandoned,
		"updated_at": s.now(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "abandon checkout draft")
	}
	draft.Status = enums.CheckoutDraftStatusAbandoned
	return nil
}

// reopen drops a failed payment so the user can pick another method.
func (s *Service) reopen(ctx context.Context, draft *models.CheckoutDraft) error {
	ok, err := s.repo.TransitionDraft(ctx, draft.ID, enums.CheckoutDraftStatusAwaitingPayment, map[string]any{
		"status":           enums.CheckoutDraftStatusOpen,
		"step":             enums.CheckoutStepPayment,
		"transaction_id":   nil,
		"payment_provider": nil,
		"cart_snapshot":    nil,
		"updated_at":       s.now(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reopen checkout draft")
	}
	if ok {
		draft.Status = enums.CheckoutDraftStatusOpen
		draft.TransactionID = nil
		draft.PaymentProvider = nil
		draft.CartSnapshot = nil
	}
	return nil
}

func buildOrder(draft *models.CheckoutDraft, transactionID string) *models.Order {
	summary := draft.CartSnapshot.Summary
	cartID := draft.CartID
	if parsed, err := uuid.Parse(draft.CartSnapshot.CartID); err == nil {
		cartID = parsed
	}
	return &models.Order{
		UserID:        draft.UserID,
		CartID:        cartID,
		DraftID:       draft.ID,
		TransactionID: transactionID,
		Status:        enums.OrderStatusPaid,
		Items:         draft.CartSnapshot.Items,
		Shipping:      *draft.Shipping,
		Subtotal:      summary.Subtotal,
		Tax:           summary.Tax,
		ShippingFee:   summary.ShippingFee,
		Discount:      summary.Discount,
		Total:         summary.Total,
		Currency:      enums.Currency(summary.Currency),
	}
}
