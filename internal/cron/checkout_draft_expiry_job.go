package cron

import (
	"context"
	"fmt"

	"github.com/lubrihub/storefront-backend/internal/checkout"
	"github.com/lubrihub/storefront-backend/pkg/logger"
)

const defaultDraftExpiryBatch = 200

type draftExpirer interface {
	ExpireDrafts(ctx context.Context, limit int) (checkout.ExpiryResult, error)
}

type CheckoutDraftExpiryJobParams struct {
	Logger     *logger.Logger
	Checkout   draftExpirer
	BatchLimit int
}

func NewCheckoutDraftExpiryJob(params CheckoutDraftExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Checkout == nil {
		return nil, fmt.Errorf("checkout service required")
	}
	limit := params.BatchLimit
	if limit <= 0 {
		limit = defaultDraftExpiryBatch
	}
	return &checkoutDraftExpiryJob{logg: params.Logger, checkout: params.Checkout, limit: limit}, nil
}

type checkoutDraftExpiryJob struct {
	logg     *logger.Logger
	checkout draftExpirer
	limit    int
}

func (j *checkoutDraftExpiryJob) Name() string { return "checkout_draft_expiry" }

func (j *checkoutDraftExpiryJob) Run(ctx context.Context) error {
	result, err := j.checkout.ExpireDrafts(ctx, j.limit)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":   result.Scanned,
		"abandoned": result.Abandoned,
		"finalized": result.Finalized,
	})
	if err != nil {
		return fmt.Errorf("checkout draft expiry: %w", err)
	}
	if result.Scanned > 0 {
		j.logg.Info(logCtx, "checkout drafts expired")
	}
	return nil
}
