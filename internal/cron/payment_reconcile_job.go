package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/lubrihub/storefront-backend/pkg/logger"
)

const (
	defaultReconcileAfter = 10 * time.Minute
	defaultReconcileBatch = 50
)

type transactionReconciler interface {
	ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type PaymentReconcileJobParams struct {
	Logger     *logger.Logger
	Payments   transactionReconciler
	OlderThan  time.Duration
	BatchLimit int
}

// NewPaymentReconcileJob polls the gateway for transactions stuck in pending
// or processing, covering webhooks that never arrived.
func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	olderThan := params.OlderThan
	if olderThan <= 0 {
		olderThan = defaultReconcileAfter
	}
	limit := params.BatchLimit
	if limit <= 0 {
		limit = defaultReconcileBatch
	}
	return &paymentReconcileJob{
		logg:      params.Logger,
		payments:  params.Payments,
		olderThan: olderThan,
		limit:     limit,
	}, nil
}

type paymentReconcileJob struct {
	logg      *logger.Logger
	payments  transactionReconciler
	olderThan time.Duration
	limit     int
}

func (j *paymentReconcileJob) Name() string { return "payment_reconcile" }

func (j *paymentReconcileJob) Run(ctx context.Context) error {
	changed, err := j.payments.ReconcileStale(ctx, j.olderThan, j.limit)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"older_than": j.olderThan.String(),
		"changed":    changed,
	})
	if err != nil {
		return fmt.Errorf("payment reconcile: %w", err)
	}
	if changed > 0 {
		j.logg.Info(logCtx, "reconciled stale transactions")
	}
	return nil
}
