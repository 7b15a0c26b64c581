package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/lubrihub/storefront-backend/pkg/db"
	"github.com/lubrihub/storefront-backend/pkg/db/models"
	"github.com/lubrihub/storefront-backend/pkg/enums"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/logger"
	"github.com/lubrihub/storefront-backend/pkg/metrics"
	"github.com/lubrihub/storefront-backend/pkg/pagination"
)

const (
	defaultPollRetries = 2
	defaultPollBackoff = 250 * time.Millisecond

	defaultWebhookTolerance = 5 * time.Minute
)

// CompletionListener is notified once a transaction reaches completed.
type CompletionListener interface {
	OnTransactionCompleted(ctx context.Context, tx models.PaymentTransaction) error
}

// CompletionListenerFunc adapts a function to CompletionListener.
type CompletionListenerFunc func(ctx context.Context, tx models.PaymentTransaction) error

func (f CompletionListenerFunc) OnTransactionCompleted(ctx context.Context, tx models.PaymentTransaction) error {
	return f(ctx, tx)
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// ServiceParams groups dependencies for the payment service. WebhookTolerance
// bounds how far a webhook timestamp may drift from now.
type ServiceParams struct {
	Repo             Repository
	TxRunner         db.TxRunner
	Gateways         *Router
	Guard            webhookGuard
	Logger           *logger.Logger
	Metrics          *metrics.PaymentMetrics
	WebhookSecret    string
	WebhookTolerance time.Duration
	CallbackURL      string
	DefaultCurrency  enums.Currency
	PollRetries      uint64
	PollBackoff      time.Duration
	Now              func() time.Time
}

// Service is the payment gateway adapter: it initiates payments, keeps the
// local transaction mirror in sync and applies webhook notifications.
type Service struct {
	repo             Repository
	tx               db.TxRunner
	gateways         *Router
	guard            webhookGuard
	logg             *logger.Logger
	metrics          *metrics.PaymentMetrics
	webhookSecret    string
	webhookTolerance time.Duration
	callbackURL      string
	defaultCurrency  enums.Currency
	pollRetries      uint64
	pollBackoff      time.Duration
	now              func() time.Time

	mu        sync.RWMutex
	listeners []CompletionListener
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.TxRunner == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Gateways == nil {
		return nil, errors.New("gateway router is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	currency := params.DefaultCurrency
	if currency == "" {
		currency = enums.CurrencyKES
	}
	retries := params.PollRetries
	if retries == 0 {
		retries = defaultPollRetries
	}
	backoff := params.PollBackoff
	if backoff <= 0 {
		backoff = defaultPollBackoff
	}
	tolerance := params.WebhookTolerance
	if tolerance <= 0 {
		tolerance = defaultWebhookTolerance
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:             params.Repo,
		tx:               params.TxRunner,
		gateways:         params.Gateways,
		guard:            params.Guard,
		logg:             logg,
		metrics:          params.Metrics,
		webhookSecret:    strings.TrimSpace(params.WebhookSecret),
		webhookTolerance: tolerance,
		callbackURL:      strings.TrimSpace(params.CallbackURL),
		defaultCurrency:  currency,
		pollRetries:      retries,
		pollBackoff:      backoff,
		now:              now,
	}, nil
}

// AddCompletionListener registers l for completed transactions.
func (s *Service) AddCompletionListener(l CompletionListener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// InitiatePayment asks the gateway to start collecting a payment and mirrors
// the resulting transaction locally. Nothing is stored when the gateway call
// fails.
func (s *Service) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	cmd, err := buildCommand(req, s.defaultCurrency)
	if err != nil {
		return nil, err
	}
	if cmd.Reference == "" {
		cmd.Reference = newReference("LH", s.now())
	}
	cmd.CallbackURL = s.callbackURL

	gw, err := s.gateways.For(cmd.Provider)
	if err != nil {
		return nil, err
	}
	result, err := gw.Initiate(ctx, cmd)
	if err != nil {
		s.metrics.IncGatewayError(cmd.Provider.String(), "initiate")
		return nil, err
	}
	if strings.TrimSpace(result.TransactionID) == "" {
		s.metrics.IncGatewayError(cmd.Provider.String(), "initiate")
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway response missing transaction id")
	}

	status, ok := mapGatewayStatus(result.Status)
	if !ok {
		status = enums.TransactionStatusPending
	}
	now := s.now()
	record := &models.PaymentTransaction{
		TransactionID:     result.TransactionID,
		Provider:          cmd.Provider,
		Status:            status,
		Amount:            cmd.Amount,
		Currency:          cmd.Currency,
		Reference:         cmd.Reference,
		ProviderReference: optionalString(result.ProviderReference),
		CallbackURL:       optionalString(cmd.CallbackURL),
		UserID:            req.UserID,
		CartID:            req.CartID,
		Metadata:          cmd.Metadata,
	}
	switch status {
	case enums.TransactionStatusCompleted:
		record.CompletedAt = &now
	case enums.TransactionStatusFailed:
		record.FailedAt = &now
		record.FailureReason = optionalString(result.FailureReason)
	}

	ctx = s.logg.WithTransactionID(ctx, record.TransactionID)
	persisted := true
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateTransaction(ctx, record); err != nil {
			return err
		}
		return repo.AppendStatusEvent(ctx, &models.TransactionStatusEvent{
			TransactionID: record.TransactionID,
			ToStatus:      status,
			Source:        enums.StatusSourceInitiate,
			OccurredAt:    now,
		})
	}); err != nil {
		// The gateway already accepted the payment; the caller still gets the
		// gateway's answer and reconciliation can recover the row.
		persisted = false
		s.logg.Error(ctx, "persist initiated transaction", err)
	}

	s.metrics.IncInitiated(cmd.Provider.String(), status.String())
	s.logg.Info(ctx, fmt.Sprintf("payment initiated via %s with status %s", cmd.Provider, status))

	if persisted && status == enums.TransactionStatusCompleted {
		s.notifyCompleted(ctx, *record)
	}

	return &PaymentResponse{
		TransactionID:     record.TransactionID,
		Status:            status,
		Reference:         record.Reference,
		ProviderReference: result.ProviderReference,
		Provider:          record.Provider,
		Amount:            record.Amount,
		Currency:          record.Currency,
		Message:           result.Message,
		CheckoutURL:       result.CheckoutURL,
	}, nil
}

// CheckTransactionStatus polls the gateway and brings the local row in line
// with its answer.
func (s *Service) CheckTransactionStatus(ctx context.Context, transactionID string) (*TransactionVerification, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	ctx = s.logg.WithTransactionID(ctx, transactionID)

	current, err := s.repo.FindTransaction(ctx, transactionID)
	if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	var gw Gateway
	if current != nil {
		gw, err = s.gateways.For(current.Provider)
	} else {
		gw, err = s.gateways.For("")
	}
	if err != nil {
		return nil, err
	}

	result, err := s.pollStatus(ctx, gw, transactionID)
	if err != nil {
		provider := ""
		if current != nil {
			provider = current.Provider.String()
		}
		s.metrics.IncGatewayError(provider, "status")
		return nil, err
	}

	status, known := mapGatewayStatus(result.Status)
	verifiedAt := s.now()

	if current == nil {
		if !known {
			status = enums.TransactionStatusPending
		}
		s.logg.Warn(ctx, "status polled for transaction without a local record")
		return &TransactionVerification{
			TransactionID: transactionID,
			Status:        status,
			VerifiedAt:    verifiedAt,
		}, nil
	}

	previous := current.Status
	updated := current
	changed := false
	if known {
		updated, changed, err = s.applyStatus(ctx, current, status, enums.StatusSourcePoll, statusChange{
			ProviderReference: result.ProviderReference,
			FailureReason:     result.FailureReason,
		})
		if err != nil {
			return nil, err
		}
	} else {
		s.logg.Warn(ctx, fmt.Sprintf("gateway returned unknown status %q", result.Status))
	}

	return &TransactionVerification{
		TransactionID:  updated.TransactionID,
		Status:         updated.Status,
		PreviousStatus: previous,
		Changed:        changed,
		Amount:         updated.Amount,
		Currency:       updated.Currency,
		Reference:      updated.Reference,
		CompletedAt:    updated.CompletedAt,
		VerifiedAt:     verifiedAt,
	}, nil
}

func (s *Service) pollStatus(ctx context.Context, gw Gateway, transactionID string) (*GatewayTransaction, error) {
	var result *GatewayTransaction
	backoff := retry.WithMaxRetries(s.pollRetries, retry.NewExponential(s.pollBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := gw.Status(ctx, transactionID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ProcessRefund returns money on a completed transaction. Refunds are capped
// cumulatively at the transaction amount.
func (s *Service) ProcessRefund(ctx context.Context, req RefundRequest) (*RefundResponse, error) {
	transactionID := strings.TrimSpace(req.TransactionID)
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	if req.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must not be negative")
	}
	if !req.Amount.Equal(req.Amount.Round(2)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount supports at most two decimal places")
	}
	ctx = s.logg.WithTransactionID(ctx, transactionID)

	current, err := s.repo.FindTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !current.Status.IsRefundable() {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "transaction is %s and cannot be refunded", current.Status).
			WithDetails(map[string]any{"status": current.Status})
	}

	refundable := current.Amount.Sub(current.RefundedAmount)
	amount := req.Amount
	if amount.IsZero() {
		amount = refundable
	}
	if !amount.IsPositive() || amount.GreaterThan(refundable) {
		s.metrics.IncRefund("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds refundable balance").
			WithDetails(map[string]any{"refundable": refundable.StringFixed(2)})
	}

	reserved, err := s.repo.ReserveRefund(ctx, transactionID, amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve refund")
	}
	if !reserved {
		s.metrics.IncRefund("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "refundable balance changed, retry the refund")
	}

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = newReference("RF", s.now())
	}
	gw, err := s.gateways.For(current.Provider)
	if err != nil {
		s.releaseRefund(ctx, transactionID, amount)
		return nil, err
	}
	result, err := gw.Refund(ctx, transactionID, RefundCommand{
		Amount:    amount,
		Currency:  current.Currency,
		Reason:    strings.TrimSpace(req.Reason),
		Reference: reference,
	})
	if err != nil {
		s.releaseRefund(ctx, transactionID, amount)
		s.metrics.IncGatewayError(current.Provider.String(), "refund")
		s.metrics.IncRefund("error")
		return nil, err
	}

	refundID := strings.TrimSpace(result.RefundID)
	if refundID == "" {
		refundID = reference
	}
	refund := &models.PaymentRefund{
		RefundID:      refundID,
		TransactionID: transactionID,
		Amount:        amount,
		Currency:      current.Currency,
		Reason:        optionalString(req.Reason),
		Reference:     optionalString(reference),
		Status:        enums.RefundStatusPending,
	}
	status := mapRefundStatus(result.Status)
	if err := s.repo.CreateRefund(ctx, refund); err != nil {
		s.logg.Error(ctx, "persist refund", err)
	} else if status != enums.RefundStatusPending {
		if err := s.settleRefund(ctx, refundID, status, enums.StatusSourceRefund); err != nil {
			s.logg.Error(ctx, "settle refund", err)
		}
	}
	s.metrics.IncRefund(status.String())

	latest, err := s.repo.FindTransaction(ctx, transactionID)
	if err != nil {
		latest = current
	}
	return &RefundResponse{
		RefundID:          refundID,
		TransactionID:     transactionID,
		Status:            status,
		Amount:            amount,
		Currency:          current.Currency,
		TransactionStatus: latest.Status,
		RefundedAmount:    latest.RefundedAmount,
		Message:           result.Message,
	}, nil
}

func (s *Service) releaseRefund(ctx context.Context, transactionID string, amount decimal.Decimal) {
	if err := s.repo.ReleaseRefund(ctx, transactionID, amount); err != nil {
		s.logg.Error(ctx, "release refund reservation", err)
	}
}

// settleRefund moves a pending refund to its final status and rolls the
// transaction forward once money actually left.
func (s *Service) settleRefund(ctx context.Context, refundID string, to enums.RefundStatus, source enums.StatusSource) error {
	refund, err := s.repo.FindRefund(ctx, refundID)
	if err != nil {
		return err
	}
	if refund.Status != enums.RefundStatusPending {
		if refund.Status != to {
			s.logg.Warn(ctx, fmt.Sprintf("refund %s already %s, ignoring %s", refundID, refund.Status, to))
		}
		return nil
	}

	var completedAt *time.Time
	if to == enums.RefundStatusCompleted {
		now := s.now()
		completedAt = &now
	}
	moved, err := s.repo.CompareAndSetRefundStatus(ctx, refundID, enums.RefundStatusPending, to, completedAt)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update refund status")
	}
	if !moved {
		return nil
	}

	switch to {
	case enums.RefundStatusFailed:
		s.releaseRefund(ctx, refund.TransactionID, refund.Amount)
		return nil
	case enums.RefundStatusCompleted:
		current, err := s.repo.FindTransaction(ctx, refund.TransactionID)
		if err != nil {
			return err
		}
		completed, err := s.repo.SumRefunds(ctx, refund.TransactionID, enums.RefundStatusCompleted)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum refunds")
		}
		target := enums.TransactionStatusPartiallyRefunded
		if completed.GreaterThanOrEqual(current.Amount) {
			target = enums.TransactionStatusRefunded
		}
		_, _, err = s.applyStatus(ctx, current, target, source, statusChange{Note: "refund " + refundID})
		return err
	}
	return nil
}

// ProcessWebhook verifies and applies a gateway notification. Unknown events
// are acknowledged without changes. Errors mean the gateway should retry.
func (s *Service) ProcessWebhook(ctx context.Context, payload WebhookPayload) (bool, error) {
	if s.webhookSecret == "" {
		return false, pkgerrors.New(pkgerrors.CodeInternal, "webhook secret is not configured")
	}
	if strings.TrimSpace(payload.Signature) == "" {
		s.metrics.IncWebhook(payload.Event, "rejected")
		return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature missing")
	}
	if payload.Timestamp.String() == "" {
		s.metrics.IncWebhook(payload.Event, "rejected")
		return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook timestamp missing")
	}
	if !verifyWebhookSignature(s.webhookSecret, payload) {
		s.metrics.IncWebhook(payload.Event, "rejected")
		return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}
	if !s.webhookFresh(payload.Timestamp) {
		s.metrics.IncWebhook(payload.Event, "rejected")
		return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook timestamp outside tolerance")
	}

	eventID := webhookEventID(payload)
	ctx = s.logg.WithField(ctx, "webhook_event_id", eventID)

	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, eventID)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook idempotency")
		}
		if seen {
			s.metrics.IncWebhook(payload.Event, "duplicate")
			return true, nil
		}
	}

	if err := s.handleWebhookEvent(ctx, payload); err != nil {
		if s.guard != nil {
			if delErr := s.guard.Delete(ctx, eventID); delErr != nil {
				s.logg.Error(ctx, "release webhook idempotency key", delErr)
			}
		}
		s.metrics.IncWebhook(payload.Event, "error")
		return false, err
	}
	return true, nil
}

func (s *Service) handleWebhookEvent(ctx context.Context, payload WebhookPayload) error {
	event, err := enums.ParsePaymentWebhookEvent(strings.TrimSpace(payload.Event))
	if err != nil {
		s.logg.Info(ctx, fmt.Sprintf("ignoring webhook event %q", payload.Event))
		s.metrics.IncWebhook(payload.Event, "ignored")
		return nil
	}

	var data webhookData
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook data")
	}

	switch event {
	case enums.RefundWebhookEventCompleted, enums.RefundWebhookEventFailed:
		refundID := strings.TrimSpace(data.RefundID)
		if refundID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund_id is required")
		}
		to := enums.RefundStatusCompleted
		if event == enums.RefundWebhookEventFailed {
			to = enums.RefundStatusFailed
		}
		if err := s.settleRefund(ctx, refundID, to, enums.StatusSourceWebhook); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				s.logg.Warn(ctx, fmt.Sprintf("webhook for unknown refund %s", refundID))
				s.metrics.IncWebhook(event.String(), "unknown_refund")
				return nil
			}
			return err
		}
		s.metrics.IncWebhook(event.String(), "applied")
		return nil
	}

	transactionID := strings.TrimSpace(data.TransactionID)
	if transactionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction_id is required")
	}
	ctx = s.logg.WithTransactionID(ctx, transactionID)

	current, err := s.repo.FindTransaction(ctx, transactionID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(ctx, "webhook for unknown transaction")
			s.metrics.IncWebhook(event.String(), "unknown_transaction")
			return nil
		}
		return err
	}

	var to enums.TransactionStatus
	switch event {
	case enums.PaymentWebhookEventCompleted:
		to = enums.TransactionStatusCompleted
	case enums.PaymentWebhookEventFailed:
		to = enums.TransactionStatusFailed
	case enums.PaymentWebhookEventCancelled:
		to = enums.TransactionStatusCancelled
	case enums.PaymentWebhookEventProcessing:
		to = enums.TransactionStatusProcessing
	}

	failure := data.FailureReason
	if failure == "" && to == enums.TransactionStatusFailed {
		failure = data.Message
	}
	_, changed, err := s.applyStatus(ctx, current, to, enums.StatusSourceWebhook, statusChange{
		ProviderReference: data.ProviderReference,
		FailureReason:     failure,
	})
	if err != nil {
		return err
	}
	result := "applied"
	if !changed {
		result = "noop"
	}
	s.metrics.IncWebhook(event.String(), result)
	return nil
}

type statusChange struct {
	ProviderReference string
	FailureReason     string
	Note              string
}

// applyStatus moves current to `to` if the state machine allows it. Disallowed
// or stale transitions are ignored and reported as unchanged.
func (s *Service) applyStatus(ctx context.Context, current *models.PaymentTransaction, to enums.TransactionStatus, source enums.StatusSource, change statusChange) (*models.PaymentTransaction, bool, error) {
	from := current.Status
	if from == to {
		return current, false, nil
	}
	if !CanTransition(from, to) {
		s.logg.Warn(ctx, fmt.Sprintf("ignoring %s transition %s -> %s", source, from, to))
		return current, false, nil
	}

	now := s.now()
	updates := map[string]any{}
	if ref := strings.TrimSpace(change.ProviderReference); ref != "" {
		updates["provider_reference"] = ref
	}
	switch to {
	case enums.TransactionStatusCompleted:
		updates["completed_at"] = now
	case enums.TransactionStatusFailed:
		updates["failed_at"] = now
		if reason := strings.TrimSpace(change.FailureReason); reason != "" {
			updates["failure_reason"] = reason
		}
	}

	applied := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.CompareAndSetStatus(ctx, current.TransactionID, from, to, updates)
		if err != nil || !ok {
			return err
		}
		applied = true
		prev := from
		return repo.AppendStatusEvent(ctx, &models.TransactionStatusEvent{
			TransactionID: current.TransactionID,
			FromStatus:    &prev,
			ToStatus:      to,
			Source:        source,
			Note:          optionalString(change.Note),
			OccurredAt:    now,
		})
	})
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update transaction status")
	}

	updated, err := s.repo.FindTransaction(ctx, current.TransactionID)
	if err != nil {
		return nil, false, err
	}
	if !applied {
		return updated, false, nil
	}

	s.metrics.IncTransition(from.String(), to.String())
	s.logg.Info(ctx, fmt.Sprintf("transaction moved %s -> %s via %s", from, to, source))
	if to == enums.TransactionStatusCompleted {
		s.notifyCompleted(ctx, *updated)
	}
	return updated, true, nil
}

func (s *Service) notifyCompleted(ctx context.Context, tx models.PaymentTransaction) {
	s.mu.RLock()
	listeners := append([]CompletionListener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, l := range listeners {
		if err := l.OnTransactionCompleted(ctx, tx); err != nil {
			s.logg.Error(ctx, "completion listener failed", err)
		}
	}
}

// GetTransaction returns a transaction with its refunds and history. A non-nil
// userID restricts the lookup to that owner.
func (s *Service) GetTransaction(ctx context.Context, transactionID string, userID *uuid.UUID) (*TransactionDetail, error) {
	current, err := s.repo.FindTransaction(ctx, strings.TrimSpace(transactionID))
	if err != nil {
		return nil, err
	}
	if userID != nil && (current.UserID == nil || *current.UserID != *userID) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "transaction %s not found", transactionID)
	}
	refunds, err := s.repo.ListRefunds(ctx, current.TransactionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list refunds")
	}
	events, err := s.repo.ListStatusEvents(ctx, current.TransactionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list status history")
	}

	detail := &TransactionDetail{
		Transaction: NewTransactionView(*current),
		Refunds:     make([]RefundView, 0, len(refunds)),
		History:     make([]StatusEventView, 0, len(events)),
	}
	for _, r := range refunds {
		detail.Refunds = append(detail.Refunds, newRefundView(r))
	}
	for _, e := range events {
		detail.History = append(detail.History, newStatusEventView(e))
	}
	return detail, nil
}

func (s *Service) ListTransactions(ctx context.Context, params ListParams) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", *params.Status)
	}
	if params.Provider != nil && !params.Provider.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid provider %q", *params.Provider)
	}

	rows, next, err := s.repo.ListTransactions(ctx, ListQuery{
		UserID:   params.UserID,
		Status:   params.Status,
		Provider: params.Provider,
		Limit:    params.Limit,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	out := &ListResult{Transactions: make([]TransactionView, 0, len(rows))}
	for _, row := range rows {
		out.Transactions = append(out.Transactions, NewTransactionView(row))
	}
	if next != nil {
		out.NextCursor = pagination.EncodeCursor(*next)
	}
	return out, nil
}

// ReconcileStale polls the gateway for transactions that have sat in a
// non-terminal status longer than olderThan. It returns how many changed.
func (s *Service) ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if limit <= 0 {
		limit = pagination.MaxLimit
	}
	rows, err := s.repo.ListStale(ctx, []enums.TransactionStatus{
		enums.TransactionStatusPending,
		enums.TransactionStatusProcessing,
	}, s.now().Add(-olderThan), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale transactions")
	}

	var errs error
	changed := 0
	for _, row := range rows {
		verification, err := s.CheckTransactionStatus(ctx, row.TransactionID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reconcile %s: %w", row.TransactionID, err))
			continue
		}
		if verification.Changed {
			changed++
		}
	}
	return changed, errs
}

func (s *Service) webhookFresh(ts WebhookTimestamp) bool {
	at, err := ts.Time()
	if err != nil {
		return false
	}
	drift := s.now().Sub(at)
	if drift < 0 {
		drift = -drift
	}
	return drift <= s.webhookTolerance
}

// webhookEventID keys idempotency on the verified signature. payload.ID is
// not signed, so a replay with a fresh id still maps to the same key.
func webhookEventID(payload WebhookPayload) string {
	sum := sha256.Sum256([]byte(payload.Event + "|" + payload.Timestamp.String() + "|" + strings.ToLower(strings.TrimSpace(payload.Signature))))
	return hex.EncodeToString(sum[:])
}

func newReference(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102150405"), suffix)
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
