package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lubrihub/storefront-backend/api/middleware"
	paymentsvc "github.com/lubrihub/storefront-backend/internal/payments"
	"github.com/lubrihub/storefront-backend/pkg/enums"
	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
)

type stubPaymentService struct {
	initiateReq  paymentsvc.PaymentRequest
	listParams   paymentsvc.ListParams
	getUser      *uuid.UUID
	getErr       error
	verifyCalls  int
	refundReq    paymentsvc.RefundRequest
	refundErr    error
	initiateResp *paymentsvc.PaymentResponse
}

func (s *stubPaymentService) InitiatePayment(_ context.Context, req paymentsvc.PaymentRequest) (*paymentsvc.PaymentResponse, error) {
	s.initiateReq = req
	if s.initiateResp != nil {
		return s.initiateResp, nil
	}
	return &paymentsvc.PaymentResponse{
		TransactionID: "txn_abc",
		Status:        enums.TransactionStatusPending,
		Provider:      req.Provider,
		Amount:        req.Amount,
		Currency:      enums.CurrencyKES,
	}, nil
}

func (s *stubPaymentService) CheckTransactionStatus(_ context.Context, transactionID string) (*paymentsvc.TransactionVerification, error) {
	s.verifyCalls++
	return &paymentsvc.TransactionVerification{TransactionID: transactionID, Status: enums.TransactionStatusCompleted, Changed: true}, nil
}

func (s *stubPaymentService) GetTransaction(_ context.Context, transactionID string, userID *uuid.UUID) (*paymentsvc.TransactionDetail, error) {
	s.getUser = userID
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &paymentsvc.TransactionDetail{
		Transaction: paymentsvc.TransactionView{TransactionID: transactionID, Status: enums.TransactionStatusPending},
		Refunds:     []paymentsvc.RefundView{},
		History:     []paymentsvc.StatusEventView{},
	}, nil
}

func (s *stubPaymentService) ListTransactions(_ context.Context, params paymentsvc.ListParams) (*paymentsvc.ListResult, error) {
	s.listParams = params
	return &paymentsvc.ListResult{Transactions: []paymentsvc.TransactionView{}}, nil
}

func (s *stubPaymentService) ProcessRefund(_ context.Context, req paymentsvc.RefundRequest) (*paymentsvc.RefundResponse, error) {
	s.refundReq = req
	if s.refundErr != nil {
		return nil, s.refundErr
	}
	return &paymentsvc.RefundResponse{
		RefundID:          "rf_1",
		TransactionID:     req.TransactionID,
		Status:            enums.RefundStatusPending,
		Amount:            req.Amount,
		TransactionStatus: enums.TransactionStatusPartiallyRefunded,
	}, nil
}

func newRouter(svc Service) chi.Router {
	r := chi.NewRouter()
	r.Post("/api/v1/payments/initiate", PaymentInitiate(svc, nil))
	r.Get("/api/v1/payments", PaymentList(svc, nil))
	r.Get("/api/v1/payments/{transactionId}", PaymentDetail(svc, nil))
	r.Post("/api/v1/payments/{transactionId}/verify", PaymentVerify(svc, nil))
	r.Get("/api/admin/v1/payments", AdminPaymentList(svc, nil))
	r.Get("/api/admin/v1/payments/{transactionId}", AdminPaymentDetail(svc, nil))
	r.Post("/api/admin/v1/payments/{transactionId}/refund", AdminPaymentRefund(svc, nil))
	return r
}

func serve(t *testing.T, router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func asUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func TestPaymentInitiateBindsCaller(t *testing.T) {
	svc := &stubPaymentService{}
	userID := uuid.New()
	body := `{"amount":"1000","provider":"mpesa","phone_number":"0712345678"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", strings.NewReader(body)), userID)

	rec := serve(t, newRouter(svc), req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, svc.initiateReq.UserID)
	require.Equal(t, userID, *svc.initiateReq.UserID)
	require.Nil(t, svc.initiateReq.CartID)
	require.True(t, svc.initiateReq.Amount.Equal(decimal.NewFromInt(1000)))

	var envelope struct {
		Data paymentsvc.PaymentResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Equal(t, "txn_abc", envelope.Data.TransactionID)
	require.Equal(t, enums.TransactionStatusPending, envelope.Data.Status)
}

func TestPaymentInitiateRejectsUnknownFields(t *testing.T) {
	svc := &stubPaymentService{}
	body := `{"amount":"10","provider":"mpesa","user_id":"someone-else"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", strings.NewReader(body)), uuid.New())

	rec := serve(t, newRouter(svc), req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentInitiateRequiresUser(t *testing.T) {
	svc := &stubPaymentService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/initiate", strings.NewReader(`{"amount":"1","provider":"mpesa"}`))

	rec := serve(t, newRouter(svc), req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPaymentListScopesToCaller(t *testing.T) {
	svc := &stubPaymentService{}
	userID := uuid.New()
	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/payments?status=pending&provider=card&limit=10", nil), userID)

	rec := serve(t, newRouter(svc), req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.listParams.UserID)
	require.Equal(t, userID, *svc.listParams.UserID)
	require.Equal(t, 10, svc.listParams.Limit)
	require.NotNil(t, svc.listParams.Status)
	require.Equal(t, enums.TransactionStatusPending, *svc.listParams.Status)
	require.NotNil(t, svc.listParams.Provider)
	require.Equal(t, enums.PaymentProviderCard, *svc.listParams.Provider)
}

func TestPaymentListRejectsBadStatus(t *testing.T) {
	svc := &stubPaymentService{}
	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/payments?status=paid", nil), uuid.New())

	rec := serve(t, newRouter(svc), req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentDetailPassesOwner(t *testing.T) {
	svc := &stubPaymentService{}
	userID := uuid.New()
	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/payments/txn_abc", nil), userID)

	rec := serve(t, newRouter(svc), req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.getUser)
	require.Equal(t, userID, *svc.getUser)
}

func TestPaymentVerifyChecksOwnershipFirst(t *testing.T) {
	svc := &stubPaymentService{getErr: pkgerrors.New(pkgerrors.CodeNotFound, "transaction txn_abc not found")}
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/payments/txn_abc/verify", nil), uuid.New())

	rec := serve(t, newRouter(svc), req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Zero(t, svc.verifyCalls)
}

func TestPaymentVerifyReturnsVerification(t *testing.T) {
	svc := &stubPaymentService{}
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/payments/txn_abc/verify", nil), uuid.New())

	rec := serve(t, newRouter(svc), req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, svc.verifyCalls)

	var envelope struct {
		Data paymentsvc.TransactionVerification `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.True(t, envelope.Data.Changed)
	require.Equal(t, enums.TransactionStatusCompleted, envelope.Data.Status)
}

func TestAdminPaymentListFiltersByUser(t *testing.T) {
	svc := &stubPaymentService{}
	target := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/payments?user_id="+target.String(), nil)

	rec := serve(t, newRouter(svc), req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.listParams.UserID)
	require.Equal(t, target, *svc.listParams.UserID)
}

func TestAdminPaymentListWithoutUserListsAll(t *testing.T) {
	svc := &stubPaymentService{}
	rec := serve(t, newRouter(svc), httptest.NewRequest(http.MethodGet, "/api/admin/v1/payments", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, svc.listParams.UserID)
}

func TestAdminPaymentDetailIsUnscoped(t *testing.T) {
	svc := &stubPaymentService{}
	rec := serve(t, newRouter(svc), httptest.NewRequest(http.MethodGet, "/api/admin/v1/payments/txn_abc", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, svc.getUser)
}

func TestAdminPaymentRefundUsesPathTransaction(t *testing.T) {
	svc := &stubPaymentService{}
	body := `{"amount":"250","reason":"damaged drum"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payments/txn_abc/refund", strings.NewReader(body))

	rec := serve(t, newRouter(svc), req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "txn_abc", svc.refundReq.TransactionID)
	require.True(t, svc.refundReq.Amount.Equal(decimal.NewFromInt(250)))
	require.Equal(t, "damaged drum", svc.refundReq.Reason)
}

func TestAdminPaymentRefundEmptyBodyRefundsRemainder(t *testing.T) {
	svc := &stubPaymentService{}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payments/txn_abc/refund", nil)

	rec := serve(t, newRouter(svc), req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.True(t, svc.refundReq.Amount.IsZero())
}

func TestAdminPaymentRefundMapsStateConflict(t *testing.T) {
	svc := &stubPaymentService{refundErr: pkgerrors.New(pkgerrors.CodeStateConflict, "refund exceeds refundable amount")}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payments/txn_abc/refund", strings.NewReader(`{"amount":"5000"}`))

	rec := serve(t, newRouter(svc), req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
