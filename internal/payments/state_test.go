package payments

import (
	"testing"

	"github.com/lubrihub/storefront-backend/pkg/enums"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to enums.TransactionStatus
		want     bool
	}{
		{enums.TransactionStatusPending, enums.TransactionStatusProcessing, true},
		{enums.TransactionStatusPending, enums.TransactionStatusCompleted, true},
		{enums.TransactionStatusProcessing, enums.TransactionStatusFailed, true},
		{enums.TransactionStatusCompleted, enums.TransactionStatusPartiallyRefunded, true},
		{enums.TransactionStatusPartiallyRefunded, enums.TransactionStatusRefunded, true},
		{enums.TransactionStatusCompleted, enums.TransactionStatusPending, false},
		{enums.TransactionStatusCompleted, enums.TransactionStatusProcessing, false},
		{enums.TransactionStatusFailed, enums.TransactionStatusCompleted, false},
		{enums.TransactionStatusPending, enums.TransactionStatusRefunded, false},
		{enums.TransactionStatusPending, enums.TransactionStatusPending, false},
		{enums.TransactionStatusRefunded, enums.TransactionStatusPartiallyRefunded, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestMapGatewayStatus(t *testing.T) {
	cases := map[string]enums.TransactionStatus{
		"PENDING":   enums.TransactionStatusPending,
		"APPROVED":  enums.TransactionStatusProcessing,
		"COMPLETED": enums.TransactionStatusCompleted,
		"success":   enums.TransactionStatusCompleted,
		"CANCELED":  enums.TransactionStatusCancelled,
		"FAILED":    enums.TransactionStatusFailed,
	}
	for raw, want := range cases {
		got, ok := mapGatewayStatus(raw)
		if !ok || got != want {
			t.Fatalf("mapGatewayStatus(%q) = %s/%v, want %s", raw, got, ok, want)
		}
	}
	if _, ok := mapGatewayStatus("weird"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if mapRefundStatus("REJECTED") != enums.RefundStatusFailed {
		t.Fatal("expected REJECTED refund to map to failed")
	}
	if mapRefundStatus("") != enums.RefundStatusPending {
		t.Fatal("expected blank refund status to map to pending")
	}
}
