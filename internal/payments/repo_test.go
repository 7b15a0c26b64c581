package payments

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lubrihub/storefront-backend/pkg/db/dbtest"
	"github.com/lubrihub/storefront-backend/pkg/db/models"
	"github.com/lubrihub/storefront-backend/pkg/enums"
)

func TestReserveRefundHoldsTheCap(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	require.NoError(t, repo.CreateTransaction(ctx, &models.PaymentTransaction{
		TransactionID: "txn_cap",
		Provider:      enums.PaymentProviderMpesa,
		Status:        enums.TransactionStatusCompleted,
		Amount:        decimal.NewFromInt(1000),
		Currency:      enums.CurrencyKES,
		Reference:     "LH-CAP-1",
	}))

	ok, err := repo.ReserveRefund(ctx, "txn_cap", decimal.NewFromInt(700))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.ReserveRefund(ctx, "txn_cap", decimal.NewFromInt(400))
	require.NoError(t, err)
	require.False(t, ok, "second reservation would exceed the amount")

	require.NoError(t, repo.ReleaseRefund(ctx, "txn_cap", decimal.NewFromInt(700)))
	ok, err = repo.ReserveRefund(ctx, "txn_cap", decimal.NewFromInt(400))
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := repo.FindTransaction(ctx, "txn_cap")
	require.NoError(t, err)
	require.True(t, stored.RefundedAmount.Equal(decimal.NewFromInt(400)))
}
