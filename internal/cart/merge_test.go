package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMergeItemsSumsMatchingLines(t *testing.T) {
	product := uuid.New()
	pkgA, pkgB := uuid.New(), uuid.New()
	remoteA := uuid.New()

	remote := []Item{
		{ID: remoteA, ProductID: product, PackageID: pkgA, Quantity: 3},
		{ID: uuid.New(), ProductID: product, PackageID: pkgB, Quantity: 1},
	}
	local := []Item{
		{ID: uuid.New(), ProductID: product, PackageID: pkgA, Quantity: 2},
	}

	merged := mergeItems(remote, local, uuid.New, fixedNow)

	require.Len(t, merged, 2)
	require.Equal(t, remoteA, merged[0].ID)
	require.Equal(t, 5, merged[0].Quantity)
	require.Equal(t, 1, merged[1].Quantity)
	require.Equal(t, 3, remote[0].Quantity, "remote slice must not be mutated")
}

func TestMergeItemsAppendsNewLinesWithFreshIDs(t *testing.T) {
	product := uuid.New()
	localID := uuid.New()
	local := []Item{{ID: localID, ProductID: product, PackageID: uuid.New(), Quantity: 4}}

	merged := mergeItems(nil, local, uuid.New, fixedNow)

	require.Len(t, merged, 1)
	require.NotEqual(t, localID, merged[0].ID)
	require.Equal(t, 4, merged[0].Quantity)
	require.Equal(t, fixedNow, merged[0].UpdatedAt)
}

func TestMergeItemsCapsLineQuantity(t *testing.T) {
	product := uuid.New()
	pkgA, pkgB := uuid.New(), uuid.New()
	remote := []Item{{ID: uuid.New(), ProductID: product, PackageID: pkgA, Quantity: maxLineQuantity}}
	local := []Item{
		{ID: uuid.New(), ProductID: product, PackageID: pkgA, Quantity: maxLineQuantity},
		{ID: uuid.New(), ProductID: product, PackageID: pkgB, Quantity: maxLineQuantity + 5},
	}

	merged := mergeItems(remote, local, uuid.New, fixedNow)

	require.Len(t, merged, 2)
	require.Equal(t, maxLineQuantity, merged[0].Quantity)
	require.Equal(t, maxLineQuantity, merged[1].Quantity)
}
