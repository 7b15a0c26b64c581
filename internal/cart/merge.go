package cart

import (
	"time"

	"github.com/google/uuid"
)

// mergeItems folds local lines into remote ones. Lines with the same
// (product, package) sum their quantities on the remote line; other local
// lines are appended with fresh ids. Remote order is kept. No line ends up
// above maxLineQuantity.
func mergeItems(remote, local []Item, newID func() uuid.UUID, now time.Time) []Item {
	merged := append([]Item(nil), remote...)
	index := make(map[[2]uuid.UUID]int, len(merged))
	for i, item := range merged {
		index[[2]uuid.UUID{item.ProductID, item.PackageID}] = i
	}

	for _, item := range local {
		key := [2]uuid.UUID{item.ProductID, item.PackageID}
		if i, ok := index[key]; ok {
			merged[i].Quantity = min(merged[i].Quantity+item.Quantity, maxLineQuantity)
			merged[i].UpdatedAt = now
			continue
		}
		item.ID = newID()
		item.Quantity = min(item.Quantity, maxLineQuantity)
		item.UpdatedAt = now
		index[key] = len(merged)
		merged = append(merged, item)
	}
	return merged
}
