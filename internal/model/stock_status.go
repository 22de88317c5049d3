package model

import "time"

// ClassifyStatus derives the status label. Rules are checked in order and the first
// match wins: depleted, critical (below 20% of threshold), low, expired, in stock.
func ClassifyStatus(current, threshold int, batches []Batch, now time.Time) StockStatus {
	switch {
	case current == 0:
		return StatusDepleted
	case current*5 < threshold:
		return StatusCritical
	case current < threshold:
		return StatusLowStock
	case current > 0 && HasExpiredBatch(batches, now):
		return StatusExpired
	default:
		return StatusInStock
	}
}

// HasExpiredBatch reports whether any batch expired strictly before now.
func HasExpiredBatch(batches []Batch, now time.Time) bool {
	for _, b := range batches {
		if b.ExpiryDate != nil && b.ExpiryDate.Before(now) {
			return true
		}
	}
	return false
}

// AvailableQuantity is current minus reserved, floored at zero.
func AvailableQuantity(current, reserved int) int {
	if avail := current - reserved; avail > 0 {
		return avail
	}
	return 0
}
