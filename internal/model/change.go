package model

import (
	"fmt"
	"strings"
)

type ChangeKind string

const (
	ChangeQuantity    ChangeKind = "quantity"
	ChangeReservation ChangeKind = "reservation"
	ChangeThreshold   ChangeKind = "threshold"
	ChangeStatus      ChangeKind = "status"
	ChangeBatches     ChangeKind = "batches"
	ChangeTransfer    ChangeKind = "transfer"
	ChangeNote        ChangeKind = "note"
)

// ChangeEvent is a structured audit event. Only its Render output is stored in auditLog.
type ChangeEvent struct {
	Kind   ChangeKind
	From   string
	To     string
	Reason string
}

func (c ChangeEvent) Render() string {
	var b strings.Builder
	switch c.Kind {
	case ChangeQuantity:
		fmt.Fprintf(&b, "currentQuantity changed from %s to %s", c.From, c.To)
	case ChangeReservation:
		fmt.Fprintf(&b, "reservedQuantity changed from %s to %s", c.From, c.To)
	case ChangeThreshold:
		fmt.Fprintf(&b, "threshold changed from %s to %s", c.From, c.To)
	case ChangeStatus:
		fmt.Fprintf(&b, "status changed from %s to %s", c.From, c.To)
	case ChangeBatches:
		fmt.Fprintf(&b, "batches changed from %s to %s entries", c.From, c.To)
	case ChangeTransfer:
		fmt.Fprintf(&b, "transferred from %s to %s", c.From, c.To)
	default:
		b.WriteString(strings.TrimSpace(c.To))
	}
	if reason := strings.TrimSpace(c.Reason); reason != "" {
		if b.Len() > 0 {
			b.WriteString(" (" + reason + ")")
		} else {
			b.WriteString(reason)
		}
	}
	return b.String()
}

// DiffEntries lists the operational changes between two versions of an entry.
func DiffEntries(before, after *StockEntry, reason string) []ChangeEvent {
	var out []ChangeEvent
	add := func(kind ChangeKind, from, to string) {
		if from != to {
			out = append(out, ChangeEvent{Kind: kind, From: from, To: to, Reason: reason})
		}
	}
	itoa := func(n int) string { return fmt.Sprint(n) }

	add(ChangeQuantity, itoa(before.Inventory.CurrentQuantity), itoa(after.Inventory.CurrentQuantity))
	add(ChangeReservation, itoa(before.Inventory.ReservedQuantity), itoa(after.Inventory.ReservedQuantity))
	add(ChangeThreshold, itoa(before.Inventory.Threshold), itoa(after.Inventory.Threshold))
	add(ChangeBatches, itoa(len(before.Batches)), itoa(len(after.Batches)))
	add(ChangeStatus, string(before.Status), string(after.Status))
	return out
}
