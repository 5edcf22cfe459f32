// Package reconcile partitions the current slot set against the
// previously observed one.
package reconcile

import "slotwatch-backend/internal/model"

// Result is the three-way partition of a comparison. New and Unchanged
// follow the input order of the current list and keep any duplicate
// identities the source returned; Removed is built from an unordered
// set and carries no ordering guarantee.
type Result struct {
	New       []model.Slot
	Removed   []model.Slot
	Unchanged []model.Slot
}

// Diff compares current slots against the previous identity-keyed set.
// This is pure set algebra over identity keys; it cannot fail.
func Diff(current []model.Slot, previous map[model.SlotKey]model.Slot) Result {
	currentKeys := make(map[model.SlotKey]struct{}, len(current))
	for _, s := range current {
		currentKeys[s.Key()] = struct{}{}
	}

	var res Result
	for _, s := range current {
		if _, ok := previous[s.Key()]; ok {
			res.Unchanged = append(res.Unchanged, s)
		} else {
			res.New = append(res.New, s)
		}
	}
	for key, s := range previous {
		if _, ok := currentKeys[key]; !ok {
			res.Removed = append(res.Removed, s)
		}
	}
	return res
}
