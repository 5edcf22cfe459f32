package model

import (
	"fmt"
	"strings"
)

// Slot is the canonical form of one bookable appointment opening,
// regardless of which upstream shape it was extracted from.
//
// Date is always an ISO-8601 date string and Time is the trimmed
// display string from upstream; both are guaranteed non-empty. The
// remaining fields are optional and serialize as null when unset.
type Slot struct {
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	Provider     *string `json:"provider"`
	Department   *string `json:"department"`
	DepartmentID *string `json:"department_id"`
	SlotID       *string `json:"slot_id"`
}

// SlotKey is the identity of a slot for diffing purposes. Provider and
// department display text are deliberately excluded: upstream rewords
// them without the slot itself changing, and the department id is the
// stable handle when one exists.
type SlotKey struct {
	Date         string
	Time         string
	DepartmentID string
}

// Key returns the identity key for this slot. An unset department id
// maps to the empty string, so two slots both lacking one still match.
func (s Slot) Key() SlotKey {
	k := SlotKey{Date: s.Date, Time: s.Time}
	if s.DepartmentID != nil {
		k.DepartmentID = *s.DepartmentID
	}
	return k
}

// DisplayString renders the slot for logs and notification bodies.
func (s Slot) DisplayString() string {
	parts := []string{fmt.Sprintf("%s at %s", s.Date, s.Time)}
	if s.Provider != nil && *s.Provider != "" {
		parts = append(parts, "with "+*s.Provider)
	}
	if s.Department != nil && *s.Department != "" {
		parts = append(parts, "at "+*s.Department)
	}
	return strings.Join(parts, " ")
}

// KeySet builds an identity-keyed set from a slot list. Later
// duplicates win, which is fine: slots with equal keys are the same
// slot by definition.
func KeySet(slots []Slot) map[SlotKey]Slot {
	set := make(map[SlotKey]Slot, len(slots))
	for _, s := range slots {
		set[s.Key()] = s
	}
	return set
}
