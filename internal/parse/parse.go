// Package parse normalizes the loosely structured slot data returned by
// the scheduling portal into canonical model.Slot records.
//
// The upstream response shape is not stable: slots appear under several
// alternative top-level containers, nested under day, provider or
// department groupings, and individual fields go by multiple spellings.
// Extraction therefore probes an ordered list of candidates per logical
// field and treats anything malformed as "no record", never as a fatal
// error.
package parse

import (
	"encoding/json"
	"log"
	"strconv"
	"strings"

	"slotwatch-backend/internal/model"
)

// Stats reports how a normalization run went. Skipped counts raw items
// that were examined but produced no record (missing date/time, wrong
// shape); it exists so callers and tests can tell "nothing offered"
// apart from "everything dropped".
type Stats struct {
	Parsed  int
	Skipped int
}

// Normalizer flattens an untyped response tree into canonical slots.
type Normalizer struct {
	dates DateCodec
}

// NewNormalizer builds a normalizer that decodes integer dates with the
// given codec.
func NewNormalizer(dates DateCodec) *Normalizer {
	return &Normalizer{dates: dates}
}

// top-level containers holding either plain slots or day groupings,
// probed in priority order
var slotContainers = []string{"Slots", "AvailableSlots", "slots", "Days", "AllDays"}

// Slots extracts every slot record it can find in payload. Absent
// containers and malformed items are skipped, never errors; the output
// carries no ordering guarantee.
func (n *Normalizer) Slots(payload any) ([]model.Slot, Stats) {
	var slots []model.Slot
	var stats Stats

	root := asMap(payload)
	if root == nil {
		// A bare list is treated like an "all slots" container.
		if items := asList(payload); items != nil {
			for _, item := range items {
				slots = n.appendItem(slots, item, &stats)
			}
		}
		stats.Parsed = len(slots)
		return slots, stats
	}

	for _, name := range slotContainers {
		items := asList(root[name])
		for _, item := range items {
			slots = n.appendItem(slots, item, &stats)
		}
	}

	// Slots nested under provider groupings.
	for _, p := range firstList(root, "Providers", "providers") {
		pm := asMap(p)
		if pm == nil {
			stats.Skipped++
			continue
		}
		ov := overrides{provider: firstString(pm, "Name", "DisplayName")}
		for _, item := range firstList(pm, "Slots", "AvailableSlots") {
			slots = n.appendSingle(slots, item, ov, &stats)
		}
	}

	// Slots nested under department groupings.
	for _, d := range firstList(root, "Departments", "departments") {
		dm := asMap(d)
		if dm == nil {
			stats.Skipped++
			continue
		}
		ov := overrides{
			department:   firstString(dm, "Name", "DisplayName"),
			departmentID: firstString(dm, "Id", "DepartmentId"),
		}
		for _, item := range firstList(dm, "Slots", "AvailableSlots") {
			slots = n.appendSingle(slots, item, ov, &stats)
		}
	}

	stats.Parsed = len(slots)
	log.Printf("parse: normalized %d slots (%d raw items skipped)", stats.Parsed, stats.Skipped)
	return slots, stats
}

// overrides carries values propagated from a containing day, provider
// or department grouping down to each nested slot.
type overrides struct {
	date         string
	provider     string
	department   string
	departmentID string
}

// appendItem handles one entry of a top-level container, which is
// either a day grouping (date plus nested per-time entries) or a single
// slot record.
func (n *Normalizer) appendItem(slots []model.Slot, item any, stats *Stats) []model.Slot {
	m := asMap(item)
	if m == nil {
		stats.Skipped++
		return slots
	}

	dayDate := n.dateString(firstValue(m, "Date", "date"))
	daySlots := firstList(m, "Slots", "slots")
	if dayDate != "" && len(daySlots) > 0 {
		ov := overrides{date: dayDate}
		for _, nested := range daySlots {
			slots = n.appendSingle(slots, nested, ov, stats)
		}
		return slots
	}

	return n.appendSingle(slots, item, overrides{}, stats)
}

// appendSingle parses one raw record, applying any container overrides.
// Records missing a date or time are dropped.
func (n *Normalizer) appendSingle(slots []model.Slot, item any, ov overrides, stats *Stats) []model.Slot {
	m := asMap(item)
	if m == nil {
		stats.Skipped++
		return slots
	}

	date := ov.date
	if date == "" {
		date = n.dateString(firstValue(m, "Date", "date", "AppointmentDate", "StartDate"))
	}
	timeStr := firstString(m, "Time", "time", "StartTime", "DisplayTime")
	if date == "" || timeStr == "" {
		stats.Skipped++
		return slots
	}

	provider := ov.provider
	if provider == "" {
		provider = firstString(m, "ProviderName", "Provider")
	}
	department := ov.department
	if department == "" {
		department = firstString(m, "DepartmentName", "Department")
	}
	departmentID := ov.departmentID
	if departmentID == "" {
		departmentID = firstString(m, "DepartmentId", "DeptId")
	}

	return append(slots, model.Slot{
		Date:         date,
		Time:         timeStr,
		Provider:     optional(provider),
		Department:   optional(department),
		DepartmentID: optional(departmentID),
		SlotID:       optional(firstString(m, "Id", "SlotId")),
	})
}

// dateString normalizes a raw date value. Integers are the upstream
// epoch-day encoding and go through the codec; anything else is taken
// verbatim after trimming.
func (n *Normalizer) dateString(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(d)
	case float64:
		return n.dates.OffsetToDate(int(d))
	case int:
		return n.dates.OffsetToDate(d)
	case int64:
		return n.dates.OffsetToDate(int(d))
	case json.Number:
		if i, err := d.Int64(); err == nil {
			return n.dates.OffsetToDate(int(i))
		}
		return strings.TrimSpace(d.String())
	default:
		return ""
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

// firstValue returns the first non-nil value among the candidate keys.
func firstValue(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// firstString returns the first candidate key whose value stringifies
// to something non-empty.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringify(m[k]); s != "" {
			return s
		}
	}
	return ""
}

// firstList returns the first candidate key holding a non-empty list.
func firstList(m map[string]any, keys ...string) []any {
	for _, k := range keys {
		if l := asList(m[k]); len(l) > 0 {
			return l
		}
	}
	return nil
}

// stringify coerces scalar values to trimmed strings. Identifiers in
// particular arrive as either strings or numbers depending on the
// response shape.
func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return strings.TrimSpace(s.String())
	default:
		return ""
	}
}
