// Package history persists the latest slot snapshot to a JSON file.
//
// The file is the source of truth for "what was available last time":
// it is read at the start of a check cycle and rewritten wholesale at
// the end. A missing or corrupt file is first-run semantics, but a
// failed write surfaces to the caller, because silently losing a
// snapshot would desynchronize every later comparison.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"slotwatch-backend/internal/model"
)

// maxCheckEntries caps the rolling check log; the oldest entries are
// dropped first.
const maxCheckEntries = 100

// CheckEntry is one line of the rolling check log.
type CheckEntry struct {
	Timestamp string `json:"timestamp"`
	SlotCount int    `json:"slot_count"`
}

// Snapshot is the persisted file format.
type Snapshot struct {
	LastCheck       *string         `json:"last_check"`
	Slots           []model.Slot    `json:"slots"`
	Checks          []CheckEntry    `json:"checks"`
	LastRawResponse json.RawMessage `json:"last_raw_response,omitempty"`
}

// Store reads and writes the snapshot file.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore creates a store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Load returns the last persisted snapshot. A missing or unreadable
// file is not an error: the caller gets an empty snapshot and the
// cycle proceeds as a first run.
func (s *Store) Load() Snapshot {
	empty := Snapshot{Slots: []model.Slot{}, Checks: []CheckEntry{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("history: could not read %s: %v (treating as first run)", s.path, err)
		}
		return empty
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("history: could not parse %s: %v (treating as first run)", s.path, err)
		return empty
	}
	if snap.Slots == nil {
		snap.Slots = []model.Slot{}
	}
	if snap.Checks == nil {
		snap.Checks = []CheckEntry{}
	}
	return snap
}

// PreviousSlots returns the last snapshot's slots as an identity-keyed
// set ready for reconciliation.
func (s *Store) PreviousSlots() map[model.SlotKey]model.Slot {
	return model.KeySet(s.Load().Slots)
}

// Update rewrites the snapshot with the current slots, stamps the
// check time, and appends to the rolling check log. rawResponse, when
// non-nil, is kept verbatim for debugging. Write failures propagate.
func (s *Store) Update(currentSlots []model.Slot, rawResponse json.RawMessage) error {
	snap := s.Load()
	now := s.now().UTC().Format(time.RFC3339)

	snap.Checks = append(snap.Checks, CheckEntry{
		Timestamp: now,
		SlotCount: len(currentSlots),
	})
	if len(snap.Checks) > maxCheckEntries {
		snap.Checks = snap.Checks[len(snap.Checks)-maxCheckEntries:]
	}

	snap.LastCheck = &now
	snap.Slots = currentSlots
	if snap.Slots == nil {
		snap.Slots = []model.Slot{}
	}
	if rawResponse != nil {
		snap.LastRawResponse = rawResponse
	}

	return s.write(snap)
}

func (s *Store) write(snap Snapshot) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history snapshot: %w", err)
	}

	// Write via a temp file and rename so readers never see a torn
	// snapshot.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace history snapshot: %w", err)
	}

	log.Printf("history: updated %s with %d slots", s.path, len(snap.Slots))
	return nil
}
