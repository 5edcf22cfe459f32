package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotwatch-backend/internal/model"
)

func ptr(s string) *string {
	return &s
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "history.json"))
	s.now = func() time.Time {
		return time.Date(2026, time.August, 5, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func TestStore_LoadMissingFileIsFirstRun(t *testing.T) {
	s := newTestStore(t)

	snap := s.Load()
	assert.Nil(t, snap.LastCheck)
	assert.Empty(t, snap.Slots)
	assert.Empty(t, snap.Checks)
	assert.Empty(t, s.PreviousSlots())
}

func TestStore_LoadCorruptFileIsFirstRun(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.path, []byte("{not json"), 0o644))

	snap := s.Load()
	assert.Nil(t, snap.LastCheck)
	assert.Empty(t, snap.Slots)
	assert.Empty(t, snap.Checks)
}

func TestStore_UpdateRoundTrip(t *testing.T) {
	s := newTestStore(t)
	slots := []model.Slot{
		{Date: "2026-08-05", Time: "8:30 AM", Provider: ptr("Dr. Rai")},
		{Date: "2026-08-06", Time: "1:00 PM"},
	}

	require.NoError(t, s.Update(slots, nil))

	snap := s.Load()
	require.NotNil(t, snap.LastCheck)
	assert.Equal(t, "2026-08-05T12:00:00Z", *snap.LastCheck)
	assert.Equal(t, slots, snap.Slots)
	require.Len(t, snap.Checks, 1)
	assert.Equal(t, CheckEntry{Timestamp: "2026-08-05T12:00:00Z", SlotCount: 2}, snap.Checks[0])

	prev := s.PreviousSlots()
	require.Len(t, prev, 2)
	assert.Equal(t, slots[0], prev[slots[0].Key()])
}

func TestStore_CheckLogIsCapped(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 150; i++ {
		tick := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return tick }
		require.NoError(t, s.Update(nil, nil))
	}

	snap := s.Load()
	require.Len(t, snap.Checks, 100)
	// Oldest 50 entries dropped; the survivors stay chronological.
	assert.Equal(t, base.Add(50*time.Minute).Format(time.RFC3339), snap.Checks[0].Timestamp)
	assert.Equal(t, base.Add(149*time.Minute).Format(time.RFC3339), snap.Checks[99].Timestamp)
	for i := 1; i < len(snap.Checks); i++ {
		assert.Less(t, snap.Checks[i-1].Timestamp, snap.Checks[i].Timestamp)
	}
}

func TestStore_UpdateKeepsRawResponse(t *testing.T) {
	s := newTestStore(t)
	raw := json.RawMessage(`{"Slots":[]}`)

	require.NoError(t, s.Update(nil, raw))
	assert.Equal(t, raw, s.Load().LastRawResponse)

	// A later update without a raw payload keeps the previous one.
	require.NoError(t, s.Update(nil, nil))
	assert.Equal(t, raw, s.Load().LastRawResponse)
}

func TestStore_UpdateCreatesParentDirectory(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "nested", "deeper", "history.json"))

	require.NoError(t, s.Update([]model.Slot{{Date: "2026-08-05", Time: "8:30 AM"}}, nil))
	assert.FileExists(t, s.path)
}

func TestStore_WriteFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	// Use a directory as the target path so the rename fails.
	target := filepath.Join(dir, "history.json")
	require.NoError(t, os.MkdirAll(target, 0o755))

	s := NewStore(target)
	err := s.Update(nil, nil)
	require.Error(t, err)
	assert.Contains(t, fmt.Sprint(err), "history")
}
