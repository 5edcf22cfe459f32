package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"slotwatch-backend/config"
	"slotwatch-backend/internal/checker"
	"slotwatch-backend/internal/history"
	"slotwatch-backend/internal/metrics"
	"slotwatch-backend/internal/model"
	"slotwatch-backend/internal/notify"
	"slotwatch-backend/internal/parse"
	"slotwatch-backend/internal/portal"
	"slotwatch-backend/internal/store"
)

// TestSlotLifecycle runs two full check cycles against a mock portal
// and verifies the snapshot, notification, and archive state after
// each: slots appear (and are announced), then one disappears.
func TestSlotLifecycle(t *testing.T) {
	// 1. In-memory archive database.
	testDB, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()
	require.NoError(t, testDB.AutoMigrate(&model.CheckRun{}, &model.PushSubscription{}))

	// 2. Mock portal serving the embedded workflow. The GetSlots
	// response changes between cycles.
	slotResponses := []string{
		`{"Slots":[
			{"Date":"2026-08-05","Time":"8:30 AM","ProviderName":"Daniel Rai","DepartmentId":"3202010"},
			{"Date":"2026-08-06","Time":"1:00 PM","DepartmentId":"3202010"}
		]}`,
		`{"Slots":[
			{"Date":"2026-08-05","Time":"8:30 AM","ProviderName":"Daniel Rai","DepartmentId":"3202010"}
		]}`,
	}
	var slotCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/Scheduling/Embedded", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<script>__widgetheader: 'tok-1'</script>`))
	})
	mux.HandleFunc("/Scheduling/Embedded/ReloadSchedulingWorkflowData", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"WidgetHeader":"tok-2"}`))
	})
	mux.HandleFunc("/Scheduling/Embedded/EvaluatePatientLocationRule", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/Scheduling/Embedded/GetSlots", func(w http.ResponseWriter, r *http.Request) {
		body := slotResponses[slotCalls]
		if slotCalls < len(slotResponses)-1 {
			slotCalls++
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})
	portalServer := httptest.NewServer(mux)
	defer portalServer.Close()

	// 3. Mock issue tracker recording created issues.
	var issues []string
	ghServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title string `json:"title"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		issues = append(issues, req.Title)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"html_url": "https://github.com/x/y/issues/1"})
	}))
	defer ghServer.Close()

	// 4. Wire the service the way the serve command does.
	cfg := &config.Config{
		Checker: config.CheckerConfig{
			Source:      "api",
			HistoryFile: filepath.Join(t.TempDir(), "history.json"),
			DateEpoch:   "1840-12-31",
		},
		Portal: config.PortalConfig{
			BaseURL:        portalServer.URL,
			DepartmentIDs:  "3202010",
			VisitType:      "2551",
			WidgetID:       "MyChartIframe0",
			TimeoutSeconds: 5,
			RequestsPerSec: 1000,
		},
		GitHub: config.GitHubConfig{
			Repository: "x/y",
			Token:      "tok",
			Label:      "appointment-alert",
			APIBaseURL: ghServer.URL,
		},
	}

	hist := history.NewStore(cfg.Checker.HistoryFile)
	archive := store.NewGormStore(testDB)
	source := portal.NewClient(cfg.Portal, parse.NewDateCodec(cfg.Checker.Epoch()))
	notifier := notify.NewGitHubNotifier(cfg.GitHub, "")
	svc := checker.NewService(cfg, source, hist, archive, notifier, nil, metrics.New())

	// --- Cycle 1: two slots appear ---
	t.Run("Cycle 1: slots appear and are announced", func(t *testing.T) {
		summary, err := svc.CheckOnce(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, summary.SlotsFound)
		assert.Equal(t, 2, summary.NewCount)
		assert.True(t, summary.NotificationSent)
		assert.Equal(t, "https://github.com/x/y/issues/1", summary.IssueURL)

		require.Len(t, issues, 1)
		assert.Equal(t, "2 New Appointment Slot(s) Available - 2026-08-05", issues[0])

		snap := hist.Load()
		assert.Len(t, snap.Slots, 2)
		require.NotNil(t, snap.LastCheck)

		runs, err := archive.RecentChecks(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, 2, runs[0].SlotCount)
		assert.Equal(t, 2, runs[0].NewCount)
		assert.True(t, runs[0].Notified)
	})

	// --- Cycle 2: one slot disappears ---
	t.Run("Cycle 2: removed slot is not announced", func(t *testing.T) {
		summary, err := svc.CheckOnce(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, summary.SlotsFound)
		assert.Equal(t, 0, summary.NewCount)
		assert.Equal(t, 1, summary.RemovedCount)
		assert.Equal(t, 1, summary.UnchangedCount)
		assert.False(t, summary.NotificationSent)
		assert.Len(t, issues, 1, "no new issue for removals")

		snap := hist.Load()
		require.Len(t, snap.Slots, 1)
		assert.Equal(t, "8:30 AM", snap.Slots[0].Time)

		runs, err := archive.RecentChecks(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})
}
