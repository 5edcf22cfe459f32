package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotwatch-backend/internal/history"
	"slotwatch-backend/internal/model"
)

func newTestHistory(t *testing.T) *history.Store {
	t.Helper()
	return history.NewStore(filepath.Join(t.TempDir(), "history.json"))
}

func setupStatusRouter(hist *history.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.Default()
	handler := NewHandler(hist, nil, nil)
	r.GET("/api/status", handler.GetStatus)
	r.GET("/api/slots", handler.GetSlots)
	r.GET("/api/vapid_public_key", handler.GetVAPIDPublicKey)
	return r
}

func TestGetStatus_EmptyHistory(t *testing.T) {
	router := setupStatusRouter(newTestHistory(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/status", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"last_check":null,"slots_available":0,"checks_logged":0}`, w.Body.String())
}

func TestGetStatus_AfterUpdate(t *testing.T) {
	hist := newTestHistory(t)
	require.NoError(t, hist.Update([]model.Slot{
		{Date: "2026-08-05", Time: "8:30 AM"},
		{Date: "2026-08-06", Time: "1:00 PM"},
	}, nil))
	router := setupStatusRouter(hist)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/status", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		LastCheck      *string `json:"last_check"`
		SlotsAvailable int     `json:"slots_available"`
		ChecksLogged   int     `json:"checks_logged"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp.LastCheck)
	assert.Equal(t, 2, resp.SlotsAvailable)
	assert.Equal(t, 1, resp.ChecksLogged)
}

func TestGetSlots(t *testing.T) {
	hist := newTestHistory(t)
	provider := "Daniel Rai"
	require.NoError(t, hist.Update([]model.Slot{
		{Date: "2026-08-05", Time: "8:30 AM", Provider: &provider},
	}, nil))
	router := setupStatusRouter(hist)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/slots", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		LastCheck *string      `json:"last_check"`
		Slots     []model.Slot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Slots, 1)
	assert.Equal(t, "2026-08-05", resp.Slots[0].Date)
	assert.Equal(t, "8:30 AM", resp.Slots[0].Time)
	require.NotNil(t, resp.Slots[0].Provider)
	assert.Equal(t, "Daniel Rai", *resp.Slots[0].Provider)
}

func TestGetVAPIDPublicKey_Unconfigured(t *testing.T) {
	router := setupStatusRouter(newTestHistory(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/vapid_public_key", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
