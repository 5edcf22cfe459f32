package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_CheckSucceeded(t *testing.T) {
	m := New()

	m.CheckSucceeded(5, 2, 1, 1700000000)
	m.CheckSucceeded(3, 0, 2, 1700000300)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.checksTotal.WithLabelValues("success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.slotsFound), "gauge tracks the latest check")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.newSlotsTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.removedSlotsTotal))
	assert.Equal(t, 1700000300.0, testutil.ToFloat64(m.lastSuccessTS))
}

func TestMetrics_CheckFailed(t *testing.T) {
	m := New()

	m.CheckFailed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.checksTotal.WithLabelValues("failure")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.checksTotal.WithLabelValues("success")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.CheckSucceeded(5, 2, 1, 1700000000)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "slotwatch_checks_total")
	assert.Contains(t, w.Body.String(), "slotwatch_slots_available 5")
}
