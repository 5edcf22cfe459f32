package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func setupRateLimitedRouter(limit rate.Limit, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiter(limit, burst))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	router := setupRateLimitedRouter(1, 3)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}
}

func TestRateLimiter_RejectsBeyondBurst(t *testing.T) {
	router := setupRateLimitedRouter(0.001, 1)

	first := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	router.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/ping", nil)
	router.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRateLimiter_BucketsPerIP(t *testing.T) {
	router := setupRateLimitedRouter(0.001, 1)

	reqA, _ := http.NewRequest("GET", "/ping", nil)
	reqA.RemoteAddr = "10.0.0.1:1234"
	reqB, _ := http.NewRequest("GET", "/ping", nil)
	reqB.RemoteAddr = "10.0.0.2:1234"

	wA := httptest.NewRecorder()
	router.ServeHTTP(wA, reqA)
	assert.Equal(t, http.StatusOK, wA.Code)

	// A different client keeps its own budget.
	wB := httptest.NewRecorder()
	router.ServeHTTP(wB, reqB)
	assert.Equal(t, http.StatusOK, wB.Code)

	wA2 := httptest.NewRecorder()
	reqA2, _ := http.NewRequest("GET", "/ping", nil)
	reqA2.RemoteAddr = "10.0.0.1:5678"
	router.ServeHTTP(wA2, reqA2)
	assert.Equal(t, http.StatusTooManyRequests, wA2.Code)
}
