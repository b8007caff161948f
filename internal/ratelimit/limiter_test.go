package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestWithDefaults(t *testing.T) {
	t.Parallel()

	defaulted := Config{}.withDefaults()
	if defaulted.Capacity != 10 {
		t.Fatalf("unexpected capacity: %d", defaulted.Capacity)
	}
	if defaulted.RefillTokens != 1 || defaulted.RefillInterval != 6*time.Second {
		t.Fatalf("unexpected refill defaults: %+v", defaulted)
	}
	if defaulted.TTL < 5*defaulted.RefillInterval {
		t.Fatalf("ttl must cover several refill intervals, got %v", defaulted.TTL)
	}
	if defaulted.Prefix != "rl" {
		t.Fatalf("unexpected prefix: %q", defaulted.Prefix)
	}

	tuned := Config{Capacity: 3, RefillTokens: 2, RefillInterval: time.Second, TTL: time.Minute, Prefix: "login"}.withDefaults()
	if tuned.Capacity != 3 || tuned.RefillTokens != 2 || tuned.Prefix != "login" {
		t.Fatalf("explicit settings must survive: %+v", tuned)
	}
}

func TestLoginThrottleWithoutRedisPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/api/auth", LoginThrottle(Config{}, nil, nil), func(contextGin *gin.Context) {
		contextGin.Status(http.StatusNoContent)
	})

	for attempt := 0; attempt < 50; attempt++ {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/auth", nil))
		if recorder.Code != http.StatusNoContent {
			t.Fatalf("nil redis client must never throttle, got %d on attempt %d", recorder.Code, attempt)
		}
	}
}
