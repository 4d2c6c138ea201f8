package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestKeyFuncs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var byIP, byRoute string
	r.GET("/api/status", func(c *gin.Context) {
		byIP = KeyByIP()(c)
		byRoute = KeyByRouteAndIP()(c)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/status?id=x", nil)
	req.RemoteAddr = "203.0.113.9:12345"
	r.ServeHTTP(httptest.NewRecorder(), req)

	if byIP != "ip:203.0.113.9" {
		t.Fatalf("KeyByIP = %q", byIP)
	}
	if byRoute != "/api/status|ip:203.0.113.9" {
		t.Fatalf("KeyByRouteAndIP = %q", byRoute)
	}
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(2, 0, nil)
	if rl.burst != 1 || rl.keyFn == nil {
		t.Fatalf("defaults not applied: burst=%d", rl.burst)
	}
	if rl.getVisitor("k") != rl.getVisitor("k") {
		t.Fatalf("limiter must be reused per key")
	}
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByIP())
	rl.ttl = time.Nanosecond
	rl.mu.Lock()
	rl.visitors["old"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: time.Now().Add(-time.Hour)}
	rl.cleanupN = 4999
	rl.mu.Unlock()

	_ = rl.getVisitor("new")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["old"]; ok {
		t.Fatalf("idle bucket not evicted")
	}
	if _, ok := rl.visitors["new"]; !ok {
		t.Fatalf("requested bucket missing")
	}
}

func TestRateLimiter_Handler_429AndReplayBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.0001, 1, KeyByIP())

	r := gin.New()
	r.Use(RequestID())
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Replay") == "1" {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	})
	r.Use(rl.Handler())
	r.POST("/api/submit", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	do := func(replay bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/submit", nil)
		req.RemoteAddr = "198.51.100.1:1"
		if replay {
			req.Header.Set("X-Replay", "1")
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := do(false); w.Code != http.StatusAccepted {
		t.Fatalf("first request = %d", w.Code)
	}
	w := do(false)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "1" {
		t.Fatalf("second request = %d, Retry-After=%q", w.Code, w.Header().Get("Retry-After"))
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["code"] != "too_many_requests" || body["request_id"] == "" {
		t.Fatalf("unexpected body: %v", body)
	}
	if w := do(true); w.Code != http.StatusAccepted {
		t.Fatalf("replay must bypass the limiter, got %d", w.Code)
	}
}
