package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"redlink/config"
)

func newLimitedRouter(limitPerMinute int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(config.AppConfig{RateLimitPerMinute: limitPerMinute}))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func hit(r *gin.Engine, addr string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = addr
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitExhaustsBurst(t *testing.T) {
	// limit 4/min gives a burst of 2
	r := newLimitedRouter(4)
	addr := "10.1.1.1:5000"

	for i := 0; i < 2; i++ {
		if code := hit(r, addr); code != http.StatusOK {
			t.Fatalf("request %d = %d, want 200", i, code)
		}
	}
	if code := hit(r, addr); code != http.StatusTooManyRequests {
		t.Errorf("over-limit request = %d, want 429", code)
	}
}

func TestRateLimitIsPerIP(t *testing.T) {
	r := newLimitedRouter(4)

	for i := 0; i < 2; i++ {
		hit(r, "10.2.2.2:5000")
	}
	if code := hit(r, "10.3.3.3:5000"); code != http.StatusOK {
		t.Errorf("fresh client got %d, want 200", code)
	}
}
