package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestIsAllowedOrigin(t *testing.T) {
	extensionOnly := []string{"chrome-extension://*"}
	mixed := []string{"chrome-extension://*", "http://localhost:3000"}

	tests := []struct {
		origin  string
		allowed []string
		want    bool
	}{
		{"chrome-extension://abcdefg12345", []string{"chrome-extension://abcdefg12345"}, true},
		{"chrome-extension://abcdefg12345", extensionOnly, true},
		{"chrome-extension://abcdefg12345", []string{"chrome-*"}, true},
		{"http://localhost:3000", mixed, true},
		{"http://localhost:3001", mixed, false},
		{"http://evil.com", extensionOnly, false},
		{"", extensionOnly, false},
		{"chrome-extension://abcdefg12345", nil, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isAllowedOrigin(tt.origin, tt.allowed), "origin %q against %v", tt.origin, tt.allowed)
	}
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(CORSMiddleware([]string{"chrome-extension://*"}))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantCORS   bool
	}{
		{name: "allowed origin", method: "GET", origin: "chrome-extension://abcdefg12345", wantStatus: http.StatusOK, wantCORS: true},
		{name: "preflight", method: "OPTIONS", origin: "chrome-extension://abcdefg12345", wantStatus: http.StatusNoContent, wantCORS: true},
		{name: "disallowed origin", method: "GET", origin: "http://evil.com", wantStatus: http.StatusOK},
		{name: "no origin", method: "GET", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if !tt.wantCORS {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
				return
			}
			assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
			assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), SearchSessionHeader)
			assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimitMiddleware(2))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	get := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, get("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, get("10.0.0.1").Code)

	w := get("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit")

	assert.Equal(t, http.StatusOK, get("10.0.0.2").Code, "other clients have their own bucket")
}

func TestIPLimitersForgetIdleClients(t *testing.T) {
	l := newIPLimiters(1)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	require.True(t, l.allow("a"))
	require.False(t, l.allow("a"), "burst of one")

	now = now.Add(10 * time.Minute)
	l.allow("b")
	assert.NotContains(t, l.clients, "a")
	assert.True(t, l.allow("a"), "a forgotten client starts with a full bucket")
}

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.InfoLevel)
	defer zap.ReplaceGlobals(zap.NewNop())
	zap.ReplaceGlobals(zap.New(core))

	router := gin.New()
	router.Use(LoggerMiddleware())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	for _, path := range []string{"/ok", "/fail"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/ok", entries[0].ContextMap()["path"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.EqualValues(t, http.StatusBadGateway, entries[1].ContextMap()["status"])
}
