package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mint-backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, maxRequests int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.AppConfig = &config.Config{
		RateLimit: config.RateLimitConfig{WindowSeconds: 60, MaxRequests: maxRequests},
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return New(Deps{Logger: logger})
}

func TestMintSubmissionRequiresOpsAuth(t *testing.T) {
	engine := newTestEngine(t, 10)

	req := httptest.NewRequest(http.MethodPost, "/api/mint", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_AUTH_HEADER")
}

func TestMintRoutesRateLimited(t *testing.T) {
	engine := newTestEngine(t, 3)

	// an invalid wallet trips the handler's own validation, which proves the
	// request made it past the limiter
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/mint/eligibility/nope", nil))
		require.Equal(t, http.StatusBadRequest, w.Code)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/mint/eligibility/nope", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
