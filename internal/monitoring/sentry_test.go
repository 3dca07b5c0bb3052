package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSentryMonitor_DisabledWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(&SentryConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, m.Enabled())

	m.CaptureError(errors.New("ignored"), nil)
	m.Flush(time.Millisecond)
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, _ := NewSentryMonitor(nil, zap.NewNop())

	router := gin.New()
	router.Use(m.GinMiddleware(), m.RecoveryMiddleware())
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
