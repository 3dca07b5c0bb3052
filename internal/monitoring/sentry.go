// Package monitoring reports errors and panics to Sentry.
package monitoring

import (
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SentryConfig holds Sentry settings
type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	ServiceName      string
	TracesSampleRate float64
}

// SentryMonitor wraps the Sentry client. A monitor without a DSN is a no-op.
type SentryMonitor struct {
	enabled bool
	logger  *zap.Logger
}

// NewSentryMonitor initializes Sentry. It always returns a usable monitor.
func NewSentryMonitor(cfg *SentryConfig, logger *zap.Logger) (*SentryMonitor, error) {
	m := &SentryMonitor{logger: logger}
	if cfg == nil || cfg.DSN == "" {
		logger.Info("Sentry DSN not set, error tracking disabled")
		return m, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		ServerName:       cfg.ServiceName,
		TracesSampleRate: cfg.TracesSampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return m, fmt.Errorf("sentry init: %w", err)
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("service", cfg.ServiceName)
	})

	m.enabled = true
	logger.Info("Sentry initialized", zap.String("environment", cfg.Environment))
	return m, nil
}

// Enabled reports whether events are sent
func (m *SentryMonitor) Enabled() bool {
	return m != nil && m.enabled
}

// Flush waits for buffered events
func (m *SentryMonitor) Flush(timeout time.Duration) {
	if m.Enabled() {
		sentry.Flush(timeout)
	}
}

// CaptureError reports an error with extra tags
func (m *SentryMonitor) CaptureError(err error, tags map[string]string) {
	if !m.Enabled() || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// GinMiddleware attaches a Sentry hub to every request
func (m *SentryMonitor) GinMiddleware() gin.HandlerFunc {
	if !m.Enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return sentrygin.New(sentrygin.Options{Repanic: true})
}

// RecoveryMiddleware turns panics into 500 responses and reports them
func (m *SentryMonitor) RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if m.Enabled() {
					if hub := sentrygin.GetHubFromContext(c); hub != nil {
						hub.RecoverWithContext(c.Request.Context(), r)
					} else {
						sentry.CurrentHub().Recover(r)
					}
				}
				m.logger.Error("Panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
		}()
		c.Next()
	}
}
