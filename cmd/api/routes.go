package main

import (
	"context"
	"net/http"

	"claims-dialer/internal/httpapi"
	"claims-dialer/internal/rbac"
	"claims-dialer/internal/telephony"

	"github.com/gin-gonic/gin"
)

type appDeps struct {
	dialer   telephony.Handlers
	webhooks *telephony.WebhookHandler
	accounts httpapi.Handlers

	authMW     gin.HandlerFunc
	loginLimit *httpapi.RateLimiter
	health     func(ctx context.Context) error
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, deps appDeps) {
	r.GET("/healthz", func(c *gin.Context) {
		if deps.health != nil {
			if err := deps.health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider webhooks (public). The provider authenticates by knowing
	// the callback URL; payloads are identified by shape.
	// NOTE: These endpoints should be protected by provider signature
	// validation in production.
	r.POST("/webhooks/voice/status", deps.webhooks.HandleStatusCallback)
	r.POST("/webhooks/voice/connect", deps.dialer.VoiceConnect)
	r.GET("/webhooks/voice/connect", deps.dialer.VoiceConnect)

	v1 := r.Group("/v1")

	// Login is public and throttled; everything else under /v1 requires
	// an access token.
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/login", deps.loginLimit.Middleware(), deps.accounts.Login)
		authGroup.POST("/refresh", deps.loginLimit.Middleware(), deps.accounts.Refresh)
		authGroup.GET("/me", deps.authMW, deps.accounts.Me)
	}

	dialer := v1.Group("/dialer")
	dialer.Use(deps.authMW)
	dialer.Use(rbac.RequireAnyRole(rbac.RoleTelemarketer, rbac.RoleAgent))
	{
		dialer.POST("/token", deps.dialer.IssueToken)
		dialer.POST("/calls", deps.dialer.StartCall)
		dialer.GET("/calls/status", deps.dialer.CallStatus)
	}
}
