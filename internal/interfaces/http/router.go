// Package http wires the gin engine: middleware chain, route groups, and
// server lifecycle.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/courierd/courierd/internal/application/service"
	"github.com/courierd/courierd/internal/config"
	"github.com/courierd/courierd/internal/infrastructure/monitoring"
	"github.com/courierd/courierd/internal/interfaces/http/handlers"
	"github.com/courierd/courierd/internal/interfaces/http/middleware"
	"github.com/courierd/courierd/pkg/constants"
	"github.com/courierd/courierd/pkg/logger"
)

// Router owns the gin engine and the HTTP server lifecycle.
type Router struct {
	engine              *gin.Engine
	config              *config.Config
	logger              logger.Logger
	validation          service.ValidationService
	metrics             *monitoring.Metrics
	healthHandler       *handlers.HealthHandler
	adminHandler        *handlers.AdminHandler
	notificationHandler *handlers.NotificationHandler
	server              *http.Server
}

// NewRouter creates the router and registers all routes.
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	validation service.ValidationService,
	metrics *monitoring.Metrics,
	healthHandler *handlers.HealthHandler,
	adminHandler *handlers.AdminHandler,
	notificationHandler *handlers.NotificationHandler,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		engine:              gin.New(),
		config:              cfg,
		logger:              log.WithComponent("http"),
		validation:          validation,
		metrics:             metrics,
		healthHandler:       healthHandler,
		adminHandler:        adminHandler,
		notificationHandler: notificationHandler,
	}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.Observability(r.metrics))

	r.engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type",
			constants.HeaderAuthorization, constants.HeaderAPIKey, constants.HeaderRequestID,
		},
		ExposeHeaders: []string{
			constants.HeaderRequestID,
			constants.HeaderRateLimitLimit, constants.HeaderRateLimitRemaining, constants.HeaderRateLimitReset,
		},
		MaxAge: 12 * time.Hour,
	}))

	r.engine.GET("/health/live", r.healthHandler.Live)
	r.engine.GET("/health/ready", r.healthHandler.Ready)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if r.config.Server.EnablePprof {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/v1")
	{
		notifications := v1.Group("/notifications")
		notifications.Use(middleware.RequireAPIKey(r.validation, constants.ScopeNotificationsCreate, r.logger))
		{
			notifications.POST("", r.notificationHandler.Submit)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.RequireAPIKey(r.validation, constants.ScopeAdminKeys, r.logger))
		{
			admin.POST("/keys", r.adminHandler.CreateKey)
			admin.GET("/keys", r.adminHandler.ListKeys)
			admin.GET("/keys/:id", r.adminHandler.GetKey)
			admin.DELETE("/keys/:id", r.adminHandler.DeleteKey)
			admin.POST("/keys/cleanup", r.adminHandler.CleanupKeys)

			admin.GET("/audit/events", r.adminHandler.RecentEvents)
			admin.GET("/audit/keys/:id/events", r.adminHandler.KeyEvents)
			admin.GET("/audit/suspicious", r.adminHandler.SuspiciousSummary)
		}
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   string(constants.ErrCodeNotFound),
			"message": "the requested resource was not found",
		})
	})
}

// Engine exposes the configured gin engine, mainly for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (r *Router) Start() error {
	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    r.config.Server.ReadTimeout,
		WriteTimeout:   r.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	r.logger.Info(context.Background(), "starting HTTP server", logger.String("address", addr))

	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (r *Router) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.logger.Info(ctx, "stopping HTTP server")
	return r.server.Shutdown(ctx)
}
