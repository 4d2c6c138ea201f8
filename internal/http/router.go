// Package httpapi wires the HTTP transport (Gin) to the SitePilot handlers,
// middleware and docs. It centralizes cross-cutting concerns such as
// tracing, correlation IDs, redacted logging, panic recovery, metrics, CORS,
// security headers, idempotency and rate limiting.
//
// Every endpoint is anonymous and called cross-origin by the marketing
// site, so the limiter and the body cap are the only abuse controls.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/simpleit/sitepilot/docs"
	"github.com/simpleit/sitepilot/internal/config"
	"github.com/simpleit/sitepilot/internal/http/handlers"
	"github.com/simpleit/sitepilot/internal/http/middleware"
	"github.com/simpleit/sitepilot/internal/repo"
	"github.com/simpleit/sitepilot/internal/worker"
)

// maxBodyBytes caps request bodies; every payload is a small form.
const maxBodyBytes = 1 << 20

// RouterConfig carries the dependencies RegisterRoutes mounts.
type RouterConfig struct {
	// DB backs the Idempotency-Key lookup.
	DB *gorm.DB

	Audits  handlers.AuditService
	Notify  handlers.NotifyService
	Leads   handlers.LeadService
	Tickets handlers.TicketService
	Reviews handlers.ReviewsClient

	// Background receives jobs posted to /background.
	Background worker.Dispatcher
}

// RegisterRoutes attaches all middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per route and IP, bypass on replay)
//  9. CORS, security headers and compression
func RegisterRoutes(r *gin.Engine, deps RouterConfig, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	handlers.RegisterValidators()

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-Goog-Api-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, key string, now time.Time) (bool, error) {
			if deps.DB == nil {
				return false, nil
			}
			id, err := repo.GetIdempotency(ctx, deps.DB, key, now)
			if err != nil || id == "" {
				return false, nil
			}
			return true, nil
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByRouteAndIP())
	r.Use(rl.Handler())

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(deps.Audits, deps.Notify, deps.Leads, deps.Tickets, deps.Reviews, deps.Background)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Audits
		api.POST("/submit", h.Submit)
		api.POST("/background", h.Background)
		api.GET("/status", h.Status)
		api.POST("/notify", h.Notify)
		api.POST("/audit", h.Audit)

		// Forms
		api.POST("/lead-magnet", h.LeadMagnet)
		api.POST("/ticket-confirmation", h.TicketConfirmation)

		// Reviews
		api.GET("/reviews", h.Reviews)
	}
}

// corsMiddleware allows every origin when none are configured, otherwise
// echoes allowlisted origins. Credentials are never allowed.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{middleware.RequestIDHeader, handlers.HeaderIdempotencyReplayed, "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// ACAO: * even without an Origin header, for health checks and curl.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps the request body at maxBytes; reads past the cap fail and
// the handler answers 400.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
