package router

import (
	"net/http"
	"strings"
	"time"

	"mint-backend/internal/config"
	"mint-backend/internal/handlers"
	"mint-backend/internal/ledger"
	"mint-backend/internal/middleware"
	"mint-backend/internal/ratelimit"
	"mint-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// corsMiddleware CORS middleware, origins come from config/env
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var allowedOrigins []string
		if config.AppConfig != nil {
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
		}
		if len(allowedOrigins) == 0 {
			allowedOrigins = []string{"*"}
		}

		origin := c.GetHeader("Origin")
		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			for _, allowed := range allowedOrigins {
				if strings.TrimSpace(allowed) == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					c.Header("Vary", "Origin")
					break
				}
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
			c.Header("Access-Control-Max-Age", "3600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Deps everything the router wires together
type Deps struct {
	Ledger      *ledger.Ledger
	Mint        *services.MintService
	Eligibility *services.EligibilityService
	Quantity    *services.QuantityService
	Logger      *logrus.Logger
}

// New builds the gin engine with all routes and middleware
func New(deps Deps) *gin.Engine {
	cfg := config.AppConfig
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	limiter := ratelimit.NewLimiter(
		ratelimit.NewMemoryStore(),
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
		cfg.RateLimit.MaxRequests,
	)
	rateLimit := middleware.NewRateLimitMiddleware(limiter, deps.Logger)
	localhostOnly := middleware.NewLocalhostOnly(deps.Logger, cfg.Admin.AllowedIPs)
	opsAuth := middleware.NewOpsAuthMiddleware(deps.Logger)

	orderHandler := handlers.NewOrderHandler(deps.Ledger, cfg.Admin.AllowedWallets, deps.Logger)
	mintHandler := handlers.NewMintHandler(deps.Mint, deps.Eligibility, deps.Quantity, deps.Ledger, deps.Logger)
	exportHandler := handlers.NewExportHandler(deps.Ledger, deps.Logger)
	opsAuthHandler := handlers.NewOpsAuthHandler(deps.Logger)

	engine.GET("/ping", handlers.Ping)
	engine.GET("/health", handlers.Health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	{
		orders := api.Group("/orders")
		orders.Use(rateLimit.Limit())
		{
			orders.GET("", orderHandler.List)
			orders.POST("", orderHandler.Create)
		}

		mint := api.Group("/mint")
		mint.Use(rateLimit.Limit())
		{
			// submission spends the hot key, so it sits behind the ops JWT
			mint.POST("", opsAuth.RequireOpsAuth(), mintHandler.Mint)
			mint.GET("/eligibility/:wallet", mintHandler.Eligibility)
			mint.GET("/max/:wallet", mintHandler.MaxQuantity)
			mint.DELETE("/eligibility/:wallet", mintHandler.ResetEligibility)
		}
	}

	// operator endpoints, IP-restricted with JWT on top
	admin := engine.Group("/api/admin")
	admin.Use(localhostOnly.Restrict())
	{
		admin.POST("/login", opsAuthHandler.Login)

		protected := admin.Group("")
		protected.Use(opsAuth.RequireOpsAuth())
		{
			protected.GET("/orders/export", exportHandler.ExportCSV)
		}
	}

	return engine
}
