// Package server exposes the marketplace engine over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	buyerdomain "github.com/sushiltimalsina/bemasathi/internal/buyer/domain"
	"github.com/sushiltimalsina/bemasathi/internal/config"
	impressiondomain "github.com/sushiltimalsina/bemasathi/internal/impression/domain"
	matchingdomain "github.com/sushiltimalsina/bemasathi/internal/matching/domain"
	paymentdomain "github.com/sushiltimalsina/bemasathi/internal/payment/domain"
	"github.com/sushiltimalsina/bemasathi/internal/payment/webhook"
	policydomain "github.com/sushiltimalsina/bemasathi/internal/policy/domain"
	pricingdomain "github.com/sushiltimalsina/bemasathi/internal/pricing/domain"
	purchasedomain "github.com/sushiltimalsina/bemasathi/internal/purchase/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log.Named("http")))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

type Server struct {
	engine      *gin.Engine
	policySvc   policydomain.Service
	pricingSvc  pricingdomain.Service
	matchingSvc matchingdomain.Service
	purchaseSvc purchasedomain.Service
	paymentSvc  paymentdomain.Service
	webhookSvc  *webhook.Service
	profiles    buyerdomain.ProfileSource
	impressions impressiondomain.Recorder
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	PolicySvc   policydomain.Service
	PricingSvc  pricingdomain.Service
	MatchingSvc matchingdomain.Service
	PurchaseSvc purchasedomain.Service
	PaymentSvc  paymentdomain.Service
	WebhookSvc  *webhook.Service
	Profiles    buyerdomain.ProfileSource
	Impressions impressiondomain.Recorder
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:      p.Gin,
		policySvc:   p.PolicySvc,
		pricingSvc:  p.PricingSvc,
		matchingSvc: p.MatchingSvc,
		purchaseSvc: p.PurchaseSvc,
		paymentSvc:  p.PaymentSvc,
		webhookSvc:  p.WebhookSvc,
		profiles:    p.Profiles,
		impressions: p.Impressions,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	policies := v1.Group("/policies")
	policies.POST("", s.CreatePolicy)
	policies.GET("", s.ListPolicies)
	policies.GET("/:id", s.GetPolicy)
	policies.PUT("/:id", s.UpdatePolicy)
	policies.DELETE("/:id", s.DeactivatePolicy)
	policies.GET("/:id/quote-range", s.QuoteRange)

	v1.POST("/quotes", s.Quote)
	v1.POST("/recommendations", s.Recommend)

	purchases := v1.Group("/purchases")
	purchases.POST("", s.CreatePurchase)
	purchases.GET("/:id", s.GetPurchase)
	purchases.PATCH("/:id/cycle-amount", s.UpdateCycleAmount)
	purchases.POST("/:id/cancel", s.CancelPurchase)

	payments := v1.Group("/payments")
	payments.GET("/:id", s.GetPayment)
	payments.GET("/:id/receipt", s.DownloadReceipt)

	v1.POST("/webhooks/payment", s.PaymentWebhook)

	impressions := v1.Group("/impressions")
	impressions.POST("/:id/click", s.ImpressionClicked)
	impressions.POST("/:id/purchase", s.ImpressionPurchased)
	impressions.POST("/:id/time-spent", s.ImpressionTimeSpent)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
