package handler

import (
	"patient-payments/internal/adapter/http/middleware"
	"patient-payments/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PaymentSvc     ports.PaymentService
	BillingSvc     ports.BillingService
	Audit          ports.AuditTrail
	TokenSvc       ports.TokenService
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	RateLimit      middleware.RateLimitRule
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(64 << 10))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.RateLimitRules(deps.RateLimit)
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rules[group], deps.Logger)
	}

	v1 := r.Group("/api/v1",
		middleware.NoStore(),
		middleware.JWTAuth(deps.TokenSvc, deps.Logger),
	)

	methodHandler := NewPaymentMethodHandler(deps.PaymentSvc)
	methods := v1.Group("/payment-methods", rl("payment_methods"))
	{
		methods.POST("", methodHandler.AddPaymentMethod)
		methods.GET("/:id", methodHandler.GetPaymentMethod)
	}

	paymentHandler := NewPaymentHandler(deps.PaymentSvc)
	v1.POST("/payments", rl("payments"), paymentHandler.ProcessPayment)

	auditHandler := NewAuditHandler(deps.Audit)
	v1.GET("/audit", rl("audit"), auditHandler.Query)

	billingHandler := NewBillingHandler(deps.BillingSvc)
	v1.PUT("/billing/:id/payment", rl("billing"), billingHandler.UpdatePayment)

	return r
}
