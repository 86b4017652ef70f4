package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parishkeep/parishkeep/internal/api/rest/handlers"
	"github.com/parishkeep/parishkeep/internal/api/rest/middleware"
	"github.com/parishkeep/parishkeep/internal/config"
	"github.com/parishkeep/parishkeep/internal/domain"
	"github.com/parishkeep/parishkeep/internal/integration/stripe"
	"github.com/parishkeep/parishkeep/internal/service"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// Services bundles the application services the router exposes
type Services struct {
	Auth     service.AuthService
	Billing  service.BillingService
	Content  service.ContentService
	Admin    service.AdminService
	Webhooks service.WebhookService
}

// SetupRouter wires middleware, handlers and routes onto a Gin engine
func SetupRouter(svcs Services, cfg *config.Config, registry *prometheus.Registry, log *logger.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	r.GET("/health", handlers.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	authMW := middleware.NewAuthMiddleware(svcs.Auth, log)
	loginLimiter := middleware.NewRateLimiter(cfg.Auth.LoginRatePerIP, 5, log)

	authHandler := handlers.NewAuthHandler(svcs.Auth, log)
	subscriptionHandler := handlers.NewSubscriptionHandler(svcs.Billing, log)
	donationHandler := handlers.NewDonationHandler(svcs.Billing, log)
	postHandler := handlers.NewPostHandler(svcs.Content, log)
	adminHandler := handlers.NewAdminHandler(svcs.Admin, log)

	verifier := stripe.NewWebhookVerifier(cfg.Stripe.WebhookSecret)
	webhookHandler := handlers.NewWebhookHandler(verifier, svcs.Webhooks, log)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", loginLimiter.Middleware(), authHandler.Register)
			auth.POST("/login", loginLimiter.Middleware(), authHandler.Login)
			auth.GET("/me", authMW.RequireAuth(), authHandler.Me)
			auth.POST("/logout", authMW.RequireAuth(), authHandler.Logout)
		}

		subscriptions := api.Group("/subscriptions")
		{
			subscriptions.GET("/plans", subscriptionHandler.ListPlans)
			subscriptions.POST("/checkout-session", authMW.RequireAuth(), subscriptionHandler.CreateCheckoutSession)
			subscriptions.GET("/user", authMW.RequireAuth(), subscriptionHandler.GetUserSubscription)
			subscriptions.POST("/cancel", authMW.RequireAuth(), subscriptionHandler.Cancel)
		}

		api.POST("/donations/checkout-session", authMW.RequireAuth(), donationHandler.CreateCheckoutSession)

		api.GET("/payments", authMW.RequireAuth(), subscriptionHandler.ListPayments)

		api.POST("/webhooks/stripe", webhookHandler.HandleStripeWebhook)

		posts := api.Group("/posts")
		{
			posts.GET("", postHandler.ListPublished)
			posts.GET("/:slug", authMW.OptionalAuth(), postHandler.GetBySlug)
		}

		api.GET("/premium/content",
			authMW.RequireAuth(),
			authMW.RequireActiveSubscription(),
			postHandler.ListPremium,
		)

		admin := api.Group("/admin",
			authMW.RequireAuth(),
			authMW.RequireRole(domain.UserRoleAdmin, domain.UserRoleSuperadmin),
		)
		{
			admin.POST("/posts", postHandler.Create)
			admin.PUT("/posts/:id", postHandler.Update)
			admin.DELETE("/posts/:id", postHandler.Delete)
			admin.GET("/stats", adminHandler.Stats)
			admin.GET("/backup", adminHandler.Backup)
			admin.GET("/db-status", adminHandler.DatabaseStatus)
		}
	}

	return r
}
