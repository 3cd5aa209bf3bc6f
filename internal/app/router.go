// internal/app/router.go
package app

import (
	catalogHandler "talenthub-service/internal/handlers/catalog"
	creditHandler "talenthub-service/internal/handlers/credit"
	notifyHandler "talenthub-service/internal/handlers/notification"
	requestHandler "talenthub-service/internal/handlers/planrequest"
	subscriptionHandler "talenthub-service/internal/handlers/subscription"
	transactionHandler "talenthub-service/internal/handlers/transaction"
	wsHandler "talenthub-service/internal/handlers/websocket"
	"talenthub-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	PlanHandler         *catalogHandler.PlanHandler
	PackageHandler      *catalogHandler.PackageHandler
	SubscriptionHandler *subscriptionHandler.SubscriptionHandler
	CreditHandler       *creditHandler.CreditHandler
	RequestHandler      *requestHandler.RequestHandler
	TransactionHandler  *transactionHandler.TransactionHandler
	NotifHandler        *notifyHandler.NotificationHandler
	WSHandler           *wsHandler.WebSocketHandler
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimit           gin.HandlerFunc
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Catalog (any authenticated user) ====================
	plans := api.Group("/plans")
	plans.Use(h.AuthMiddleware.Auth())
	{
		plans.GET("", h.PlanHandler.ListPlans)
		plans.GET("/:id", h.PlanHandler.GetPlan)
	}

	packages := api.Group("/packages")
	packages.Use(h.AuthMiddleware.Auth())
	{
		packages.GET("", h.PackageHandler.ListPackages)
		packages.GET("/:id", h.PackageHandler.GetPackage)
	}

	// ==================== Entitlements & Subscription ====================
	entitlements := api.Group("/entitlements")
	entitlements.Use(h.AuthMiddleware.CompanyOnly()...)
	{
		entitlements.GET("", h.SubscriptionHandler.GetCurrentEntitlement)
		entitlements.POST("/subscription/cancel", h.SubscriptionHandler.CancelSubscription)
	}

	// ==================== Credits ====================
	credits := api.Group("/credits")
	credits.Use(h.AuthMiddleware.CompanyOnly()...)
	{
		credits.GET("/balance", h.CreditHandler.GetBalance)
		credits.GET("/usages", h.CreditHandler.ListUsages)
		credits.POST("/usages/:id/engagement", h.CreditHandler.AddEngagement)
	}

	jobs := api.Group("/jobs")
	jobs.Use(h.AuthMiddleware.CompanyOnly()...)
	jobs.Use(h.RateLimit)
	{
		jobs.POST("/:id/credits", h.CreditHandler.ApplyCredit)
	}

	// ==================== Plan & Package Requests ====================
	requests := api.Group("/requests")
	requests.Use(h.AuthMiddleware.CompanyOnly()...)
	requests.Use(h.RateLimit)
	{
		requests.POST("/plan", h.RequestHandler.RequestPlan)
		requests.POST("/package", h.RequestHandler.RequestPackage)
		requests.GET("", h.RequestHandler.ListMyRequests)
		requests.DELETE("/:id", h.RequestHandler.CancelRequest)
	}

	// ==================== Transactions ====================
	transactions := api.Group("/transactions")
	transactions.Use(h.AuthMiddleware.CompanyOnly()...)
	{
		transactions.GET("", h.TransactionHandler.ListMyTransactions)
	}

	// ==================== Notifications ====================
	notifications := api.Group("/notifications")
	notifications.Use(h.AuthMiddleware.Auth())
	{
		notifications.GET("", h.NotifHandler.GetNotifications)
		notifications.GET("/:id", h.NotifHandler.GetNotification)
		notifications.GET("/count/unread", h.NotifHandler.GetUnreadCount)
		notifications.GET("/summary", h.NotifHandler.GetSummary)
		notifications.PUT("/:id/read", h.NotifHandler.MarkAsRead)
		notifications.PUT("/read-all", h.NotifHandler.MarkAllAsRead)
	}

	// ==================== ADMIN ROUTES ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.AdminOnly()...)
	{
		// Catalog management
		adminPlans := admin.Group("/plans")
		{
			adminPlans.POST("", h.PlanHandler.CreatePlan)
			adminPlans.PUT("/:id", h.PlanHandler.UpdatePlan)
			adminPlans.DELETE("/:id", h.PlanHandler.DeletePlan)
		}

		adminPackages := admin.Group("/packages")
		{
			adminPackages.POST("", h.PackageHandler.CreatePackage)
			adminPackages.PUT("/:id", h.PackageHandler.UpdatePackage)
			adminPackages.DELETE("/:id", h.PackageHandler.DeletePackage)
		}

		// Per-company management
		adminCompanies := admin.Group("/companies/:companyId")
		{
			adminCompanies.GET("/entitlements", h.SubscriptionHandler.GetCompanyEntitlement)
			adminCompanies.POST("/plan", h.SubscriptionHandler.AssignPlan)
			adminCompanies.GET("/credits", h.CreditHandler.GetCompanyBalance)
			adminCompanies.POST("/credits", h.CreditHandler.GrantCredits)
		}

		// Request review
		adminRequests := admin.Group("/requests")
		{
			adminRequests.GET("", h.RequestHandler.ListRequests)
			adminRequests.GET("/:id", h.RequestHandler.GetRequest)
			adminRequests.POST("/:id/approve", h.RequestHandler.ApproveRequest)
			adminRequests.POST("/:id/reject", h.RequestHandler.RejectRequest)
		}

		// Journal
		adminTransactions := admin.Group("/transactions")
		{
			adminTransactions.GET("", h.TransactionHandler.ListTransactions)
			adminTransactions.GET("/reference/:reference", h.TransactionHandler.GetTransactionByReference)
		}

		admin.GET("/ws/stats", h.WSHandler.GetStats)
	}
}
