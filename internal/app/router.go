package app

import (
	advisorHandler "fieldserve-service/internal/handlers/advisor"
	agreementHandler "fieldserve-service/internal/handlers/agreement"
	authHandler "fieldserve-service/internal/handlers/auth"
	customerHandler "fieldserve-service/internal/handlers/customer"
	notifyHandler "fieldserve-service/internal/handlers/notification"
	planHandler "fieldserve-service/internal/handlers/plan"
	wsHandler "fieldserve-service/internal/handlers/websocket"
	"fieldserve-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler      *authHandler.AuthHandler
	AgreementHandler *agreementHandler.AgreementHandler
	PlanHandler      *planHandler.PlanHandler
	CustomerHandler  *customerHandler.CustomerHandler
	NotifHandler     *notifyHandler.NotificationHandler
	AdvisorHandler   *advisorHandler.AdvisorHandler
	WSHandler        *wsHandler.WebSocketHandler
	AuthMiddleware   *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/login", h.AuthHandler.Login)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.GET("/me", h.AuthHandler.GetMe)
	}
	api.POST("/auth/register", append(h.AuthMiddleware.AdminOnly(), h.AuthHandler.Register)...)

	// ==================== Service Agreements ====================
	agreements := api.Group("/agreements")
	agreements.Use(h.AuthMiddleware.Auth())
	{
		agreements.POST("", h.AgreementHandler.CreateAgreement)
		agreements.GET("", h.AgreementHandler.ListAgreements)
		agreements.GET("/summary", h.AgreementHandler.GetSummary)
		agreements.GET("/:id", h.AgreementHandler.GetAgreement)
		agreements.PUT("/:id", h.AgreementHandler.UpdateAgreement)

		// Lifecycle
		agreements.POST("/:id/renew", h.AgreementHandler.RenewAgreement)
		agreements.POST("/:id/cancel", h.AgreementHandler.CancelAgreement)

		// Visits
		agreements.POST("/:id/visits", h.AgreementHandler.RecordVisit)
		agreements.GET("/:id/visits", h.AgreementHandler.ListVisits)

		// Documents
		agreements.GET("/:id/pdf", h.AgreementHandler.DownloadPDF)
	}

	// ==================== Agreement Plans ====================
	plans := api.Group("/plans")
	plans.Use(h.AuthMiddleware.Auth())
	{
		plans.GET("", h.PlanHandler.ListPlans)
		plans.GET("/:id", h.PlanHandler.GetPlan)

		// Catalog management is admin only
		adminPlans := plans.Group("")
		adminPlans.Use(h.AuthMiddleware.RequireRole("ADMIN"))
		{
			adminPlans.POST("", h.PlanHandler.CreatePlan)
			adminPlans.PUT("/:id", h.PlanHandler.UpdatePlan)
			adminPlans.DELETE("/:id", h.PlanHandler.DeactivatePlan)
		}
	}

	// ==================== Customers ====================
	customers := api.Group("/customers")
	customers.Use(h.AuthMiddleware.Auth())
	{
		customers.POST("", h.CustomerHandler.CreateCustomer)
		customers.GET("", h.CustomerHandler.ListCustomers)
		customers.GET("/:id", h.CustomerHandler.GetCustomer)
		customers.PUT("/:id", h.CustomerHandler.UpdateCustomer)
		customers.GET("/:id/agreements", h.AgreementHandler.ListCustomerAgreements)
	}

	// ==================== Notifications ====================
	notifications := api.Group("/notifications")
	notifications.Use(h.AuthMiddleware.Auth())
	{
		notifications.GET("", h.NotifHandler.GetNotifications)
		notifications.GET("/count/unread", h.NotifHandler.GetUnreadCount)
		notifications.PUT("/:id/read", h.NotifHandler.MarkAsRead)
	}

	// ==================== Advisory AI ====================
	advisor := api.Group("/advisor")
	advisor.Use(h.AuthMiddleware.Auth())
	{
		advisor.POST("/agreements/:id/maintenance", h.AdvisorHandler.AgreementMaintenance)
		advisor.POST("/:kind", h.AdvisorHandler.Advise)
	}
}
