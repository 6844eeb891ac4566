package routes

import (
	"github.com/gin-gonic/gin"

	"aquacare/controllers"
	"aquacare/database"
	"aquacare/middleware"
	"aquacare/services"
)

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, viewAs *services.ViewAsStore) {
	// Public routes (no authentication required)
	public := r.Group("/api")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", controllers.Login)
			auth.POST("/register", controllers.Register)
		}

		// Products (public view for non-authenticated users)
		public.GET("/products", controllers.GetProducts)
		public.GET("/products/:id", controllers.GetProductByID)
	}

	// Protected routes (authentication required)
	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware())

	// View-as control routes run on the admin's real identity, before
	// any substitution
	viewAsRoutes := protected.Group("/admin/view-as")
	viewAsRoutes.Use(middleware.AdminAuthMiddleware())
	{
		viewAsRoutes.POST("", controllers.StartViewAs)
		viewAsRoutes.DELETE("", controllers.StopViewAs)
	}

	// Everything below sees the substituted identity when a view-as
	// session is active
	acting := protected.Group("")
	acting.Use(middleware.ViewAsMiddleware(viewAs))
	{
		acting.POST("/auth/refresh", controllers.RefreshToken)

		acting.GET("/profile", controllers.GetUserProfile)
		acting.PUT("/profile", controllers.UpdateUserProfile)
		acting.POST("/profile/change-password", controllers.ChangePassword)

		acting.GET("/notifications", controllers.GetNotifications)
		acting.POST("/notifications/mark-read", controllers.MarkNotificationsRead)

		// Installation requests
		installations := acting.Group("/installation-requests")
		{
			installations.POST("", controllers.CreateInstallationRequest)
			installations.GET("", controllers.GetInstallationRequests)
			installations.GET("/:id", controllers.GetInstallationRequestByID)
			installations.POST("/:id/approve", controllers.ApproveInstallationRequest)
			installations.POST("/:id/reject", controllers.RejectInstallationRequest)
		}

		// Service requests
		serviceRequests := acting.Group("/service-requests")
		{
			serviceRequests.POST("", controllers.CreateServiceRequest)
			serviceRequests.GET("", controllers.GetServiceRequests)
			serviceRequests.GET("/:id", controllers.GetServiceRequestByID)
			serviceRequests.PATCH("/:id/status", controllers.UpdateServiceRequestStatus)
			serviceRequests.POST("/:id/assign", controllers.AssignServiceRequest)
			serviceRequests.POST("/:id/self-assign", controllers.SelfAssignServiceRequest)
			serviceRequests.GET("/:id/history", controllers.GetServiceRequestHistory)
			serviceRequests.POST("/:id/refresh-payment", controllers.RefreshServiceRequestPayment)
		}

		// Subscriptions
		subscriptions := acting.Group("/subscriptions")
		{
			subscriptions.GET("", controllers.GetSubscriptions)
			subscriptions.GET("/:id", controllers.GetSubscriptionByID)
			subscriptions.POST("/:id/cancel", controllers.CancelSubscription)
		}

		// Franchise agent roster, for assignment pickers
		acting.GET("/franchises/:id/agents",
			middleware.RoleAuthMiddleware(database.RoleAdmin, database.RoleFranchiseOwner),
			controllers.GetFranchiseAgents)

		// Payments
		payments := acting.Group("/payments")
		{
			payments.GET("", controllers.GetPayments)
			payments.GET("/:id", controllers.GetPaymentByID)
		}

		// Admin routes
		admin := acting.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware())
		{
			admin.GET("/dashboard", controllers.AdminDashboard)
			admin.GET("/users/:id", controllers.GetUserByID)
			admin.GET("/users/role/:role", controllers.GetUsersByRole)

			admin.POST("/products", controllers.CreateProduct)
			admin.PUT("/products/:id", controllers.UpdateProduct)
			admin.DELETE("/products/:id", controllers.DeleteProduct)
			admin.PATCH("/products/:id/toggle-status", controllers.ToggleProductStatus)

			admin.POST("/franchises", controllers.CreateFranchise)
			admin.GET("/franchises", controllers.GetAllFranchises)
			admin.PATCH("/franchises/:id", controllers.UpdateFranchise)

			admin.POST("/locations", controllers.AddLocation)
			admin.GET("/locations", controllers.GetLocations)
		}
	}
}
