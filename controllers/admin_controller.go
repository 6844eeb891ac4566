package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"aquacare/database"
)

// ViewAsRequest names the user an admin wants to act as
type ViewAsRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// StartViewAs starts a view-as session for the authenticated admin. All
// subsequent requests are evaluated with the target user's identity
// until the session is stopped or expires.
func StartViewAs(c *gin.Context) {
	var request ViewAsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	adminID := c.GetUint("user_id")
	if request.UserID == adminID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot view as yourself"})
		return
	}

	var target database.User
	if err := database.DB.First(&target, request.UserID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if target.Role == database.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot view as another admin"})
		return
	}

	session := svc.ViewAs.Start(adminID, target.ID, target.Role, target.FranchiseID)
	c.JSON(http.StatusOK, gin.H{
		"message":    "View-as session started",
		"user_id":    target.ID,
		"role":       target.Role,
		"expires_at": session.ExpiresAt,
	})
}

// StopViewAs ends the authenticated admin's view-as session. The route
// is registered before view-as substitution so the real admin identity
// is always the one acting here.
func StopViewAs(c *gin.Context) {
	adminID := c.GetUint("user_id")
	svc.ViewAs.Stop(adminID)
	c.JSON(http.StatusOK, gin.H{"message": "View-as session stopped"})
}

// AdminDashboard returns headline counts for the admin home screen
func AdminDashboard(c *gin.Context) {
	var (
		customers     int64
		franchises    int64
		subscriptions int64
		openRequests  int64
	)

	database.DB.Model(&database.User{}).Where("role = ?", database.RoleCustomer).Count(&customers)
	database.DB.Model(&database.Franchise{}).Where("is_active = ?", true).Count(&franchises)
	database.DB.Model(&database.Subscription{}).Where("status = ?", database.SubscriptionStatusActive).Count(&subscriptions)
	database.DB.Model(&database.ServiceRequest{}).
		Where("status NOT IN ?", []database.ServiceRequestStatus{
			database.ServiceStatusCompleted, database.ServiceStatusCancelled,
		}).Count(&openRequests)

	c.JSON(http.StatusOK, gin.H{
		"customers":            customers,
		"active_franchises":    franchises,
		"active_subscriptions": subscriptions,
		"open_requests":        openRequests,
	})
}

// GetNotifications returns the caller's notifications, newest first
func GetNotifications(c *gin.Context) {
	userID := c.GetUint("user_id")

	var notifications []database.Notification
	if err := database.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(100).
		Find(&notifications).Error; err != nil {
		log.Printf("Error loading notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, notifications)
}

// MarkNotificationsRead marks all of the caller's notifications as read
func MarkNotificationsRead(c *gin.Context) {
	userID := c.GetUint("user_id")

	if err := database.DB.Model(&database.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error; err != nil {
		log.Printf("Error marking notifications read: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notifications marked as read"})
}
