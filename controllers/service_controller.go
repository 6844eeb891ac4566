package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"aquacare/database"
	"aquacare/middleware"
	"aquacare/services"
)

// CreateServiceRequestBody contains the data for a new service request
type CreateServiceRequestBody struct {
	CustomerID            uint   `json:"customer_id"`
	ProductID             uint   `json:"product_id"`
	SubscriptionID        *uint  `json:"subscription_id"`
	InstallationRequestID *uint  `json:"installation_request_id"`
	Type                  string `json:"type" binding:"required"`
	Description           string `json:"description"`
	RequiresPayment       bool   `json:"requires_payment"`
}

// UpdateStatusBody contains the payload for a status transition
type UpdateStatusBody struct {
	Status        string     `json:"status" binding:"required"`
	AgentID       *uint      `json:"agent_id"`
	ScheduledDate *time.Time `json:"scheduled_date"`
	BeforeImages  []string   `json:"before_images"`
	AfterImages   []string   `json:"after_images"`
	Comment       string     `json:"comment"`
}

// AssignAgentBody names the agent to assign
type AssignAgentBody struct {
	AgentID uint `json:"agent_id" binding:"required"`
}

// CreateServiceRequest creates a new service request
func CreateServiceRequest(c *gin.Context) {
	var body CreateServiceRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	actor := middleware.ActorFromContext(c)
	detail, err := svc.CreateServiceRequest(actor, services.CreateServiceRequestInput{
		CustomerID:            body.CustomerID,
		ProductID:             body.ProductID,
		SubscriptionID:        body.SubscriptionID,
		InstallationRequestID: body.InstallationRequestID,
		Type:                  database.ServiceRequestType(body.Type),
		Description:           body.Description,
		RequiresPayment:       body.RequiresPayment,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, detail)
}

// GetServiceRequests lists service requests visible to the caller
func GetServiceRequests(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	details, err := svc.ListServiceRequests(actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// GetServiceRequestByID returns one service request
func GetServiceRequestByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service request ID"})
		return
	}

	actor := middleware.ActorFromContext(c)
	detail, svcErr := svc.GetServiceRequest(uint(id), actor)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// UpdateServiceRequestStatus executes one status transition
func UpdateServiceRequestStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service request ID"})
		return
	}

	var body UpdateStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	actor := middleware.ActorFromContext(c)
	detail, svcErr := svc.UpdateServiceRequestStatus(uint(id),
		database.ServiceRequestStatus(body.Status), actor, services.StatusUpdateInput{
			AgentID:       body.AgentID,
			ScheduledDate: body.ScheduledDate,
			BeforeImages:  body.BeforeImages,
			AfterImages:   body.AfterImages,
			Comment:       body.Comment,
		})
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// AssignServiceRequest assigns an agent to a service request
func AssignServiceRequest(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service request ID"})
		return
	}

	var body AssignAgentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	actor := middleware.ActorFromContext(c)
	detail, svcErr := svc.AssignServiceRequest(uint(id), body.AgentID, actor)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// SelfAssignServiceRequest lets a service agent claim a request
func SelfAssignServiceRequest(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service request ID"})
		return
	}

	actor := middleware.ActorFromContext(c)
	detail, svcErr := svc.SelfAssignServiceRequest(uint(id), actor)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetServiceRequestHistory returns the audit trail of a service request
func GetServiceRequestHistory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service request ID"})
		return
	}

	actor := middleware.ActorFromContext(c)
	history, svcErr := svc.ListServiceRequestHistory(uint(id), actor)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, history)
}

// RefreshServiceRequestPayment reconciles a payment-pending request
// against the payment gateway
func RefreshServiceRequestPayment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service request ID"})
		return
	}

	actor := middleware.ActorFromContext(c)
	result, svcErr := svc.RefreshPaymentStatus(uint(id), actor)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, result)
}
