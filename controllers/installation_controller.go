package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"aquacare/middleware"
	"aquacare/services"
)

// CreateInstallationBody contains the data for a new installation
// request
type CreateInstallationBody struct {
	ProductID uint   `json:"product_id" binding:"required"`
	ZipCode   string `json:"zip_code"`
}

// RejectInstallationBody carries the optional rejection reason
type RejectInstallationBody struct {
	Reason string `json:"reason"`
}

// CreateInstallationRequest registers a customer's installation request
func CreateInstallationRequest(c *gin.Context) {
	var body CreateInstallationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	actor := middleware.ActorFromContext(c)
	inst, err := svc.CreateInstallationRequest(actor, services.CreateInstallationRequestInput{
		ProductID: body.ProductID,
		ZipCode:   body.ZipCode,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, inst)
}

// GetInstallationRequests lists installation requests visible to the
// caller
func GetInstallationRequests(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	requests, err := svc.ListInstallationRequests(actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// GetInstallationRequestByID returns one installation request
func GetInstallationRequestByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid installation request ID"})
		return
	}

	actor := middleware.ActorFromContext(c)
	inst, svcErr := svc.GetInstallationRequest(uint(id), actor)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, inst)
}

// ApproveInstallationRequest approves a pending installation request
func ApproveInstallationRequest(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid installation request ID"})
		return
	}

	actor := middleware.ActorFromContext(c)
	inst, svcErr := svc.ApproveInstallationRequest(uint(id), actor)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, inst)
}

// RejectInstallationRequest cancels a pending installation request
func RejectInstallationRequest(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid installation request ID"})
		return
	}

	var body RejectInstallationBody
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	actor := middleware.ActorFromContext(c)
	inst, svcErr := svc.RejectInstallationRequest(uint(id), actor, body.Reason)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, inst)
}
