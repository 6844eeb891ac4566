package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"aquacare/middleware"
)

// CancelSubscriptionBody carries the optional cancellation reason
type CancelSubscriptionBody struct {
	Reason string `json:"reason"`
}

// GetSubscriptions lists subscriptions visible to the caller
func GetSubscriptions(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	subs, err := svc.ListSubscriptions(actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

// GetSubscriptionByID returns one subscription
func GetSubscriptionByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription ID"})
		return
	}

	actor := middleware.ActorFromContext(c)
	sub, svcErr := svc.GetSubscription(uint(id), actor)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// CancelSubscription cancels a subscription
func CancelSubscription(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription ID"})
		return
	}

	var body CancelSubscriptionBody
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	actor := middleware.ActorFromContext(c)
	sub, svcErr := svc.CancelSubscription(uint(id), actor, body.Reason)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, sub)
}
