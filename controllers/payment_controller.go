package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"aquacare/middleware"
)

// GetPayments lists payments visible to the caller
func GetPayments(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	payments, err := svc.ListPayments(actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// GetPaymentByID returns one payment
func GetPaymentByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment ID"})
		return
	}

	actor := middleware.ActorFromContext(c)
	payment, svcErr := svc.GetPayment(uint(id), actor)
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, payment)
}
