package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"aquacare/services"
)

var svc *services.Services

// Init wires the controllers to the service layer
func Init(s *services.Services) {
	svc = s
}

// respondServiceError translates a service layer error into an HTTP
// response
func respondServiceError(c *gin.Context, err error) {
	switch services.KindOf(err) {
	case services.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case services.KindBadRequest:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case services.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case services.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}
