package controllers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"aquacare/database"
)

// FranchiseRequest contains the data for creating or updating a
// franchise
type FranchiseRequest struct {
	Name        string `json:"name" binding:"required"`
	OwnerID     *uint  `json:"owner_id"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zip_code"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	ServiceArea string `json:"service_area"`
}

// LocationRequest maps a zip code to a franchise
type LocationRequest struct {
	ZipCode     string `json:"zip_code" binding:"required"`
	FranchiseID uint   `json:"franchise_id" binding:"required"`
}

// CreateFranchise creates a franchise (admin only). OwnerID may be left
// nil for a company-managed franchise.
func CreateFranchise(c *gin.Context) {
	var request FranchiseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	if request.OwnerID != nil {
		var owner database.User
		if err := database.DB.First(&owner, *request.OwnerID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Owner not found"})
			return
		}
		if owner.Role != database.RoleFranchiseOwner {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Owner must have the franchise_owner role"})
			return
		}
	}

	franchise := database.Franchise{
		Name:        request.Name,
		OwnerID:     request.OwnerID,
		Address:     request.Address,
		City:        request.City,
		State:       request.State,
		ZipCode:     request.ZipCode,
		Phone:       request.Phone,
		Email:       request.Email,
		ServiceArea: request.ServiceArea,
		IsActive:    true,
	}

	if err := database.DB.Create(&franchise).Error; err != nil {
		log.Printf("Error creating franchise: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating franchise"})
		return
	}

	// keep the owner's franchise binding in sync so their token scope
	// matches on next login
	if request.OwnerID != nil {
		if err := database.DB.Model(&database.User{}).
			Where("id = ?", *request.OwnerID).
			Update("franchise_id", franchise.ID).Error; err != nil {
			log.Printf("Error linking owner to franchise: %v", err)
		}
	}

	c.JSON(http.StatusCreated, franchise)
}

// GetAllFranchises returns all franchises (admin only)
func GetAllFranchises(c *gin.Context) {
	var franchises []database.Franchise
	if err := database.DB.Preload("Owner").Order("created_at DESC").Find(&franchises).Error; err != nil {
		log.Printf("Error loading franchises: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	for i := range franchises {
		if franchises[i].Owner != nil {
			franchises[i].Owner.PasswordHash = ""
		}
	}
	c.JSON(http.StatusOK, franchises)
}

// UpdateFranchise updates a franchise (admin only)
func UpdateFranchise(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid franchise ID"})
		return
	}

	var franchise database.Franchise
	if err := database.DB.First(&franchise, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Franchise not found"})
		return
	}

	var request FranchiseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	franchise.Name = request.Name
	franchise.OwnerID = request.OwnerID
	franchise.Address = request.Address
	franchise.City = request.City
	franchise.State = request.State
	franchise.ZipCode = request.ZipCode
	franchise.Phone = request.Phone
	franchise.Email = request.Email
	franchise.ServiceArea = request.ServiceArea

	if err := database.DB.Save(&franchise).Error; err != nil {
		log.Printf("Error updating franchise: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating franchise"})
		return
	}

	c.JSON(http.StatusOK, franchise)
}

// GetFranchiseAgents lists the service agents attached to a franchise.
// Admins may query any franchise; franchise owners only their own.
func GetFranchiseAgents(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid franchise ID"})
		return
	}

	role := c.GetString("role")
	if role == database.RoleFranchiseOwner {
		franchiseID, ok := c.Get("franchise_id")
		fid, _ := franchiseID.(uint)
		if !ok || fid != uint(id) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
	}

	var agents []database.User
	if err := database.DB.
		Where("role = ? AND franchise_id = ?", database.RoleServiceAgent, uint(id)).
		Order("name").Find(&agents).Error; err != nil {
		log.Printf("Error loading franchise agents: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	for i := range agents {
		agents[i].PasswordHash = ""
	}
	c.JSON(http.StatusOK, agents)
}

// AddLocation maps a serviceable zip code to a franchise (admin only)
func AddLocation(c *gin.Context) {
	var request LocationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	var franchise database.Franchise
	if err := database.DB.First(&franchise, request.FranchiseID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Franchise not found"})
		return
	}

	var count int64
	database.DB.Model(&database.Location{}).Where("zip_code = ?", request.ZipCode).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Zip code is already mapped to a franchise"})
		return
	}

	location := database.Location{
		ZipCode:     request.ZipCode,
		FranchiseID: request.FranchiseID,
	}
	if err := database.DB.Create(&location).Error; err != nil {
		log.Printf("Error creating location: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating location"})
		return
	}

	c.JSON(http.StatusCreated, location)
}

// GetLocations returns all zip code mappings (admin only)
func GetLocations(c *gin.Context) {
	var locations []database.Location
	if err := database.DB.Preload("Franchise").Order("zip_code").Find(&locations).Error; err != nil {
		log.Printf("Error loading locations: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, locations)
}
