package controllers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"aquacare/database"
	"aquacare/utils"
)

// UpdateProfileRequest contains updatable profile fields
type UpdateProfileRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code"`
	PushToken string `json:"push_token"`
}

// ChangePasswordRequest contains the data for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// GetUserProfile returns the authenticated user's profile
func GetUserProfile(c *gin.Context) {
	userID := c.GetUint("user_id")

	var user database.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	user.PasswordHash = ""
	c.JSON(http.StatusOK, user)
}

// UpdateUserProfile updates the authenticated user's profile
func UpdateUserProfile(c *gin.Context) {
	userID := c.GetUint("user_id")

	var request UpdateProfileRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	var user database.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	updates := map[string]interface{}{}
	if request.Name != "" {
		updates["name"] = request.Name
	}
	if request.Phone != "" {
		updates["phone"] = request.Phone
	}
	if request.Address != "" {
		updates["address"] = request.Address
	}
	if request.City != "" {
		updates["city"] = request.City
	}
	if request.State != "" {
		updates["state"] = request.State
	}
	if request.ZipCode != "" {
		updates["zip_code"] = request.ZipCode
	}
	if request.PushToken != "" {
		updates["push_token"] = request.PushToken
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
			log.Printf("Error updating profile: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating profile"})
			return
		}
	}

	user.PasswordHash = ""
	c.JSON(http.StatusOK, user)
}

// ChangePassword changes the authenticated user's password
func ChangePassword(c *gin.Context) {
	userID := c.GetUint("user_id")

	var request ChangePasswordRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	var user database.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if !utils.CheckPasswordHash(request.CurrentPassword, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
		return
	}

	newHash, err := utils.HashPassword(request.NewPassword)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error changing password"})
		return
	}

	if err := database.DB.Model(&user).Update("password_hash", newHash).Error; err != nil {
		log.Printf("Error changing password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error changing password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// GetUserByID returns a user by id (admin only)
func GetUserByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user database.User
	if err := database.DB.First(&user, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	user.PasswordHash = ""
	c.JSON(http.StatusOK, user)
}

// GetUsersByRole returns all users with the given role (admin only)
func GetUsersByRole(c *gin.Context) {
	role := c.Param("role")
	switch role {
	case database.RoleAdmin, database.RoleFranchiseOwner, database.RoleServiceAgent, database.RoleCustomer:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	var users []database.User
	if err := database.DB.Where("role = ?", role).Order("created_at DESC").Find(&users).Error; err != nil {
		log.Printf("Error loading users: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	for i := range users {
		users[i].PasswordHash = ""
	}
	c.JSON(http.StatusOK, users)
}
