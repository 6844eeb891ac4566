package controllers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"aquacare/config"
	"aquacare/database"
	"aquacare/utils"
)

// LoginRequest contains the credentials for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// RegisterRequest contains the data for user registration
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
}

// LoginResponse is the structure returned after login
type LoginResponse struct {
	Token  string        `json:"token"`
	User   database.User `json:"user"`
	Expiry int64         `json:"expiry"`
}

// Login handles user authentication and returns a JWT token
func Login(c *gin.Context) {
	var loginRequest LoginRequest

	if err := c.ShouldBindJSON(&loginRequest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	var user database.User
	result := database.DB.Where("email = ?", loginRequest.Email).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		log.Printf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if !utils.CheckPasswordHash(loginRequest.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	expirationTime := time.Now().Add(config.GetJWTExpiration())
	token, err := utils.GenerateJWT(user.ID, user.Email, user.Role, user.FranchiseID, expirationTime)
	if err != nil {
		log.Printf("Error generating token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating token"})
		return
	}

	user.PasswordHash = ""

	c.JSON(http.StatusOK, LoginResponse{
		Token:  token,
		User:   user,
		Expiry: expirationTime.Unix(),
	})
}

// Register handles customer registration. Staff accounts are created
// through the admin endpoints instead.
func Register(c *gin.Context) {
	var registerRequest RegisterRequest

	if err := c.ShouldBindJSON(&registerRequest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	var count int64
	database.DB.Model(&database.User{}).Where("email = ?", registerRequest.Email).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	passwordHash, err := utils.HashPassword(registerRequest.Password)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error processing registration"})
		return
	}

	user := database.User{
		Name:         registerRequest.Name,
		Email:        registerRequest.Email,
		Phone:        registerRequest.Phone,
		PasswordHash: passwordHash,
		Role:         database.RoleCustomer,
		Address:      registerRequest.Address,
		City:         registerRequest.City,
		State:        registerRequest.State,
		ZipCode:      registerRequest.ZipCode,
	}

	if err := database.DB.Create(&user).Error; err != nil {
		log.Printf("Error creating user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error processing registration"})
		return
	}

	user.PasswordHash = ""
	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful", "user": user})
}

// RefreshToken issues a fresh token for an authenticated user
func RefreshToken(c *gin.Context) {
	userID := c.GetUint("user_id")

	var user database.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	expirationTime := time.Now().Add(config.GetJWTExpiration())
	token, err := utils.GenerateJWT(user.ID, user.Email, user.Role, user.FranchiseID, expirationTime)
	if err != nil {
		log.Printf("Error generating token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "expiry": expirationTime.Unix()})
}
