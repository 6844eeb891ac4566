package controllers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"aquacare/database"
)

// ProductRequest contains the data for creating or updating a product
type ProductRequest struct {
	Name            string  `json:"name" binding:"required"`
	Description     string  `json:"description"`
	MonthlyRent     float64 `json:"monthly_rent" binding:"required"`
	SecurityDeposit float64 `json:"security_deposit"`
	InstallationFee float64 `json:"installation_fee"`
	ImageURL        string  `json:"image_url"`
	PlanName        string  `json:"plan_name" binding:"required"`
}

// GetProducts returns all active products. Admins see inactive products
// as well.
func GetProducts(c *gin.Context) {
	query := database.DB.Model(&database.Product{})
	if c.GetString("role") != database.RoleAdmin {
		query = query.Where("is_active = ?", true)
	}

	var products []database.Product
	if err := query.Order("created_at DESC").Find(&products).Error; err != nil {
		log.Printf("Error loading products: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, products)
}

// GetProductByID returns one product
func GetProductByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var product database.Product
	if err := database.DB.First(&product, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// CreateProduct creates a new product (admin only)
func CreateProduct(c *gin.Context) {
	var request ProductRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	product := database.Product{
		Name:            request.Name,
		Description:     request.Description,
		MonthlyRent:     request.MonthlyRent,
		SecurityDeposit: request.SecurityDeposit,
		InstallationFee: request.InstallationFee,
		ImageURL:        request.ImageURL,
		PlanName:        request.PlanName,
		IsActive:        true,
	}

	if err := database.DB.Create(&product).Error; err != nil {
		log.Printf("Error creating product: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating product"})
		return
	}

	c.JSON(http.StatusCreated, product)
}

// UpdateProduct updates an existing product (admin only)
func UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var product database.Product
	if err := database.DB.First(&product, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	var request ProductRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	product.Name = request.Name
	product.Description = request.Description
	product.MonthlyRent = request.MonthlyRent
	product.SecurityDeposit = request.SecurityDeposit
	product.InstallationFee = request.InstallationFee
	product.ImageURL = request.ImageURL
	product.PlanName = request.PlanName

	if err := database.DB.Save(&product).Error; err != nil {
		log.Printf("Error updating product: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating product"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct soft-deletes a product (admin only). Existing
// subscriptions keep their pricing snapshot, so deletion only removes
// the product from the catalog.
func DeleteProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var product database.Product
	if err := database.DB.First(&product, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	if err := database.DB.Delete(&product).Error; err != nil {
		log.Printf("Error deleting product: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// ToggleProductStatus flips a product's availability (admin only)
func ToggleProductStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	var product database.Product
	if err := database.DB.First(&product, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	if err := database.DB.Model(&product).Update("is_active", !product.IsActive).Error; err != nil {
		log.Printf("Error toggling product status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating product"})
		return
	}

	product.IsActive = !product.IsActive
	c.JSON(http.StatusOK, product)
}
