package main

import (
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"aquacare/config"
	"aquacare/controllers"
	"aquacare/database"
	"aquacare/routes"
	"aquacare/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize config
	config.InitConfig()

	// Setup router
	r := gin.Default()

	// CORS settings
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Initialize database
	if err := database.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDB()

	// Run migrations
	if err := database.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	database.SeedDefaultAdmin()

	// Wire the service layer
	gateway := services.NewRazorpayGateway(config.AppConfig.RazorpayKey, config.AppConfig.RazorpaySecret)
	notifier := services.NewNotifier(database.DB, services.NewHTTPPushSender(config.AppConfig.PushEndpoint))
	viewAs := services.NewViewAsStore(config.ViewAsTTL())
	viewAs.StartSweeper(config.ViewAsSweepInterval())
	defer viewAs.Close()

	svc := services.New(database.DB, gateway, notifier, viewAs)
	controllers.Init(svc)

	// Setup routes (AuthMiddleware is applied inside routes)
	routes.SetupRoutes(r, viewAs)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	log.Printf("Server running at http://0.0.0.0:%s", port)
	if err := r.Run("0.0.0.0:" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
