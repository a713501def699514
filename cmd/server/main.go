package main

import (
	"fmt"
	"log"
	"net/http"

	"stakepot/backend/internal/auth"
	"stakepot/backend/internal/config"
	"stakepot/backend/internal/database"
	"stakepot/backend/internal/handler"
	"stakepot/backend/internal/registry"
	"stakepot/backend/internal/treasury"

	"github.com/gin-gonic/gin"

	// Swagger imports
	_ "stakepot/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func init() {
	config.LoadConfig()
}

// @title           Stakepot API
// @version         1.0
// @description     This is the API for the Stakepot wager game service.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	// Connect to the database
	database.Connect(config.AppConfig.DatabaseURL)

	// Wire the wallet ledger and the game registry together
	handler.Bank = treasury.New(database.DB)
	handler.Games = registry.New(handler.Bank,
		registry.WithTimeout(config.AppConfig.ResolveTimeout()),
		registry.WithEmitter(handler.NewHubEmitter()),
	)

	router := gin.Default()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", handler.RegisterUser)
			authRoutes.POST("/login", handler.LoginUser)
		}

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("/me", handler.GetMe)
		}

		// Wallet routes (protected)
		walletRoutes := apiV1.Group("/wallets")
		walletRoutes.Use(auth.AuthMiddleware())
		{
			walletRoutes.GET("/me", handler.GetMyWallet)
		}

		// Game routes (protected). Note that activate/resolve/refund/forfeit
		// are open to any authenticated caller on any game id: the only
		// defense is the registry's state and timeout preconditions.
		gameRoutes := apiV1.Group("/games")
		gameRoutes.Use(auth.AuthMiddleware())
		{
			gameRoutes.POST("", handler.CreateGame)
			gameRoutes.GET("/count", handler.GetGameCount) // Must be before /:id
			gameRoutes.GET("/:id", handler.GetGameByID)
			gameRoutes.GET("/:id/events", handler.StreamGameEvents)
			gameRoutes.POST("/:id/join", handler.JoinGame)
			gameRoutes.POST("/:id/activate", handler.ActivateGame)
			gameRoutes.POST("/:id/resolve", handler.ResolveGame)
			gameRoutes.POST("/:id/refund", handler.RefundGame)
			gameRoutes.POST("/:id/forfeit", handler.ForfeitGame)
		}

		// Admin routes (protected by auth and admin check)
		adminRoutes := apiV1.Group("/admin")
		adminRoutes.Use(auth.AuthMiddleware(), auth.AdminMiddleware())
		{
			adminRoutes.POST("/wallets/:address/credit", handler.CreditWallet)
			adminRoutes.GET("/settlements", handler.GetSettlements)
		}
	}

	fmt.Printf("Server is running on %s\n", config.AppConfig.ServerAddr)
	fmt.Println("Swagger UI is available at http://localhost:8080/swagger/index.html")
	log.Fatal(router.Run(config.AppConfig.ServerAddr))
}
