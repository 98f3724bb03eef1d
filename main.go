package main

import (
	"stakeqa/config"
	"stakeqa/handlers"
	"stakeqa/ledger"
	"stakeqa/middleware"
	"stakeqa/models"
	"stakeqa/routes"
	"stakeqa/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Question{},
		&models.Answer{},
	)
	if err != nil {
		logrus.Fatal("Failed to migrate database: ", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Initialize the reward ledger client and the operator credential used
	// to sign its transactions
	ledgerClient, err := ledger.NewEthLedger(cfg.ChainRPCURL, cfg.ContractAddress, cfg.ChainID)
	if err != nil {
		logrus.Fatal("Failed to initialize reward ledger client: ", err)
	}
	operator, err := ledger.NewCredential(cfg.OperatorKey)
	if err != nil {
		logrus.Fatal("Failed to load operator credential: ", err)
	}

	// Initialize services
	authService := services.NewAuthService(db, cfg.JWTSecret)
	questionService := services.NewQuestionService(db, redisClient, ledgerClient)

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	questionHandler := handlers.NewQuestionHandler(questionService, hub, operator)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, authHandler, questionHandler, hub, cfg.JWTSecret)

	// Start server
	logrus.Infof("Server starting on port %s (operator %s)", cfg.Port, operator.Address().Hex())
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.Fatal("Failed to start server: ", err)
	}
}
