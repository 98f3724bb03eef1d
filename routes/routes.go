package routes

import (
	"net/http"

	"stakeqa/handlers"
	"stakeqa/middleware"
	"stakeqa/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	questionHandler *handlers.QuestionHandler,
	hub *services.Hub,
	jwtSecret string,
) {
	// API routes
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/nonce", authHandler.Nonce)
			auth.POST("/verify", authHandler.Verify)
		}

		// Public question reads and votes
		questions := api.Group("/questions")
		{
			questions.GET("", questionHandler.GetQuestions)
			questions.GET("/trending", questionHandler.GetTrendingQuestions)
			questions.GET("/by-wallet/:wallet", questionHandler.GetQuestionsByWallet)
			questions.GET("/:id", questionHandler.GetQuestionByID)
			questions.PATCH("/:id/vote", questionHandler.VoteQuestion)
			questions.PATCH("/:id/answers/:answerId/vote", questionHandler.VoteAnswer)
		}

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			// User profile
			protected.GET("/auth/profile", authHandler.GetProfile)
			protected.PUT("/auth/profile", authHandler.UpdateProfile)

			// Question lifecycle that touches the reward ledger
			protected.POST("/questions", questionHandler.CreateQuestion)
			protected.PATCH("/questions/:id/answer", questionHandler.SubmitAnswer)
			protected.PATCH("/questions/:id/answers/:answerId/accept", questionHandler.AcceptAnswer)
			protected.DELETE("/questions/:id", questionHandler.DeleteQuestion)
		}
	}

	// WebSocket endpoint for the live question feed. Topic is a question id
	// or "all" for the global feed.
	router.GET("/ws/questions/:topic", func(c *gin.Context) {
		topic := c.Param("topic")

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logrus.Warnf("WebSocket upgrade failed for topic %s: %v", topic, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
			return
		}

		logrus.Infof("Feed connection established for topic %s", topic)
		hub.RegisterClient(conn, topic)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
