package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"cybershield/internal/handler"
	"cybershield/internal/hub"
	"cybershield/internal/middleware"
	"cybershield/internal/repository"
	"cybershield/internal/service"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	hub    *hub.Hub
	log    *logrus.Logger
	logger *zap.Logger
}

func NewServer(db *sqlx.DB, dispatchHub *hub.Hub, log *logrus.Logger, logger *zap.Logger) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		db:     db,
		hub:    dispatchHub,
		log:    log,
		logger: logger,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	userRepo := repository.NewUserRepository(s.db, s.log)
	messageRepo := repository.NewMessageRepository(s.db, s.logger)
	reportRepo := repository.NewReportRepository(s.db, s.logger)
	blockRepo := repository.NewBlockRepository(s.db, s.logger)
	friendRepo := repository.NewFriendRepository(s.db, s.logger)

	authService := service.NewAuthService(userRepo, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.log)
	userHandler := handler.NewUserHandler(userRepo, s.logger)
	messageHandler := handler.NewMessageHandler(messageRepo, friendRepo, userRepo, s.logger)
	friendHandler := handler.NewFriendHandler(friendRepo, blockRepo, userRepo, s.logger)
	reportHandler := handler.NewReportHandler(reportRepo, messageRepo, s.logger)
	dashboardHandler := handler.NewDashboardHandler(userRepo, messageRepo, reportRepo, s.logger)
	wsHandler := handler.NewWSHandler(s.hub, s.logger)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Authentication routes
	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	// Authenticated routes
	api := s.router.Group("/api")
	api.Use(middleware.AuthMiddleware(s.logger))
	{
		api.GET("/ws", wsHandler.Connect)

		api.GET("/users", userHandler.ListUsers)
		api.GET("/users/me", userHandler.Me)

		api.GET("/messages/conversation/:user_id", messageHandler.GetConversation)

		api.POST("/friends/request", friendHandler.SendRequest)
		api.PUT("/friends/request/:id", friendHandler.RespondRequest)
		api.GET("/friends", friendHandler.ListFriends)
		api.GET("/friends/requests", friendHandler.ListPendingRequests)
		api.GET("/friends/blocked", friendHandler.ListBlocked)
		api.DELETE("/friends/blocked/:user_id", friendHandler.Unblock)

		api.POST("/reports", reportHandler.CreateReport)
		api.GET("/reports", reportHandler.ListReports)
		api.GET("/reports/:id", reportHandler.GetReport)
		api.GET("/reports/:id/evidence", reportHandler.DownloadEvidence)

		admin := api.Group("")
		admin.Use(middleware.AdminOnly())
		{
			admin.PUT("/reports/:id/status", reportHandler.UpdateStatus)
			admin.GET("/dashboard/stats", dashboardHandler.Stats)
		}
	}
}

func (s *Server) Run(addr string) {
	s.log.Infof("Server starting on port %s...", addr)
	if err := s.router.Run(addr); err != nil {
		s.log.Fatalf("Server failed to start: %v", err)
	}
}
