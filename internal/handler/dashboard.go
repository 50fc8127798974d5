package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cybershield/internal/repository"
)

type DashboardHandler interface {
	Stats(c *gin.Context)
}

type dashboardHandler struct {
	userRepo    repository.UserRepository
	messageRepo repository.MessageRepository
	reportRepo  repository.ReportRepository
	logger      *zap.Logger
}

func NewDashboardHandler(userRepo repository.UserRepository, messageRepo repository.MessageRepository, reportRepo repository.ReportRepository, logger *zap.Logger) DashboardHandler {
	return &dashboardHandler{
		userRepo:    userRepo,
		messageRepo: messageRepo,
		reportRepo:  reportRepo,
		logger:      logger,
	}
}

// Stats handles GET /api/dashboard/stats (admin only).
func (h *dashboardHandler) Stats(c *gin.Context) {
	totalUsers, err := h.userRepo.CountUsers()
	if err != nil {
		h.logger.Error("Failed to count users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	totalMessages, err := h.messageRepo.CountMessages()
	if err != nil {
		h.logger.Error("Failed to count messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	abusiveMessages, err := h.messageRepo.CountAbusiveMessages()
	if err != nil {
		h.logger.Error("Failed to count abusive messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	categoryCounts, err := h.messageRepo.AbuseCategoryCounts()
	if err != nil {
		h.logger.Error("Failed to count abuse categories", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	reportCounts, err := h.reportRepo.CountReportsByStatus()
	if err != nil {
		h.logger.Error("Failed to count reports", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_users":       totalUsers,
		"total_messages":    totalMessages,
		"abusive_messages":  abusiveMessages,
		"abuse_categories":  categoryCounts,
		"reports_by_status": reportCounts,
	})
}
