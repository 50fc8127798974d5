package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cybershield/internal/middleware"
	"cybershield/internal/models"
	"cybershield/internal/repository"
)

type ReportHandler interface {
	CreateReport(c *gin.Context)
	ListReports(c *gin.Context)
	GetReport(c *gin.Context)
	DownloadEvidence(c *gin.Context)
	UpdateStatus(c *gin.Context)
}

type reportHandler struct {
	reportRepo  repository.ReportRepository
	messageRepo repository.MessageRepository
	logger      *zap.Logger
}

func NewReportHandler(reportRepo repository.ReportRepository, messageRepo repository.MessageRepository, logger *zap.Logger) ReportHandler {
	return &reportHandler{
		reportRepo:  reportRepo,
		messageRepo: messageRepo,
		logger:      logger,
	}
}

type CreateReportRequest struct {
	ReportedID  int64  `json:"reported_id" binding:"required"`
	MessageID   *int64 `json:"message_id"`
	Description string `json:"description"`
}

// CreateReport handles POST /api/reports — a manual, user-initiated report.
// Automatic reports are inserted by the escalation tracker.
func (h *reportHandler) CreateReport(c *gin.Context) {
	userID := middleware.UserID(c)

	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.MessageID != nil {
		msg, err := h.messageRepo.GetMessageByID(*req.MessageID)
		if err != nil {
			h.logger.Error("Failed to look up reported message", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify message"})
			return
		}
		if msg == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
	}

	report := &models.Report{
		ReporterID: userID,
		ReportedID: req.ReportedID,
		MessageID:  req.MessageID,
		Status:     "pending",
	}
	if req.Description != "" {
		report.Description = &req.Description
	}

	if err := h.reportRepo.CreateReport(report); err != nil {
		h.logger.Error("Failed to create report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create report"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// ListReports handles GET /api/reports. Admins see everything and may filter
// by status; other callers see only reports they are involved in.
func (h *reportHandler) ListReports(c *gin.Context) {
	userID := middleware.UserID(c)

	var reports []*models.Report
	var err error

	if c.GetBool("is_admin") {
		if status := c.Query("status"); status != "" {
			reports, err = h.reportRepo.GetReportsByStatus(status)
		} else {
			reports, err = h.reportRepo.GetAllReports()
		}
	} else {
		reports, err = h.reportRepo.GetReportsForUser(userID)
	}

	if err != nil {
		h.logger.Error("Failed to list reports", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// GetReport handles GET /api/reports/:id.
func (h *reportHandler) GetReport(c *gin.Context) {
	report, ok := h.loadAccessibleReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// DownloadEvidence handles GET /api/reports/:id/evidence — streams the
// packaged archive for the report.
func (h *reportHandler) DownloadEvidence(c *gin.Context) {
	report, ok := h.loadAccessibleReport(c)
	if !ok {
		return
	}

	if report.EvidencePath == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report has no evidence archive"})
		return
	}

	c.FileAttachment(*report.EvidencePath, "evidence.zip")
}

type UpdateReportStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles PUT /api/reports/:id/status (admin only).
func (h *reportHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report ID"})
		return
	}

	var req UpdateReportStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	validStatuses := map[string]bool{
		"pending":  true,
		"reviewed": true,
		"closed":   true,
	}
	if !validStatuses[req.Status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status. Valid values: pending, reviewed, closed"})
		return
	}

	if err := h.reportRepo.UpdateReportStatus(id, req.Status); err != nil {
		h.logger.Error("Failed to update report status", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update report status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Report status updated successfully"})
}

func (h *reportHandler) loadAccessibleReport(c *gin.Context) (*models.Report, bool) {
	userID := middleware.UserID(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report ID"})
		return nil, false
	}

	report, err := h.reportRepo.GetReportByID(id)
	if err != nil {
		h.logger.Error("Failed to get report", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve report"})
		return nil, false
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return nil, false
	}

	if !c.GetBool("is_admin") && report.ReporterID != userID && report.ReportedID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to view this report"})
		return nil, false
	}
	return report, true
}
