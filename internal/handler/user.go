package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cybershield/internal/middleware"
	"cybershield/internal/repository"
)

type UserHandler interface {
	ListUsers(c *gin.Context)
	Me(c *gin.Context)
}

type userHandler struct {
	userRepo repository.UserRepository
	logger   *zap.Logger
}

func NewUserHandler(userRepo repository.UserRepository, logger *zap.Logger) UserHandler {
	return &userHandler{userRepo: userRepo, logger: logger}
}

// ListUsers handles GET /api/users — every active user except the caller,
// for picking chat partners and friend-request targets.
func (h *userHandler) ListUsers(c *gin.Context) {
	userID := middleware.UserID(c)

	users, err := h.userRepo.ListUsers(userID)
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Me handles GET /api/users/me.
func (h *userHandler) Me(c *gin.Context) {
	userID := middleware.UserID(c)

	user, err := h.userRepo.GetUserByID(userID)
	if err != nil {
		h.logger.Error("Failed to get current user", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
