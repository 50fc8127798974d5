package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cybershield/internal/middleware"
	"cybershield/internal/repository"
)

type MessageHandler interface {
	GetConversation(c *gin.Context)
}

type messageHandler struct {
	messageRepo repository.MessageRepository
	friendRepo  repository.FriendRepository
	userRepo    repository.UserRepository
	logger      *zap.Logger
}

func NewMessageHandler(messageRepo repository.MessageRepository, friendRepo repository.FriendRepository, userRepo repository.UserRepository, logger *zap.Logger) MessageHandler {
	return &messageHandler{
		messageRepo: messageRepo,
		friendRepo:  friendRepo,
		userRepo:    userRepo,
		logger:      logger,
	}
}

// GetConversation handles GET /api/messages/conversation/:user_id — the
// persisted history between the caller and the given user, classification
// fields included. Non-admin callers may only read conversations with
// friends.
func (h *messageHandler) GetConversation(c *gin.Context) {
	userID := middleware.UserID(c)

	otherID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if !c.GetBool("is_admin") {
		friends, err := h.friendRepo.AreFriends(userID, otherID)
		if err != nil {
			h.logger.Error("Failed to check friendship", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check friendship"})
			return
		}
		if !friends {
			c.JSON(http.StatusForbidden, gin.H{"error": "Can only view conversations with friends"})
			return
		}
	}

	messages, err := h.messageRepo.GetConversation(userID, otherID)
	if err != nil {
		h.logger.Error("Failed to get conversation",
			zap.Int64("user_id", userID),
			zap.Int64("other_id", otherID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
