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

type FriendHandler interface {
	SendRequest(c *gin.Context)
	RespondRequest(c *gin.Context)
	ListFriends(c *gin.Context)
	ListPendingRequests(c *gin.Context)
	ListBlocked(c *gin.Context)
	Unblock(c *gin.Context)
}

type friendHandler struct {
	friendRepo repository.FriendRepository
	blockRepo  repository.BlockRepository
	userRepo   repository.UserRepository
	logger     *zap.Logger
}

func NewFriendHandler(friendRepo repository.FriendRepository, blockRepo repository.BlockRepository, userRepo repository.UserRepository, logger *zap.Logger) FriendHandler {
	return &friendHandler{
		friendRepo: friendRepo,
		blockRepo:  blockRepo,
		userRepo:   userRepo,
		logger:     logger,
	}
}

type FriendRequestPayload struct {
	ReceiverID int64 `json:"receiver_id" binding:"required"`
}

// SendRequest handles POST /api/friends/request.
func (h *friendHandler) SendRequest(c *gin.Context) {
	userID := middleware.UserID(c)

	var req FriendRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ReceiverID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot send a friend request to yourself"})
		return
	}

	if _, err := h.userRepo.GetUserByID(req.ReceiverID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	already, err := h.friendRepo.AreFriends(userID, req.ReceiverID)
	if err != nil {
		h.logger.Error("Failed to check friendship", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check friendship"})
		return
	}
	if already {
		c.JSON(http.StatusConflict, gin.H{"error": "Already friends"})
		return
	}

	pending, err := h.friendRepo.GetPendingRequest(userID, req.ReceiverID)
	if err != nil {
		h.logger.Error("Failed to check pending request", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check pending request"})
		return
	}
	if pending != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Friend request already pending"})
		return
	}

	request := &models.FriendRequest{
		SenderID:   userID,
		ReceiverID: req.ReceiverID,
		Status:     "pending",
	}
	if err := h.friendRepo.CreateRequest(request); err != nil {
		h.logger.Error("Failed to create friend request", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create friend request"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Friend request sent", "request": request})
}

type RespondRequestPayload struct {
	Accept bool `json:"accept"`
}

// RespondRequest handles PUT /api/friends/request/:id — only the request's
// receiver may accept or reject it.
func (h *friendHandler) RespondRequest(c *gin.Context) {
	userID := middleware.UserID(c)

	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	var payload RespondRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.friendRepo.GetRequestByID(requestID)
	if err != nil {
		h.logger.Error("Failed to get friend request", zap.Int64("request_id", requestID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve friend request"})
		return
	}
	if request == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Friend request not found"})
		return
	}
	if request.ReceiverID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the receiver can respond to this request"})
		return
	}
	if request.Status != "pending" {
		c.JSON(http.StatusConflict, gin.H{"error": "Friend request already handled"})
		return
	}

	status := "rejected"
	if payload.Accept {
		status = "accepted"
	}

	if err := h.friendRepo.UpdateRequestStatus(requestID, status); err != nil {
		h.logger.Error("Failed to update friend request", zap.Int64("request_id", requestID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update friend request"})
		return
	}

	if payload.Accept {
		if err := h.friendRepo.CreateFriendship(request.SenderID, request.ReceiverID); err != nil {
			h.logger.Error("Failed to create friendship", zap.Int64("request_id", requestID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create friendship"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Friend request " + status})
}

// ListFriends handles GET /api/friends.
func (h *friendHandler) ListFriends(c *gin.Context) {
	userID := middleware.UserID(c)

	friends, err := h.friendRepo.ListFriends(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve friends"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// ListPendingRequests handles GET /api/friends/requests.
func (h *friendHandler) ListPendingRequests(c *gin.Context) {
	userID := middleware.UserID(c)

	requests, err := h.friendRepo.ListPendingRequests(userID)
	if err != nil {
		h.logger.Error("Failed to list pending requests", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve pending requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// ListBlocked handles GET /api/friends/blocked.
func (h *friendHandler) ListBlocked(c *gin.Context) {
	userID := middleware.UserID(c)

	blocks, err := h.blockRepo.ListBlocks(userID)
	if err != nil {
		h.logger.Error("Failed to list blocks", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve blocked users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"blocked": blocks})
}

// Unblock handles DELETE /api/friends/blocked/:user_id.
func (h *friendHandler) Unblock(c *gin.Context) {
	userID := middleware.UserID(c)

	blockedID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if err := h.blockRepo.DeleteBlock(userID, blockedID); err != nil {
		h.logger.Error("Failed to delete block",
			zap.Int64("user_id", userID),
			zap.Int64("blocked_id", blockedID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unblock user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User unblocked"})
}
