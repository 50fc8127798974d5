package hub

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"cybershield/internal/abuse"
	"cybershield/internal/escalation"
	"cybershield/internal/models"
	"cybershield/internal/repository"
)

// Connection is the outbound half of a live participant connection. The
// websocket Client implements it; tests substitute fakes.
type Connection interface {
	Send(v interface{}) error
	Close()
}

// Tracker is the slice of the escalation tracker the hub needs.
type Tracker interface {
	RecordIncident(msg *models.Message) *escalation.Action
}

// Hub owns the live-connection map keyed by participant id and routes
// inbound messages through classification, persistence and escalation to the
// receiver's connection.
type Hub struct {
	mu    sync.RWMutex
	conns map[int64]Connection

	detector *abuse.Detector
	tracker  Tracker
	messages repository.MessageRepository
	blocks   repository.BlockRepository
	logger   *zap.Logger
}

func NewHub(detector *abuse.Detector, tracker Tracker, messages repository.MessageRepository, blocks repository.BlockRepository, logger *zap.Logger) *Hub {
	return &Hub{
		conns:    make(map[int64]Connection),
		detector: detector,
		tracker:  tracker,
		messages: messages,
		blocks:   blocks,
		logger:   logger,
	}
}

// Register binds a connection to a participant id. A prior connection for
// the same id is closed and replaced (last writer wins).
func (h *Hub) Register(userID int64, conn Connection) {
	h.mu.Lock()
	prev := h.conns[userID]
	h.conns[userID] = conn
	h.mu.Unlock()

	if prev != nil && prev != conn {
		prev.Close()
	}
	h.logger.Info("Participant connected", zap.Int64("user_id", userID))
}

// Unregister removes the participant's connection if present.
func (h *Hub) Unregister(userID int64) {
	h.mu.Lock()
	delete(h.conns, userID)
	h.mu.Unlock()
	h.logger.Info("Participant disconnected", zap.Int64("user_id", userID))
}

// dropIfCurrent removes the mapping only when conn is still the live one,
// so a replaced connection tearing down cannot evict its successor.
func (h *Hub) dropIfCurrent(userID int64, conn Connection) {
	h.mu.Lock()
	if h.conns[userID] == conn {
		delete(h.conns, userID)
	}
	h.mu.Unlock()
}

// Deliver sends payload to the participant's live connection. A participant
// with no live connection is a silent no-op; undelivered messages remain
// retrievable through the persisted history.
func (h *Hub) Deliver(userID int64, payload interface{}) {
	h.mu.RLock()
	conn := h.conns[userID]
	h.mu.RUnlock()

	if conn == nil {
		return
	}
	if err := conn.Send(payload); err != nil {
		h.logger.Warn("Failed to deliver payload, dropping connection",
			zap.Int64("user_id", userID),
			zap.Error(err))
		h.dropIfCurrent(userID, conn)
		conn.Close()
	}
}

// Connected reports whether the participant currently has a live connection.
func (h *Hub) Connected(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[userID]
	return ok
}

// HandleInbound processes one message from a connected sender: classify,
// persist, escalate when abusive, then forward to the receiver regardless of
// the abuse outcome. The returned error reports a persistence failure; the
// live forward proceeds either way so a storage outage does not degrade the
// chat path.
func (h *Hub) HandleInbound(senderID int64, in models.InboundMessage) error {
	if blocked, err := h.blocks.IsBlocked(in.ReceiverID, senderID); err != nil {
		h.logger.Error("Failed to check block relationship",
			zap.Int64("sender_id", senderID),
			zap.Int64("receiver_id", in.ReceiverID),
			zap.Error(err))
	} else if blocked {
		h.Deliver(senderID, models.Alert{
			Type:     "alert",
			Severity: models.AlertSeverityWarning,
			Message:  "Your message could not be delivered.",
		})
		return nil
	}

	result := h.detector.Analyze(in.Content)

	// CreatedAt is overwritten by the database on a successful insert; the
	// local clock keeps the envelope usable when persistence is down.
	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: in.ReceiverID,
		Content:    in.Content,
		CreatedAt:  time.Now(),
		IsAbusive:  result.IsAbusive,
		AbuseScore: result.Score,
	}
	if result.IsAbusive {
		category := string(result.Category)
		msg.AbuseCategory = &category
	}

	persistErr := h.messages.SaveMessage(msg)
	if persistErr != nil {
		h.logger.Error("Failed to persist message",
			zap.Int64("sender_id", senderID),
			zap.Int64("receiver_id", in.ReceiverID),
			zap.Error(persistErr))
	}

	var action *escalation.Action
	if result.IsAbusive {
		action = h.tracker.RecordIncident(msg)
	}

	h.Deliver(in.ReceiverID, msg)

	if action != nil {
		h.Deliver(in.ReceiverID, action.Alert)
	}

	return persistErr
}
