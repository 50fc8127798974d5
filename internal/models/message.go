package models

import "time"

// Message represents a message stored in the 'messages' table. The
// classification fields are attached by the dispatch hub before the row is
// inserted and never change afterwards.
type Message struct {
	ID            int64     `db:"id" json:"id"`
	SenderID      int64     `db:"sender_id" json:"sender_id"`
	ReceiverID    int64     `db:"receiver_id" json:"receiver_id"`
	Content       string    `db:"content" json:"content"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	IsAbusive     bool      `db:"is_abusive" json:"is_abusive"`
	AbuseScore    float64   `db:"abuse_score" json:"abuse_score"`
	AbuseCategory *string   `db:"abuse_category" json:"abuse_category"` // Null when the message is clean
}

// InboundMessage is the wire shape a connected client sends over the socket.
type InboundMessage struct {
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
}

// Alert is the side-channel payload delivered to a receiver when the
// escalation tracker fires a warning or a block.
type Alert struct {
	Type     string `json:"type"`
	Severity string `json:"severity"` // "warning" or "critical"
	Message  string `json:"message"`
}

const (
	AlertSeverityWarning  = "warning"
	AlertSeverityCritical = "critical"
)
