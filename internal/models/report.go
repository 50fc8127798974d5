package models

import "time"

// Report represents a report stored in the 'reports' table. Rows are created
// automatically by the escalation tracker for every abusive incident and
// manually through the reports API.
type Report struct {
	ID           int64     `db:"id" json:"id"`
	ReporterID   int64     `db:"reporter_id" json:"reporter_id"`
	ReportedID   int64     `db:"reported_id" json:"reported_id"`
	MessageID    *int64    `db:"message_id" json:"message_id,omitempty"`
	EvidencePath *string   `db:"evidence_path" json:"evidence_path,omitempty"`
	Description  *string   `db:"description" json:"description,omitempty"`
	Status       string    `db:"status" json:"status"` // pending, reviewed, closed
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// BlockedUser represents a row in 'blocked_users'. UserID is the participant
// who holds the block, BlockedUserID the participant being blocked.
type BlockedUser struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	BlockedUserID int64     `db:"blocked_user_id" json:"blocked_user_id"`
	Reason        string    `db:"reason" json:"reason"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
