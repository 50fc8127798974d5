package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"cybershield/internal/models"
)

type MessageRepository interface {
	SaveMessage(msg *models.Message) error
	GetMessageByID(id int64) (*models.Message, error)
	GetConversation(userID, otherID int64) ([]*models.Message, error)
	CountMessages() (int, error)
	CountAbusiveMessages() (int, error)
	AbuseCategoryCounts() (map[string]int, error)
}

type messageRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewMessageRepository(db *sqlx.DB, logger *zap.Logger) MessageRepository {
	return &messageRepository{db: db, logger: logger}
}

func (r *messageRepository) SaveMessage(msg *models.Message) error {
	query := `INSERT INTO messages (sender_id, receiver_id, content, is_abusive, abuse_score, abuse_category)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	return r.db.QueryRowx(query, msg.SenderID, msg.ReceiverID, msg.Content,
		msg.IsAbusive, msg.AbuseScore, msg.AbuseCategory).StructScan(msg)
}

func (r *messageRepository) GetMessageByID(id int64) (*models.Message, error) {
	var msg models.Message
	query := `SELECT id, sender_id, receiver_id, content, created_at, is_abusive, abuse_score, abuse_category
	          FROM messages WHERE id = $1`
	err := r.db.Get(&msg, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// GetConversation returns the full message history between two participants
// in the order the messages were created.
func (r *messageRepository) GetConversation(userID, otherID int64) ([]*models.Message, error) {
	var messages []*models.Message
	query := `SELECT id, sender_id, receiver_id, content, created_at, is_abusive, abuse_score, abuse_category
	          FROM messages
	          WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
	          ORDER BY created_at ASC`
	err := r.db.Select(&messages, query, userID, otherID)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) CountMessages() (int, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM messages`)
	return count, err
}

func (r *messageRepository) CountAbusiveMessages() (int, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM messages WHERE is_abusive`)
	return count, err
}

// AbuseCategoryCounts returns how many abusive messages were recorded per
// category, for the admin dashboard.
func (r *messageRepository) AbuseCategoryCounts() (map[string]int, error) {
	rows, err := r.db.Queryx(`SELECT abuse_category, COUNT(*) AS cnt FROM messages
	                          WHERE is_abusive AND abuse_category IS NOT NULL
	                          GROUP BY abuse_category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var cnt int
		if err := rows.Scan(&category, &cnt); err != nil {
			r.logger.Error("Failed to scan abuse category count", zap.Error(err))
			continue
		}
		counts[category] = cnt
	}
	return counts, rows.Err()
}
