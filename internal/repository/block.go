package repository

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"cybershield/internal/models"
)

type BlockRepository interface {
	CreateBlock(block *models.BlockedUser) error
	IsBlocked(userID, blockedUserID int64) (bool, error)
	ListBlocks(userID int64) ([]*models.BlockedUser, error)
	DeleteBlock(userID, blockedUserID int64) error
}

type blockRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewBlockRepository(db *sqlx.DB, logger *zap.Logger) BlockRepository {
	return &blockRepository{db: db, logger: logger}
}

func (r *blockRepository) CreateBlock(block *models.BlockedUser) error {
	query := `INSERT INTO blocked_users (user_id, blocked_user_id, reason)
	          VALUES ($1, $2, $3) RETURNING id, created_at`
	return r.db.QueryRowx(query, block.UserID, block.BlockedUserID, block.Reason).StructScan(block)
}

// IsBlocked reports whether userID has blocked blockedUserID.
func (r *blockRepository) IsBlocked(userID, blockedUserID int64) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM blocked_users WHERE user_id = $1 AND blocked_user_id = $2`
	err := r.db.Get(&count, query, userID, blockedUserID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *blockRepository) ListBlocks(userID int64) ([]*models.BlockedUser, error) {
	var blocks []*models.BlockedUser
	query := `SELECT id, user_id, blocked_user_id, reason, created_at
	          FROM blocked_users WHERE user_id = $1 ORDER BY created_at DESC`
	err := r.db.Select(&blocks, query, userID)
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

func (r *blockRepository) DeleteBlock(userID, blockedUserID int64) error {
	_, err := r.db.Exec(`DELETE FROM blocked_users WHERE user_id = $1 AND blocked_user_id = $2`, userID, blockedUserID)
	return err
}
