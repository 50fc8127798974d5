package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"cybershield/internal/models"
)

type FriendRepository interface {
	CreateRequest(req *models.FriendRequest) error
	GetRequestByID(id int64) (*models.FriendRequest, error)
	GetPendingRequest(senderID, receiverID int64) (*models.FriendRequest, error)
	ListPendingRequests(receiverID int64) ([]*models.FriendRequest, error)
	UpdateRequestStatus(id int64, status string) error
	CreateFriendship(user1ID, user2ID int64) error
	AreFriends(user1ID, user2ID int64) (bool, error)
	ListFriends(userID int64) ([]*models.User, error)
}

type friendRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewFriendRepository(db *sqlx.DB, logger *zap.Logger) FriendRepository {
	return &friendRepository{db: db, logger: logger}
}

func (r *friendRepository) CreateRequest(req *models.FriendRequest) error {
	query := `INSERT INTO friend_requests (sender_id, receiver_id, status)
	          VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`
	return r.db.QueryRowx(query, req.SenderID, req.ReceiverID, req.Status).StructScan(req)
}

func (r *friendRepository) GetRequestByID(id int64) (*models.FriendRequest, error) {
	var req models.FriendRequest
	query := `SELECT id, sender_id, receiver_id, status, created_at, updated_at FROM friend_requests WHERE id = $1`
	err := r.db.Get(&req, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *friendRepository) GetPendingRequest(senderID, receiverID int64) (*models.FriendRequest, error) {
	var req models.FriendRequest
	query := `SELECT id, sender_id, receiver_id, status, created_at, updated_at
	          FROM friend_requests WHERE sender_id = $1 AND receiver_id = $2 AND status = 'pending'`
	err := r.db.Get(&req, query, senderID, receiverID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *friendRepository) ListPendingRequests(receiverID int64) ([]*models.FriendRequest, error) {
	var reqs []*models.FriendRequest
	query := `SELECT id, sender_id, receiver_id, status, created_at, updated_at
	          FROM friend_requests WHERE receiver_id = $1 AND status = 'pending' ORDER BY created_at DESC`
	err := r.db.Select(&reqs, query, receiverID)
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *friendRepository) UpdateRequestStatus(id int64, status string) error {
	_, err := r.db.Exec(`UPDATE friend_requests SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	return err
}

func (r *friendRepository) CreateFriendship(user1ID, user2ID int64) error {
	_, err := r.db.Exec(`INSERT INTO friendships (user1_id, user2_id) VALUES ($1, $2)`, user1ID, user2ID)
	return err
}

// AreFriends checks both orderings of the friendship pair.
func (r *friendRepository) AreFriends(user1ID, user2ID int64) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM friendships
	          WHERE (user1_id = $1 AND user2_id = $2) OR (user1_id = $2 AND user2_id = $1)`
	err := r.db.Get(&count, query, user1ID, user2ID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *friendRepository) ListFriends(userID int64) ([]*models.User, error) {
	var friends []*models.User
	query := `SELECT u.id, u.username, u.email, u.password_hash, u.full_name, u.is_admin, u.is_active, u.created_at
	          FROM users u
	          JOIN friendships f ON (f.user1_id = u.id AND f.user2_id = $1)
	                             OR (f.user2_id = u.id AND f.user1_id = $1)
	          ORDER BY u.username`
	err := r.db.Select(&friends, query, userID)
	if err != nil {
		r.logger.Error("Failed to list friends", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}
	return friends, nil
}
