package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"cybershield/internal/models"
)

type UserRepository interface {
	CreateUser(user *models.User) error
	GetUserByID(id int64) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	ListUsers(excludeID int64) ([]*models.User, error)
	CountUsers() (int, error)
}

type userRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewUserRepository(db *sqlx.DB, log *logrus.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

func (r *userRepository) CreateUser(user *models.User) error {
	query := `INSERT INTO users (username, email, password_hash, full_name, is_admin, is_active)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	return r.db.QueryRowx(query, user.Username, user.Email, user.PasswordHash, user.FullName, user.IsAdmin, user.IsActive).StructScan(user)
}

func (r *userRepository) GetUserByID(id int64) (*models.User, error) {
	var user models.User
	query := `SELECT id, username, email, password_hash, full_name, is_admin, is_active, created_at FROM users WHERE id = $1`
	err := r.db.Get(&user, query, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	query := `SELECT id, username, email, password_hash, full_name, is_admin, is_active, created_at FROM users WHERE username = $1`
	err := r.db.Get(&user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		r.log.Errorf("Failed to get user by username %s: %v", username, err)
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListUsers(excludeID int64) ([]*models.User, error) {
	var users []*models.User
	query := `SELECT id, username, email, password_hash, full_name, is_admin, is_active, created_at
	          FROM users WHERE id != $1 AND is_active ORDER BY username`
	err := r.db.Select(&users, query, excludeID)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) CountUsers() (int, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM users`)
	if err != nil {
		return 0, err
	}
	return count, nil
}
