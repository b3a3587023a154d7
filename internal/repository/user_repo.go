package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/lisensia/lisensia_api/internal/models"
)

// UserRepository handles data access for API users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByUsername returns a user by username.
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	const q = `SELECT * FROM users WHERE username = $1 LIMIT 1`

	var u models.User
	if err := r.db.Get(&u, q, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by id.
func (r *UserRepository) GetByID(id int) (*models.User, error) {
	const q = `SELECT * FROM users WHERE id = $1 LIMIT 1`

	var u models.User
	if err := r.db.Get(&u, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(u *models.User) error {
	const q = `
        INSERT INTO users (username, password, role)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	return r.db.QueryRowx(q, u.Username, u.PasswordHash, u.Role).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

// Count returns the total number of users.
func (r *UserRepository) Count() (int, error) {
	const q = `SELECT COUNT(*) FROM users`

	var n int
	if err := r.db.Get(&n, q); err != nil {
		return 0, err
	}
	return n, nil
}
