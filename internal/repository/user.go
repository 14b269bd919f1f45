package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/proteinpath/protein-path-go/internal/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository handles user persistence operations.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. The caller assigns user.ID.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO users (id, email, auth_hash, created_at) VALUES (?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.AuthHash, user.CreatedAt.UnixMilli())
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT id, email, auth_hash, created_at FROM users WHERE email = ?`, email)
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, `SELECT id, email, auth_hash, created_at FROM users WHERE id = ?`, id)
}

// UpdateAuthHash replaces the stored password hash, used after a rehash on login.
func (r *UserRepository) UpdateAuthHash(ctx context.Context, id, hash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET auth_hash = ? WHERE id = ?`, hash, id)
	return err
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	user := &model.User{}
	var createdAt int64
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Email, &user.AuthHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.CreatedAt = time.UnixMilli(createdAt).UTC()
	return user, nil
}

// isDuplicateEntryError matches MySQL error 1062 and SQLite UNIQUE/PRIMARY KEY violations.
func isDuplicateEntryError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
