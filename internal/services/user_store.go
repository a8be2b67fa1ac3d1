package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/calmry/calmry-backend/internal/models"
)

// UserStore persists user records in PostgreSQL.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// CreateUser inserts a new user. The caller is expected to have checked
// email uniqueness; a concurrent duplicate still fails on the UNIQUE
// constraint.
func (s *UserStore) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, created_at, updated_at, username, email, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.CreatedAt, u.UpdatedAt, u.Username, u.Email, u.Password)
	return err
}

// GetUserByEmail looks up a user by email (case-insensitive).
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at, username, email, password_hash
		FROM users WHERE LOWER(email) = LOWER($1)
	`, email))
}

// GetUserByID looks up a user by primary key.
func (s *UserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at, username, email, password_hash
		FROM users WHERE id = $1
	`, id))
}

// EmailTakenByOther reports whether the email belongs to a user other than
// the given one. Used by profile update to reject stealing another
// account's email.
func (s *UserStore) EmailTakenByOther(ctx context.Context, email string, id uuid.UUID) (bool, error) {
	var existing uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM users WHERE LOWER(email) = LOWER($1) AND id <> $2
	`, email, id).Scan(&existing)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateUser applies the full username/email/password triple in a single
// statement.
func (s *UserStore) UpdateUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET username = $1, email = $2, password_hash = $3, updated_at = $4
		WHERE id = $5
	`, u.Username, u.Email, u.Password, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserStore) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.Username, &u.Email, &u.Password)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
