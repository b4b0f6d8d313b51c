package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists users and their external provider links.
type Store interface {
	Create(ctx context.Context, user User) error
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	Update(ctx context.Context, id string, update ProfileUpdate) (User, error)
	LinkProvider(ctx context.Context, link ProviderLink) error
	FindByProvider(ctx context.Context, provider, subject string) (User, error)
}

const uniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed user store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new user. A duplicate email maps to ErrEmailTaken.
func (s *PostgresStore) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO users (id, email, name, password_hash, role, phone, image, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		userID, user.Email, user.Name, user.PasswordHash, user.Role, user.Phone, user.Image, user.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return err
}

// FindByEmail fetches a user by their login email.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRow(ctx, `SELECT id, email, name, password_hash, role, phone, image, created_at
        FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// FindByID fetches a user by id.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT id, email, name, password_hash, role, phone, image, created_at
        FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// Update applies the non-nil profile fields and returns the updated record.
func (s *PostgresStore) Update(ctx context.Context, id string, update ProfileUpdate) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `UPDATE users
        SET name = COALESCE($1, name), phone = COALESCE($2, phone), image = COALESCE($3, image)
        WHERE id = $4
        RETURNING id, email, name, password_hash, role, phone, image, created_at`,
		update.Name, update.Phone, update.Image, userID)
	return scanUser(row)
}

// LinkProvider records that a user owns an account at an external provider.
func (s *PostgresStore) LinkProvider(ctx context.Context, link ProviderLink) error {
	userID, err := uuid.Parse(link.UserID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO provider_links (user_id, provider, subject, created_at)
        VALUES ($1, $2, $3, $4)`, userID, link.Provider, link.Subject, link.CreatedAt.UTC())
	return err
}

// FindByProvider fetches the user linked to an external provider account.
func (s *PostgresStore) FindByProvider(ctx context.Context, provider, subject string) (User, error) {
	row := s.db.QueryRow(ctx, `SELECT u.id, u.email, u.name, u.password_hash, u.role, u.phone, u.image, u.created_at
        FROM users u JOIN provider_links l ON l.user_id = u.id
        WHERE l.provider = $1 AND l.subject = $2`, provider, subject)
	return scanUser(row)
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		user      User
	)
	err := row.Scan(&id, &user.Email, &user.Name, &user.PasswordHash, &user.Role, &user.Phone, &user.Image, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
