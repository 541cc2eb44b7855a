package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// UserRepo persists and loads accounts using a minimal pgx pool.
type UserRepo struct{ Pool PgxPool }

// NewUserRepo constructs a UserRepo with the given pool.
func NewUserRepo(p PgxPool) *UserRepo { return &UserRepo{Pool: p} }

// Create stores a new user and returns its id (generates one if empty).
// A duplicate email maps to ErrConflict.
func (r *UserRepo) Create(ctx domain.Context, u domain.User) (string, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	)
	id := u.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO users (id, email, name, password_hash, created_at) VALUES ($1,$2,$3,$4,$5)`
	_, err := r.Pool.Exec(ctx, q, id, u.Email, u.Name, u.PasswordHash, time.Now().UTC())
	if err != nil {
		if uniqueViolation(err, "users_email_key") {
			return "", fmt.Errorf("op=user.create: %w: email already registered", domain.ErrConflict)
		}
		return "", fmt.Errorf("op=user.create: %w", err)
	}
	return id, nil
}

// Get loads a user by id.
func (r *UserRepo) Get(ctx domain.Context, id string) (domain.User, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.Get")
	defer span.End()
	q := `SELECT id, email, name, password_hash, created_at FROM users WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("op=user.get: %w", domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("op=user.get: %w", err)
	}
	return u, nil
}

// GetByEmail loads a user by email.
func (r *UserRepo) GetByEmail(ctx domain.Context, email string) (domain.User, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.GetByEmail")
	defer span.End()
	q := `SELECT id, email, name, password_hash, created_at FROM users WHERE email=$1`
	row := r.Pool.QueryRow(ctx, q, email)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("op=user.get_by_email: %w", domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("op=user.get_by_email: %w", err)
	}
	return u, nil
}
