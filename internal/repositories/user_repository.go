package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messenger-service/internal/models"
)

// UserRepository abstracts profile persistence.
type UserRepository interface {
	Upsert(ctx context.Context, externalID, name, email, avatarURL string) (models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (models.User, error)
	GetUser(ctx context.Context, userID int) (models.User, error)
	BulkUsers(ctx context.Context, ids []int) ([]models.User, error)
	ListOthers(ctx context.Context, userID int) ([]models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, external_id, name, email, avatar_url, created_at`

// Upsert inserts or updates a profile keyed on the identity provider's
// subject id. Repeated calls with the same subject are idempotent.
func (r *UserRepo) Upsert(ctx context.Context, externalID, name, email, avatarURL string) (models.User, error) {
	var user models.User
	err := r.db.QueryRowxContext(ctx, `INSERT INTO users (external_id, name, email, avatar_url) VALUES ($1, $2, $3, $4)
        ON CONFLICT (external_id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, avatar_url = EXCLUDED.avatar_url
        RETURNING `+userColumns, externalID, name, email, avatarURL).
		StructScan(&user)
	return user, err
}

// GetByExternalID resolves a verified subject id to a local profile.
func (r *UserRepo) GetByExternalID(ctx context.Context, externalID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE external_id=$1`, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUser fetches a profile by local id.
func (r *UserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// BulkUsers fetches multiple profiles in one query.
func (r *UserRepo) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, pq.Array(ids))
	return users, err
}

// ListOthers returns every profile except the caller's, for user discovery.
func (r *UserRepo) ListOthers(ctx context.Context, userID int) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users WHERE id <> $1 ORDER BY name ASC, id ASC`, userID)
	return users, err
}
