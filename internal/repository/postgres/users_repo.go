package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/roundupgames/audit-backend/internal/models"
)

type usersRepo struct{ pool *pgxpool.Pool }

const userColumns = `id, username, email, password_hash, is_global_admin, created_at, updated_at`

func (r *usersRepo) Create(ctx context.Context, username, email, passwordHash string) (models.User, error) {
	id := uuid.NewString()
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO users(id, username, email, password_hash) VALUES($1,$2,$3,$4)`,
		id, username, email, passwordHash,
	); err != nil {
		return models.User{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsGlobalAdmin, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=$1`, email,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsGlobalAdmin, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
