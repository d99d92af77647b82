package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/roundupgames/audit-backend/internal/models"
)

type organizationsRepo struct{ pool *pgxpool.Pool }

func (r *organizationsRepo) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO organizations(id, name, slug, parent_id) VALUES($1,$2,$3,$4)
		 RETURNING id, name, slug, parent_id, created_at, updated_at`,
		org.ID, org.Name, org.Slug, org.ParentID,
	).Scan(&org.ID, &org.Name, &org.Slug, &org.ParentID, &org.CreatedAt, &org.UpdatedAt)
	return org, err
}

func (r *organizationsRepo) List(ctx context.Context) ([]models.Organization, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, slug, parent_id, created_at, updated_at FROM organizations ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Organization
	for rows.Next() {
		var org models.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.ParentID, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

func (r *organizationsRepo) MembershipsForUser(ctx context.Context, userID string) (map[string]models.Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT organization_id, role FROM organization_members WHERE user_id=$1 AND status='active'`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]models.Role{}
	for rows.Next() {
		var orgID, role string
		if err := rows.Scan(&orgID, &role); err != nil {
			return nil, err
		}
		out[orgID] = models.Role(role)
	}
	return out, rows.Err()
}

func (r *organizationsRepo) UpsertMember(ctx context.Context, organizationID, userID string, role models.Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO organization_members (organization_id, user_id, role, status)
		 VALUES ($1, $2, $3, 'active')
		 ON CONFLICT (organization_id, user_id)
		 DO UPDATE SET role = EXCLUDED.role, status = 'active'`,
		organizationID, userID, string(role))
	return err
}

func (r *organizationsRepo) DelegatedScopesForUser(ctx context.Context, userID string) (map[string][]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT organization_id, scope FROM delegated_access
		 WHERE delegate_user_id=$1 AND revoked_at IS NULL
		   AND (expires_at IS NULL OR expires_at > now())`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var orgID, scope string
		if err := rows.Scan(&orgID, &scope); err != nil {
			return nil, err
		}
		out[orgID] = append(out[orgID], scope)
	}
	return out, rows.Err()
}
