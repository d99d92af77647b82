package postgres

import (
	repo "github.com/roundupgames/audit-backend/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	Users         repo.Users
	Organizations repo.Organizations
	AuditLogs     repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:         &usersRepo{pool},
		Organizations: &organizationsRepo{pool},
		AuditLogs:     &auditLogsRepo{pool},
	}
}
