package repository

import (
	"context"
	"errors"

	"github.com/roundupgames/audit-backend/internal/models"
)

// ErrStaleChainHead is returned by AuditLogs.Append when the row's prev_hash
// no longer matches the newest persisted entry_hash, i.e. another writer
// committed first. The caller re-seeds its basis and retries.
var ErrStaleChainHead = errors.New("audit: chain head moved, prev hash is stale")

type Users interface {
	Create(ctx context.Context, username, email, passwordHash string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

type Organizations interface {
	Create(ctx context.Context, org models.Organization) (models.Organization, error)
	List(ctx context.Context) ([]models.Organization, error)
	// MembershipsForUser returns active direct role grants keyed by org id.
	MembershipsForUser(ctx context.Context, userID string) (map[string]models.Role, error)
	// UpsertMember grants or replaces a user's direct role on an org and
	// reactivates the membership if it was inactive.
	UpsertMember(ctx context.Context, organizationID, userID string, role models.Role) error
	// DelegatedScopesForUser returns live (not revoked, not expired) scopes
	// keyed by org id.
	DelegatedScopesForUser(ctx context.Context, userID string) (map[string][]string, error)
}

type AuditLogs interface {
	// Append inserts one chain row. The insert runs under the chain's
	// advisory lock and is rejected with ErrStaleChainHead when the row
	// does not link to the newest entry_hash, so two writers can never
	// commit against the same prev_hash.
	Append(ctx context.Context, row models.AuditRow) error
	// LastEntryHash returns the hash of the newest row, or nil for an
	// empty chain.
	LastEntryHash(ctx context.Context) (*string, error)
	// ListAll returns every row in insertion order, the verifier's input.
	ListAll(ctx context.Context) ([]models.AuditRow, error)
	List(ctx context.Context, limit, offset int) ([]models.AuditRow, error)
}
