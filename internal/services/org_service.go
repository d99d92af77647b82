package services

import (
	"context"
	"log/slog"

	"github.com/roundupgames/audit-backend/internal/cache"
	"github.com/roundupgames/audit-backend/internal/models"
	"github.com/roundupgames/audit-backend/internal/orgs"
	repo "github.com/roundupgames/audit-backend/internal/repository"
)

// OrgService answers "what can this user do in that organization". Resolved
// roles are cached per (user, org) with a short TTL; the cache handle may be
// nil, in which case every call resolves from storage.
type OrgService struct {
	orgs  repo.Organizations
	users repo.Users
	cache *cache.Cache
}

func NewOrgService(o repo.Organizations, u repo.Users, c *cache.Cache) *OrgService {
	return &OrgService{orgs: o, users: u, cache: c}
}

func (s *OrgService) loadGrants(ctx context.Context, userID string) (map[string]models.Role, map[string][]string, error) {
	memberships, err := s.orgs.MembershipsForUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	delegated, err := s.orgs.DelegatedScopesForUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return memberships, delegated, nil
}

// AccessibleOrganizations lists every organization the user can see with
// the role their grants resolve to there. Global admins see everything as
// admin.
func (s *OrgService) AccessibleOrganizations(ctx context.Context, userID string) ([]orgs.AccessibleOrg, error) {
	all, err := s.orgs.List(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsGlobalAdmin {
		out := make([]orgs.AccessibleOrg, 0, len(all))
		for _, org := range all {
			out = append(out, orgs.AccessibleOrg{
				Organization:    org,
				Role:            models.RoleAdmin,
				DelegatedScopes: []string{},
			})
		}
		return out, nil
	}

	memberships, delegated, err := s.loadGrants(ctx, userID)
	if err != nil {
		return nil, err
	}
	return orgs.AccessibleOrganizations(all, memberships, delegated)
}

// ResolveAccess returns the user's role on one organization, RoleNone when
// they have no access.
func (s *OrgService) ResolveAccess(ctx context.Context, userID, organizationID string) (models.Role, error) {
	if role, hit, err := s.cache.GetRole(ctx, userID, organizationID); err != nil {
		slog.Warn("access cache read", "err", err)
	} else if hit {
		return role, nil
	}

	role, err := s.resolve(ctx, userID, organizationID)
	if err != nil {
		return models.RoleNone, err
	}

	if err := s.cache.SetRole(ctx, userID, organizationID, role); err != nil {
		slog.Warn("access cache write", "err", err)
	}
	return role, nil
}

func (s *OrgService) resolve(ctx context.Context, userID, organizationID string) (models.Role, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.RoleNone, err
	}
	if user.IsGlobalAdmin {
		return models.RoleAdmin, nil
	}

	all, err := s.orgs.List(ctx)
	if err != nil {
		return models.RoleNone, err
	}
	maps, err := orgs.BuildOrgMaps(all)
	if err != nil {
		return models.RoleNone, err
	}

	memberships, delegated, err := s.loadGrants(ctx, userID)
	if err != nil {
		return models.RoleNone, err
	}

	return orgs.ResolveOrganizationRole(orgs.ResolveParams{
		OrganizationID:       organizationID,
		ParentByID:           maps.ParentByID,
		MembershipByOrg:      memberships,
		DelegatedScopesByOrg: delegated,
	}), nil
}

// GrantMembership gives the user a direct role on the organization,
// replacing any existing grant, and drops their cached resolutions so the
// new role takes effect immediately.
func (s *OrgService) GrantMembership(ctx context.Context, organizationID, userID string, role models.Role) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	if err := s.orgs.UpsertMember(ctx, organizationID, userID, role); err != nil {
		return err
	}
	s.InvalidateAccess(ctx, userID)
	return nil
}

// InvalidateAccess drops cached resolutions after a grant change.
func (s *OrgService) InvalidateAccess(ctx context.Context, userID string) {
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		slog.Warn("access cache invalidate", "user_id", userID, "err", err)
	}
}
