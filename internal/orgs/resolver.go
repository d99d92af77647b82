// Package orgs resolves organization-scoped access. Roles granted at a
// parent organization propagate to every descendant; nothing ever leaks
// sideways between siblings.
package orgs

import (
	"errors"

	"github.com/roundupgames/audit-backend/internal/models"
)

// ErrCycle is returned when the organization parent graph is not a tree.
// Cyclic input is a data-integrity bug upstream; resolution refuses to run
// on it rather than walking forever.
var ErrCycle = errors.New("orgs: cycle in organization parent graph")

var rolePriority = map[models.Role]int{
	models.RoleOwner:    5,
	models.RoleAdmin:    4,
	models.RoleReporter: 3,
	models.RoleViewer:   2,
	models.RoleMember:   1,
}

// Priority returns the rank of a role in the fixed total order; unknown or
// empty roles rank zero.
func Priority(r models.Role) int {
	return rolePriority[r]
}

// PickHighestRole returns the highest-priority role in the list, or RoleNone
// for an empty or all-empty list. Priorities are distinct per role, so the
// result does not depend on input order.
func PickHighestRole(roles []models.Role) models.Role {
	highest := models.RoleNone
	max := 0
	for _, role := range roles {
		if role == models.RoleNone {
			continue
		}
		if rank := rolePriority[role]; rank > max {
			max = rank
			highest = role
		}
	}
	return highest
}

// RoleFromScopes maps delegated scopes onto the role they imply.
func RoleFromScopes(scopes []string) models.Role {
	var roles []models.Role
	for _, scope := range scopes {
		switch scope {
		case "admin":
			roles = append(roles, models.RoleAdmin)
		case "reporting":
			roles = append(roles, models.RoleReporter)
		case "analytics":
			roles = append(roles, models.RoleViewer)
		}
	}
	return PickHighestRole(roles)
}

// OrgMaps indexes a flat organization list for upward and downward walks.
// The empty string stands for "no parent" in ParentByID keys' values and as
// the root bucket in ChildrenByParent.
type OrgMaps struct {
	ParentByID       map[string]string
	ChildrenByParent map[string][]string
}

// BuildOrgMaps indexes organizations by parent pointer. It fails fast with
// ErrCycle when the parent graph is not acyclic.
func BuildOrgMaps(organizations []models.Organization) (OrgMaps, error) {
	m := OrgMaps{
		ParentByID:       make(map[string]string, len(organizations)),
		ChildrenByParent: make(map[string][]string),
	}
	for _, org := range organizations {
		parent := ""
		if org.ParentID != nil {
			parent = *org.ParentID
		}
		m.ParentByID[org.ID] = parent
		m.ChildrenByParent[parent] = append(m.ChildrenByParent[parent], org.ID)
	}

	for id := range m.ParentByID {
		steps := 0
		for cur := id; cur != ""; cur = m.ParentByID[cur] {
			steps++
			if steps > len(organizations) {
				return OrgMaps{}, ErrCycle
			}
		}
	}
	return m, nil
}

// CollectDescendants returns the set of organization ids reachable downward
// from the given roots, roots included.
func CollectDescendants(childrenByParent map[string][]string, roots []string) map[string]struct{} {
	result := make(map[string]struct{}, len(roots))
	queue := make([]string, 0, len(roots))
	for _, root := range roots {
		if _, ok := result[root]; ok {
			continue
		}
		result[root] = struct{}{}
		queue = append(queue, root)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range childrenByParent[current] {
			if _, ok := result[child]; ok {
				continue
			}
			result[child] = struct{}{}
			queue = append(queue, child)
		}
	}
	return result
}

// ResolveParams carries the pre-loaded grant maps a resolution walks over.
type ResolveParams struct {
	OrganizationID       string
	ParentByID           map[string]string
	MembershipByOrg      map[string]models.Role
	DelegatedScopesByOrg map[string][]string
}

// ResolveOrganizationRole walks upward from the target organization through
// its ancestors. The first level (target inclusive) holding any membership
// or derivable delegated grant decides: the highest-priority role found at
// that level wins. RoleNone means no access up to the root.
func ResolveOrganizationRole(p ResolveParams) models.Role {
	for cur := p.OrganizationID; cur != ""; cur = p.ParentByID[cur] {
		var found []models.Role
		if role, ok := p.MembershipByOrg[cur]; ok && role != models.RoleNone {
			found = append(found, role)
		}
		if scopes := p.DelegatedScopesByOrg[cur]; len(scopes) > 0 {
			if role := RoleFromScopes(scopes); role != models.RoleNone {
				found = append(found, role)
			}
		}
		if len(found) > 0 {
			return PickHighestRole(found)
		}
	}
	return models.RoleNone
}

// AccessibleOrg is one organization a subject can see, with the role their
// grants resolve to there.
type AccessibleOrg struct {
	Organization    models.Organization `json:"organization"`
	Role            models.Role         `json:"role"`
	DelegatedScopes []string            `json:"delegated_scopes"`
}

// AccessibleOrganizations lists every organization reachable downward from
// any org the subject holds a grant in, each with its resolved role.
// Input order of the organization list is preserved in the output.
func AccessibleOrganizations(
	organizations []models.Organization,
	membershipByOrg map[string]models.Role,
	delegatedScopesByOrg map[string][]string,
) ([]AccessibleOrg, error) {
	if len(membershipByOrg) == 0 && len(delegatedScopesByOrg) == 0 {
		return nil, nil
	}

	maps, err := BuildOrgMaps(organizations)
	if err != nil {
		return nil, err
	}

	roots := make([]string, 0, len(membershipByOrg)+len(delegatedScopesByOrg))
	for id := range membershipByOrg {
		roots = append(roots, id)
	}
	for id := range delegatedScopesByOrg {
		roots = append(roots, id)
	}
	accessible := CollectDescendants(maps.ChildrenByParent, roots)

	var out []AccessibleOrg
	for _, org := range organizations {
		if _, ok := accessible[org.ID]; !ok {
			continue
		}
		role := ResolveOrganizationRole(ResolveParams{
			OrganizationID:       org.ID,
			ParentByID:           maps.ParentByID,
			MembershipByOrg:      membershipByOrg,
			DelegatedScopesByOrg: delegatedScopesByOrg,
		})
		scopes := delegatedScopesByOrg[org.ID]
		if scopes == nil {
			scopes = []string{}
		}
		out = append(out, AccessibleOrg{Organization: org, Role: role, DelegatedScopes: scopes})
	}
	return out, nil
}
