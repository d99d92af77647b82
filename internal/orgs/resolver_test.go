package orgs

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/roundupgames/audit-backend/internal/models"
)

func org(id string, parent string) models.Organization {
	o := models.Organization{ID: id, Name: id, Slug: id}
	if parent != "" {
		p := parent
		o.ParentID = &p
	}
	return o
}

// root ─┬─ a ─┬─ a1
//       │     └─ a2
//       └─ b ─── b1
func sampleTree() []models.Organization {
	return []models.Organization{
		org("root", ""),
		org("a", "root"),
		org("a1", "a"),
		org("a2", "a"),
		org("b", "root"),
		org("b1", "b"),
	}
}

func TestBuildOrgMaps(t *testing.T) {
	m, err := BuildOrgMaps(sampleTree())
	if err != nil {
		t.Fatal(err)
	}
	if m.ParentByID["a1"] != "a" || m.ParentByID["root"] != "" {
		t.Fatalf("parent map wrong: %+v", m.ParentByID)
	}
	if len(m.ChildrenByParent["a"]) != 2 {
		t.Fatalf("children of a: %v", m.ChildrenByParent["a"])
	}
}

func TestBuildOrgMapsDetectsCycle(t *testing.T) {
	cyclic := []models.Organization{org("a", "b"), org("b", "a")}
	if _, err := BuildOrgMaps(cyclic); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}

	self := []models.Organization{org("a", "a")}
	if _, err := BuildOrgMaps(self); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle for self-parent, got %v", err)
	}
}

func TestCollectDescendants(t *testing.T) {
	m, err := BuildOrgMaps(sampleTree())
	if err != nil {
		t.Fatal(err)
	}
	got := CollectDescendants(m.ChildrenByParent, []string{"a"})
	for _, id := range []string{"a", "a1", "a2"} {
		if _, ok := got[id]; !ok {
			t.Fatalf("missing descendant %s: %v", id, got)
		}
	}
	for _, id := range []string{"root", "b", "b1"} {
		if _, ok := got[id]; ok {
			t.Fatalf("unexpected %s in descendants: %v", id, got)
		}
	}
}

func TestResolveRolePropagatesDownward(t *testing.T) {
	m, _ := BuildOrgMaps(sampleTree())
	memberships := map[string]models.Role{"a": models.RoleReporter}

	for _, id := range []string{"a", "a1", "a2"} {
		role := ResolveOrganizationRole(ResolveParams{
			OrganizationID:  id,
			ParentByID:      m.ParentByID,
			MembershipByOrg: memberships,
		})
		if Priority(role) < Priority(models.RoleReporter) {
			t.Fatalf("%s resolved to %q, want >= reporter", id, role)
		}
	}
}

func TestResolveRoleNoSiblingLeakage(t *testing.T) {
	m, _ := BuildOrgMaps(sampleTree())
	memberships := map[string]models.Role{"a": models.RoleOwner}

	for _, id := range []string{"b", "b1", "root"} {
		role := ResolveOrganizationRole(ResolveParams{
			OrganizationID:  id,
			ParentByID:      m.ParentByID,
			MembershipByOrg: memberships,
		})
		if role != models.RoleNone {
			t.Fatalf("grant on a leaked to %s as %q", id, role)
		}
	}
}

func TestResolveRoleFirstLevelWins(t *testing.T) {
	m, _ := BuildOrgMaps(sampleTree())

	// Direct grant at the org itself beats a higher grant further up.
	role := ResolveOrganizationRole(ResolveParams{
		OrganizationID: "a1",
		ParentByID:     m.ParentByID,
		MembershipByOrg: map[string]models.Role{
			"a1":   models.RoleMember,
			"root": models.RoleOwner,
		},
	})
	if role != models.RoleMember {
		t.Fatalf("expected member from nearest grant, got %q", role)
	}

	// Membership and delegation at the same level: highest priority wins.
	role = ResolveOrganizationRole(ResolveParams{
		OrganizationID:       "a1",
		ParentByID:           m.ParentByID,
		MembershipByOrg:      map[string]models.Role{"a1": models.RoleMember},
		DelegatedScopesByOrg: map[string][]string{"a1": {"admin"}},
	})
	if role != models.RoleAdmin {
		t.Fatalf("expected admin from same-level delegation, got %q", role)
	}
}

func TestResolveRoleSkipsUnderivableScopes(t *testing.T) {
	m, _ := BuildOrgMaps(sampleTree())
	role := ResolveOrganizationRole(ResolveParams{
		OrganizationID:       "a1",
		ParentByID:           m.ParentByID,
		MembershipByOrg:      map[string]models.Role{"a": models.RoleViewer},
		DelegatedScopesByOrg: map[string][]string{"a1": {"unknown-scope"}},
	})
	if role != models.RoleViewer {
		t.Fatalf("underivable scope must not stop the walk, got %q", role)
	}
}

func TestRoleFromScopes(t *testing.T) {
	cases := []struct {
		scopes []string
		want   models.Role
	}{
		{[]string{"admin"}, models.RoleAdmin},
		{[]string{"reporting"}, models.RoleReporter},
		{[]string{"analytics"}, models.RoleViewer},
		{[]string{"analytics", "admin"}, models.RoleAdmin},
		{[]string{"bogus"}, models.RoleNone},
		{nil, models.RoleNone},
	}
	for _, tc := range cases {
		if got := RoleFromScopes(tc.scopes); got != tc.want {
			t.Fatalf("RoleFromScopes(%v) = %q, want %q", tc.scopes, got, tc.want)
		}
	}
}

func TestPickHighestRoleOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	all := []models.Role{models.RoleMember, models.RoleViewer, models.RoleReporter, models.RoleAdmin, models.RoleOwner, models.RoleNone}

	for i := 0; i < 100; i++ {
		n := rng.Intn(6)
		roles := make([]models.Role, n)
		for j := range roles {
			roles[j] = all[rng.Intn(len(all))]
		}
		reversed := make([]models.Role, n)
		for j := range roles {
			reversed[n-1-j] = roles[j]
		}
		if PickHighestRole(roles) != PickHighestRole(reversed) {
			t.Fatalf("order changed result for %v", roles)
		}
	}

	if PickHighestRole(nil) != models.RoleNone {
		t.Fatal("empty list must resolve to no role")
	}
}

func TestMonotonicityOnRandomTrees(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	roles := []models.Role{models.RoleMember, models.RoleViewer, models.RoleReporter, models.RoleAdmin, models.RoleOwner}

	for trial := 0; trial < 50; trial++ {
		n := 2 + rng.Intn(15)
		organizations := make([]models.Organization, n)
		for i := range organizations {
			parent := ""
			if i > 0 {
				parent = fmt.Sprintf("org-%d", rng.Intn(i))
			}
			organizations[i] = org(fmt.Sprintf("org-%d", i), parent)
		}
		m, err := BuildOrgMaps(organizations)
		if err != nil {
			t.Fatal(err)
		}

		grantedAt := fmt.Sprintf("org-%d", rng.Intn(n))
		granted := roles[rng.Intn(len(roles))]
		memberships := map[string]models.Role{grantedAt: granted}

		descendants := CollectDescendants(m.ChildrenByParent, []string{grantedAt})
		for _, o := range organizations {
			role := ResolveOrganizationRole(ResolveParams{
				OrganizationID:  o.ID,
				ParentByID:      m.ParentByID,
				MembershipByOrg: memberships,
			})
			if _, isDesc := descendants[o.ID]; isDesc {
				if Priority(role) < Priority(granted) {
					t.Fatalf("descendant %s of %s resolved below granted role: %q < %q", o.ID, grantedAt, role, granted)
				}
			} else if role != models.RoleNone {
				t.Fatalf("non-descendant %s resolved to %q", o.ID, role)
			}
		}
	}
}

func TestAccessibleOrganizations(t *testing.T) {
	tree := sampleTree()

	out, err := AccessibleOrganizations(tree,
		map[string]models.Role{"a": models.RoleAdmin},
		map[string][]string{"b1": {"reporting"}},
	)
	if err != nil {
		t.Fatal(err)
	}

	byID := map[string]AccessibleOrg{}
	for _, a := range out {
		byID[a.Organization.ID] = a
	}
	if len(byID) != 4 {
		t.Fatalf("expected a, a1, a2, b1 accessible, got %v", byID)
	}
	for _, id := range []string{"a", "a1", "a2"} {
		if byID[id].Role != models.RoleAdmin {
			t.Fatalf("%s role = %q, want admin", id, byID[id].Role)
		}
	}
	if byID["b1"].Role != models.RoleReporter {
		t.Fatalf("b1 role = %q, want reporter", byID["b1"].Role)
	}
	if len(byID["b1"].DelegatedScopes) != 1 || byID["b1"].DelegatedScopes[0] != "reporting" {
		t.Fatalf("b1 scopes = %v", byID["b1"].DelegatedScopes)
	}

	none, err := AccessibleOrganizations(tree, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if none != nil {
		t.Fatalf("no grants must yield no orgs, got %v", none)
	}
}
