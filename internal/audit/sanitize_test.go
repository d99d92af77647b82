package audit

import (
	"reflect"
	"regexp"
	"testing"

	"github.com/roundupgames/audit-backend/internal/models"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestSanitizeChangesRedactsDenyList(t *testing.T) {
	changes := models.Changes{
		"password":      {Old: "old-pass", New: "new-pass"},
		"token":         {Old: "t1", New: "t2"},
		"mfaSecret":     {Old: "s1", New: "s2"},
		"secret":        {Old: "x", New: "y"},
		"token.refresh": {Old: "r1", New: "r2"},
		"displayName":   {Old: "Ada", New: "Grace"},
	}
	out := SanitizeChanges(changes)

	for _, field := range []string{"password", "token", "mfaSecret", "secret", "token.refresh"} {
		ch := out[field]
		if ch.Old != Redacted || ch.New != Redacted {
			t.Fatalf("%s not redacted: %+v", field, ch)
		}
	}
	if out["displayName"].Old != "Ada" || out["displayName"].New != "Grace" {
		t.Fatalf("displayName altered: %+v", out["displayName"])
	}
}

func TestSanitizeChangesHashesPIIFields(t *testing.T) {
	changes := models.Changes{
		"phone":                  {Old: "555-0100", New: "555-0199"},
		"dateOfBirth":            {Old: "1990-01-01", New: "1990-01-02"},
		"emergencyContact.phone": {Old: "555-0000", New: "555-0001"},
	}
	out := SanitizeChanges(changes)
	for field, ch := range out {
		oldHash, ok := ch.Old.(string)
		if !ok || !hexDigest.MatchString(oldHash) {
			t.Fatalf("%s old side not hashed: %v", field, ch.Old)
		}
		newHash := ch.New.(string)
		if !hexDigest.MatchString(newHash) {
			t.Fatalf("%s new side not hashed: %v", field, ch.New)
		}
		if oldHash == newHash {
			t.Fatalf("%s: distinct values hashed identically", field)
		}
	}
	if out["phone"].Old != HashValue("555-0100") {
		t.Fatal("hash is not the digest of the stable form")
	}
}

func TestSanitizeChangesDeterministicAndIdempotent(t *testing.T) {
	changes := models.Changes{
		"password": {Old: "a", New: "b"},
		"email":    {Old: "a@x.io", New: "b@x.io"},
	}
	first := SanitizeChanges(changes)
	second := SanitizeChanges(changes)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("sanitization not deterministic: %+v vs %+v", first, second)
	}
	again := SanitizeChanges(first)
	if !reflect.DeepEqual(first, again) {
		t.Fatalf("sanitization not idempotent: %+v vs %+v", first, again)
	}
}

func TestSanitizeChangesNilPassthrough(t *testing.T) {
	if out := SanitizeChanges(nil); out != nil {
		t.Fatalf("nil changes must stay nil, got %+v", out)
	}
}

func TestDiffDropsEqualFieldsAndSanitizes(t *testing.T) {
	before := map[string]any{"name": "Ada", "password": "old", "city": "Ottawa"}
	after := map[string]any{"name": "Ada", "password": "new", "city": "Toronto", "bio": "hi"}

	changes := Diff(before, after)

	if _, ok := changes["name"]; ok {
		t.Fatal("unchanged field must not appear in diff")
	}
	if ch := changes["password"]; ch.Old != Redacted || ch.New != Redacted {
		t.Fatalf("password not redacted in diff: %+v", ch)
	}
	if ch := changes["city"]; ch.Old != "Ottawa" || ch.New != "Toronto" {
		t.Fatalf("city diff wrong: %+v", ch)
	}
	if ch := changes["bio"]; ch.Old != nil || ch.New != "hi" {
		t.Fatalf("added field diff wrong: %+v", ch)
	}
}

func TestInferCategory(t *testing.T) {
	cases := map[string]models.ActionCategory{
		"auth.login":          models.CategoryAuth,
		"admin.role_granted":  models.CategoryAdmin,
		"data.member_updated": models.CategoryData,
		"export.csv":          models.CategoryExport,
		"security.alert":      models.CategorySecurity,
		"billing.charged":     models.CategoryData,
		"LOGIN":               models.CategoryData,
	}
	for action, want := range cases {
		if got := InferCategory(action); got != want {
			t.Fatalf("InferCategory(%q) = %s, want %s", action, got, want)
		}
	}
}
