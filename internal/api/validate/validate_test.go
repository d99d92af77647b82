package validate

import "testing"

func TestRequired(t *testing.T) {
	if ef := Required("name", "value"); ef != nil {
		t.Fatalf("non-empty value flagged: %+v", ef)
	}
	for _, v := range []string{"", "   ", "\t"} {
		ef := Required("name", v)
		if ef == nil {
			t.Fatalf("blank value %q not flagged", v)
		}
		if ef.Field != "name" || ef.Msg != "required" {
			t.Fatalf("unexpected error: %+v", ef)
		}
	}
}

func TestOneOf(t *testing.T) {
	if ef := OneOf("role", "admin", "admin", "viewer"); ef != nil {
		t.Fatalf("allowed value flagged: %+v", ef)
	}
	// Empty is not OneOf's concern; Required covers it.
	if ef := OneOf("role", "", "admin", "viewer"); ef != nil {
		t.Fatalf("empty value flagged: %+v", ef)
	}
	ef := OneOf("role", "superuser", "admin", "viewer")
	if ef == nil {
		t.Fatal("disallowed value not flagged")
	}
	if ef.Field != "role" {
		t.Fatalf("unexpected field: %q", ef.Field)
	}
}

func TestErrsJoinsMessages(t *testing.T) {
	errs := Errs{
		{Field: "user_id", Msg: "required"},
		{Field: "role", Msg: "must be one of admin, viewer"},
	}
	want := "user_id: required; role: must be one of admin, viewer"
	if got := errs.Error(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
