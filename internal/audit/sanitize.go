package audit

import (
	"strings"

	"github.com/roundupgames/audit-backend/internal/models"
)

// Redacted replaces both sides of any change touching a credential field.
const Redacted = "[REDACTED]"

// redactFields are never stored, not even hashed. A field matches on exact
// name or dotted prefix (e.g. "token.refresh").
var redactFields = []string{"password", "secret", "token", "mfaSecret"}

// hashFields hold PII that must stay comparable across entries without being
// readable: values are replaced with their SHA-256 digest.
var hashFields = []string{"dateOfBirth", "phone", "emergencyContact.phone"}

func fieldMatches(field string, list []string) bool {
	for _, name := range list {
		if field == name || strings.HasPrefix(field, name+".") {
			return true
		}
	}
	return false
}

// SanitizeChanges redacts credential-bearing fields and hashes PII fields in
// a before/after change set. Nil input passes through unchanged. The function
// is pure and deterministic; sanitizing already-redacted output is a no-op.
func SanitizeChanges(changes models.Changes) models.Changes {
	if changes == nil {
		return nil
	}
	out := make(models.Changes, len(changes))
	for field, ch := range changes {
		out[field] = models.Change{
			Old: sanitizeValue(field, ch.Old),
			New: sanitizeValue(field, ch.New),
		}
	}
	return out
}

func sanitizeValue(field string, v any) any {
	if fieldMatches(field, redactFields) {
		return Redacted
	}
	if fieldMatches(field, hashFields) {
		return HashValue(v)
	}
	return normalize(v)
}

// Diff builds a sanitized field-wise change set between two snapshots.
// Fields equal under the stable form are dropped.
func Diff(before, after map[string]any) models.Changes {
	changes := models.Changes{}
	seen := map[string]struct{}{}
	for key := range before {
		seen[key] = struct{}{}
	}
	for key := range after {
		seen[key] = struct{}{}
	}
	for key := range seen {
		oldValue, newValue := before[key], after[key]
		if StableStringify(oldValue) == StableStringify(newValue) {
			continue
		}
		changes[key] = models.Change{Old: normalize(oldValue), New: normalize(newValue)}
	}
	return SanitizeChanges(changes)
}
