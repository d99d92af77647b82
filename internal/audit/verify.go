package audit

import "github.com/roundupgames/audit-backend/internal/models"

// VerifyResult reports the outcome of a chain verification pass.
type VerifyResult struct {
	Valid      bool     `json:"valid"`
	InvalidIDs []string `json:"invalidIds"`
}

// VerifyHashChainRows walks rows in insertion order and recomputes each
// entry hash against the true predecessor's stored hash. A row is flagged
// when its stored prevHash does not match the predecessor's entryHash, or
// when its stored entryHash does not match the recomputation. This catches
// modification, insertion, deletion and reordering. The function never
// fails: tampering is reported through the result, not an error.
func VerifyHashChainRows(rows []models.AuditRow) VerifyResult {
	invalid := []string{}
	var prevHash *string

	for _, row := range rows {
		expected := HashRow(row, prevHash)
		if !hashEqual(row.PrevHash, prevHash) || row.EntryHash != expected {
			invalid = append(invalid, row.ID)
		}
		h := row.EntryHash
		prevHash = &h
	}

	return VerifyResult{Valid: len(invalid) == 0, InvalidIDs: invalid}
}

func hashEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
