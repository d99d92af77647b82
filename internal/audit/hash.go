package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/roundupgames/audit-backend/internal/models"
)

// occurredAtLayout is RFC3339 UTC with millisecond precision. The builder
// truncates timestamps to the millisecond before hashing so that a row read
// back from Postgres (microsecond resolution) hashes to the same value.
const occurredAtLayout = "2006-01-02T15:04:05.000Z"

// HashValue returns the SHA-256 hex digest of the stable form of v.
func HashValue(v any) string {
	sum := sha256.Sum256([]byte(StableStringify(v)))
	return hex.EncodeToString(sum[:])
}

// RowPayload builds the canonical hash input for a row: every stored field
// except EntryHash and CreatedAt, plus the hash of the true predecessor.
func RowPayload(row models.AuditRow, prevHash *string) map[string]any {
	return map[string]any{
		"id":             row.ID,
		"occurredAt":     row.OccurredAt.UTC().Format(occurredAtLayout),
		"action":         row.Action,
		"actionCategory": string(row.ActionCategory),
		"actorUserId":    optional(row.ActorUserID),
		"actorOrgId":     optional(row.ActorOrgID),
		"actorIp":        optional(row.ActorIP),
		"actorUserAgent": optional(row.ActorUserAgent),
		"targetType":     optional(row.TargetType),
		"targetId":       optional(row.TargetID),
		"targetOrgId":    optional(row.TargetOrgID),
		"changes":        changesValue(row.Changes),
		"metadata":       metadataValue(row.Metadata),
		"requestId":      optional(row.RequestID),
		"prevHash":       optional(prevHash),
	}
}

// HashRow computes the entry hash a row must carry given its predecessor's
// entry hash (nil for the first row of the chain).
func HashRow(row models.AuditRow, prevHash *string) string {
	return HashValue(RowPayload(row, prevHash))
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func changesValue(changes models.Changes) any {
	if changes == nil {
		return nil
	}
	out := make(map[string]any, len(changes))
	for field, ch := range changes {
		out[field] = map[string]any{"old": ch.Old, "new": ch.New}
	}
	return out
}

func metadataValue(metadata map[string]any) map[string]any {
	if metadata == nil {
		return map[string]any{}
	}
	return metadata
}

// TruncateOccurredAt clamps a timestamp to the precision the chain hashes at.
func TruncateOccurredAt(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
