package models

import "time"

type ActionCategory string

const (
	CategoryAuth     ActionCategory = "AUTH"
	CategoryAdmin    ActionCategory = "ADMIN"
	CategoryData     ActionCategory = "DATA"
	CategoryExport   ActionCategory = "EXPORT"
	CategorySecurity ActionCategory = "SECURITY"
)

// Change is a before/after pair for a single field.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

type Changes map[string]Change

// AuditEntryInput is what callers hand to the audit service after an
// auditable action. Everything except Action is optional.
type AuditEntryInput struct {
	Action         string         `json:"action"`
	ActionCategory ActionCategory `json:"action_category,omitempty"`
	ActorUserID    *string        `json:"actor_user_id,omitempty"`
	ActorOrgID     *string        `json:"actor_org_id,omitempty"`
	ActorIP        *string        `json:"actor_ip,omitempty"`
	ActorUserAgent *string        `json:"actor_user_agent,omitempty"`
	TargetType     *string        `json:"target_type,omitempty"`
	TargetID       *string        `json:"target_id,omitempty"`
	TargetOrgID    *string        `json:"target_org_id,omitempty"`
	Changes        Changes        `json:"changes,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	RequestID      string         `json:"request_id,omitempty"`
}

// AuditRow is a persisted, chain-bearing audit entry. Rows are insert-only:
// once written they are never updated or deleted, and EntryHash commits to
// every other field plus the previous row's EntryHash.
type AuditRow struct {
	ID             string         `json:"id"`
	OccurredAt     time.Time      `json:"occurred_at"`
	Action         string         `json:"action"`
	ActionCategory ActionCategory `json:"action_category"`
	ActorUserID    *string        `json:"actor_user_id"`
	ActorOrgID     *string        `json:"actor_org_id"`
	ActorIP        *string        `json:"actor_ip"`
	ActorUserAgent *string        `json:"actor_user_agent"`
	TargetType     *string        `json:"target_type"`
	TargetID       *string        `json:"target_id"`
	TargetOrgID    *string        `json:"target_org_id"`
	Changes        Changes        `json:"changes"`
	Metadata       map[string]any `json:"metadata"`
	RequestID      *string        `json:"request_id"`
	PrevHash       *string        `json:"prev_hash"`
	EntryHash      string         `json:"entry_hash"`
	CreatedAt      time.Time      `json:"created_at"`
}
