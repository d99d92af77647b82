package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/roundupgames/audit-backend/internal/models"
	"github.com/roundupgames/audit-backend/internal/repository"
)

// chainLockID is the advisory lock key serializing chain appends. Every
// writer takes it inside the insert transaction and then re-checks the
// chain head, so concurrent replicas cannot commit two rows against the
// same prev_hash.
const chainLockID int64 = 0x61756469 // "audi"

type auditLogsRepo struct{ pool *pgxpool.Pool }

const auditColumns = `id, occurred_at, action, action_category,
	actor_user_id, actor_org_id, actor_ip, actor_user_agent,
	target_type, target_id, target_org_id,
	changes, metadata, request_id, prev_hash, entry_hash, created_at`

func (r *auditLogsRepo) Append(ctx context.Context, row models.AuditRow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, chainLockID); err != nil {
		return err
	}

	// The caller hashed against a head it read before taking the lock.
	// If another replica committed in between, the row no longer links
	// and must be rebuilt against the new head.
	var head string
	err = tx.QueryRow(ctx,
		`SELECT entry_hash FROM audit_logs ORDER BY seq DESC LIMIT 1`,
	).Scan(&head)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if row.PrevHash != nil {
			return repository.ErrStaleChainHead
		}
	case err != nil:
		return err
	default:
		if row.PrevHash == nil || *row.PrevHash != head {
			return repository.ErrStaleChainHead
		}
	}

	_, err = tx.Exec(ctx, `INSERT INTO audit_logs (
		id, occurred_at, action, action_category,
		actor_user_id, actor_org_id, actor_ip, actor_user_agent,
		target_type, target_id, target_org_id,
		changes, metadata, request_id, prev_hash, entry_hash
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		row.ID, row.OccurredAt, row.Action, string(row.ActionCategory),
		row.ActorUserID, row.ActorOrgID, row.ActorIP, row.ActorUserAgent,
		row.TargetType, row.TargetID, row.TargetOrgID,
		row.Changes, row.Metadata, row.RequestID, row.PrevHash, row.EntryHash,
	)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *auditLogsRepo) LastEntryHash(ctx context.Context) (*string, error) {
	var hash string
	err := r.pool.QueryRow(ctx,
		`SELECT entry_hash FROM audit_logs ORDER BY seq DESC LIMIT 1`,
	).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hash, nil
}

func (r *auditLogsRepo) ListAll(ctx context.Context) ([]models.AuditRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_logs ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

func (r *auditLogsRepo) List(ctx context.Context, limit, offset int) ([]models.AuditRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_logs ORDER BY seq DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

func scanAuditRows(rows pgx.Rows) ([]models.AuditRow, error) {
	var out []models.AuditRow
	for rows.Next() {
		var row models.AuditRow
		var category string
		if err := rows.Scan(
			&row.ID, &row.OccurredAt, &row.Action, &category,
			&row.ActorUserID, &row.ActorOrgID, &row.ActorIP, &row.ActorUserAgent,
			&row.TargetType, &row.TargetID, &row.TargetOrgID,
			&row.Changes, &row.Metadata, &row.RequestID, &row.PrevHash, &row.EntryHash, &row.CreatedAt,
		); err != nil {
			return nil, err
		}
		row.ActionCategory = models.ActionCategory(category)
		out = append(out, row)
	}
	return out, rows.Err()
}
