package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/roundupgames/audit-backend/internal/audit"
	"github.com/roundupgames/audit-backend/internal/metrics"
	"github.com/roundupgames/audit-backend/internal/models"
	repo "github.com/roundupgames/audit-backend/internal/repository"
	"github.com/roundupgames/audit-backend/internal/worker"
)

var ErrMissingAction = errors.New("audit: action is required")

// AuditService appends rows to the tamper-evident chain and verifies it.
//
// Appends are serialized: a process mutex orders writers in this replica,
// and the repository takes the chain's advisory lock inside the insert
// transaction and rejects rows that no longer link to the newest entry
// hash. On such a rejection Record re-seeds its basis from storage and
// rebuilds the row, so replicas racing on the same head converge instead
// of forking. The basis only advances after a successful insert, so any
// other failure leaves the chain exactly as it was and the caller may
// retry.
type AuditService struct {
	repo repo.AuditLogs
	wp   *worker.Pool

	mu       sync.Mutex
	seeded   bool
	prevHash *string
}

func NewAuditService(r repo.AuditLogs, wp *worker.Pool) *AuditService {
	return &AuditService{repo: r, wp: wp}
}

// Record sanitizes, hashes and persists one audit entry, threading the
// previous row's entry hash into the new row.
func (s *AuditService) Record(ctx context.Context, in models.AuditEntryInput) (models.AuditRow, error) {
	if in.Action == "" {
		return models.AuditRow{}, ErrMissingAction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seeded {
		prev, err := s.repo.LastEntryHash(ctx)
		if err != nil {
			return models.AuditRow{}, err
		}
		s.prevHash = prev
		s.seeded = true
	}

	row := s.buildRow(in)
	for {
		row.PrevHash = s.prevHash
		row.EntryHash = audit.HashRow(row, s.prevHash)

		err := s.repo.Append(ctx, row)
		if err == nil {
			break
		}
		// Losing the head race means another replica committed and the
		// chain advanced, so progress is guaranteed; rebuild the row
		// against the new head. Context cancellation bounds the loop.
		if errors.Is(err, repo.ErrStaleChainHead) {
			prev, seedErr := s.repo.LastEntryHash(ctx)
			if seedErr != nil {
				metrics.AuditAppendFailures.Inc()
				return models.AuditRow{}, seedErr
			}
			s.prevHash = prev
			continue
		}
		metrics.AuditAppendFailures.Inc()
		return models.AuditRow{}, err
	}

	hash := row.EntryHash
	s.prevHash = &hash
	metrics.AuditEntriesTotal.WithLabelValues(string(row.ActionCategory)).Inc()
	return row, nil
}

func (s *AuditService) buildRow(in models.AuditEntryInput) models.AuditRow {
	id := in.RequestID
	if id == "" {
		id = uuid.NewString()
	}
	category := in.ActionCategory
	if category == "" {
		category = audit.InferCategory(in.Action)
	}
	var requestID *string
	if in.RequestID != "" {
		rid := in.RequestID
		requestID = &rid
	}
	metadata := in.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return models.AuditRow{
		ID:             id,
		OccurredAt:     audit.TruncateOccurredAt(time.Now()),
		Action:         in.Action,
		ActionCategory: category,
		ActorUserID:    in.ActorUserID,
		ActorOrgID:     in.ActorOrgID,
		ActorIP:        in.ActorIP,
		ActorUserAgent: in.ActorUserAgent,
		TargetType:     in.TargetType,
		TargetID:       in.TargetID,
		TargetOrgID:    in.TargetOrgID,
		Changes:        audit.SanitizeChanges(in.Changes),
		Metadata:       metadata,
		RequestID:      requestID,
	}
}

// RecordAsync hands the append to the worker pool so request handlers do
// not block on the chain lock. Errors are logged, not surfaced.
func (s *AuditService) RecordAsync(in models.AuditEntryInput) {
	s.wp.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.Record(ctx, in); err != nil {
			slog.Error("audit append", "action", in.Action, "err", err)
		}
	})
}

func (s *AuditService) RecordAuth(ctx context.Context, in models.AuditEntryInput) (models.AuditRow, error) {
	in.ActionCategory = models.CategoryAuth
	return s.Record(ctx, in)
}

func (s *AuditService) RecordAdmin(ctx context.Context, in models.AuditEntryInput) (models.AuditRow, error) {
	in.ActionCategory = models.CategoryAdmin
	return s.Record(ctx, in)
}

func (s *AuditService) RecordData(ctx context.Context, in models.AuditEntryInput) (models.AuditRow, error) {
	in.ActionCategory = models.CategoryData
	return s.Record(ctx, in)
}

func (s *AuditService) RecordExport(ctx context.Context, in models.AuditEntryInput) (models.AuditRow, error) {
	in.ActionCategory = models.CategoryExport
	return s.Record(ctx, in)
}

func (s *AuditService) RecordSecurity(ctx context.Context, in models.AuditEntryInput) (models.AuditRow, error) {
	in.ActionCategory = models.CategorySecurity
	return s.Record(ctx, in)
}

// Verify reads the whole chain in insertion order and checks every link.
func (s *AuditService) Verify(ctx context.Context) (audit.VerifyResult, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return audit.VerifyResult{}, err
	}
	result := audit.VerifyHashChainRows(rows)

	metrics.VerifyRuns.Inc()
	metrics.ChainLength.Set(float64(len(rows)))
	if !result.Valid {
		metrics.VerifyFailures.Inc()
	}
	return result, nil
}

func (s *AuditService) List(ctx context.Context, limit, offset int) ([]models.AuditRow, error) {
	return s.repo.List(ctx, limit, offset)
}
