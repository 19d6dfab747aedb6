package service

import (
	"context"
	"iter"
	"time"

	"patient-payments/internal/core/domain"
	"patient-payments/internal/core/ports"
	"patient-payments/pkg/apperror"

	"github.com/rs/zerolog"
)

// DefaultAuditPageSize is the number of entries fetched per store round trip
// while iterating a query.
const DefaultAuditPageSize = 200

// AuditTrailService implements ports.AuditTrail over a single long-lived
// ports.AuditStore. The store is the only copy of the log.
type AuditTrailService struct {
	store    ports.AuditStore
	pageSize int
	log      zerolog.Logger
	now      func() time.Time
}

// NewAuditTrail creates the audit trail. pageSize <= 0 uses
// DefaultAuditPageSize.
func NewAuditTrail(store ports.AuditStore, pageSize int, log zerolog.Logger) *AuditTrailService {
	if pageSize <= 0 {
		pageSize = DefaultAuditPageSize
	}
	return &AuditTrailService{
		store:    store,
		pageSize: pageSize,
		log:      log,
		now:      time.Now,
	}
}

// Append records entry synchronously. A persistence failure is logged as
// AUD_001 and swallowed so the audited operation keeps its outcome.
// Missing actor and client fields are taken from ctx.
func (s *AuditTrailService) Append(ctx context.Context, entry domain.AuditEntry) {
	ctx = context.WithoutCancel(ctx)

	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	entry.Timestamp = entry.Timestamp.UTC().Truncate(time.Millisecond)
	if entry.ActorID == "" {
		entry.ActorID = domain.ActorFromContext(ctx)
	}
	client := domain.ClientFromContext(ctx)
	if entry.Client.IP == "" {
		entry.Client.IP = client.IP
	}
	if entry.Client.UserAgent == "" {
		entry.Client.UserAgent = client.UserAgent
	}

	stored, err := s.store.Append(ctx, entry)
	if err != nil {
		appErr := apperror.ErrAuditPersistence(err)
		s.log.Error().
			Err(appErr).
			Str("error_code", appErr.Code).
			Str("action", string(entry.Action)).
			Str("actor_id", entry.ActorID).
			Msg("audit entry not persisted")
		return
	}

	s.log.Debug().
		Str("action", string(stored.Action)).
		Str("key", stored.Key().String()).
		Msg("audit entry recorded")
}

// Query yields entries matching filter in (timestamp, sequence) order.
// Pages are fetched lazily; each page is fully read before the first of its
// entries is yielded, so consumers may append while iterating.
func (s *AuditTrailService) Query(ctx context.Context, filter domain.AuditFilter) iter.Seq2[domain.AuditEntry, error] {
	return func(yield func(domain.AuditEntry, error) bool) {
		if err := filter.Validate(); err != nil {
			yield(domain.AuditEntry{}, apperror.Validation(err.Error()))
			return
		}

		var after *domain.AuditKey
		for {
			page, err := s.store.Scan(ctx, filter, after, s.pageSize)
			if err != nil {
				yield(domain.AuditEntry{}, apperror.ErrDatabaseError(err))
				return
			}
			for _, e := range page {
				if !yield(e, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			last := page[len(page)-1].Key()
			after = &last
		}
	}
}
