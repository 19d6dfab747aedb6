package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"patient-payments/internal/core/domain"
)

// AuditRepo implements ports.AuditStore on PostgreSQL. Sequences come from
// a global sequence, so keys never collide across writers.
type AuditRepo struct {
	pool Pool
}

func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Timestamp = entry.Timestamp.UTC().Truncate(time.Millisecond)

	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("encode audit details: %w", err)
	}

	query := `INSERT INTO audit_log (ts_ms, action, actor_id, client_ip, user_agent, details)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING seq`

	err = r.pool.QueryRow(ctx, query,
		entry.Timestamp.UnixMilli(), string(entry.Action), entry.ActorID,
		entry.Client.IP, entry.Client.UserAgent, detailsJSON,
	).Scan(&entry.Sequence)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("insert audit entry: %w", err)
	}
	return entry, nil
}

func (r *AuditRepo) Scan(ctx context.Context, filter domain.AuditFilter, after *domain.AuditKey, limit int) ([]domain.AuditEntry, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query, args := buildAuditQuery(filter, after, limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e           domain.AuditEntry
			tsMs        int64
			action      string
			detailsJSON []byte
		)
		if err := rows.Scan(&tsMs, &e.Sequence, &action, &e.ActorID, &e.Client.IP, &e.Client.UserAgent, &detailsJSON); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.Timestamp = time.UnixMilli(tsMs).UTC()
		e.Action = domain.AuditAction(action)
		if err := json.Unmarshal(detailsJSON, &e.Details); err != nil {
			return nil, fmt.Errorf("decode audit details: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return out, nil
}

func buildAuditQuery(filter domain.AuditFilter, after *domain.AuditKey, limit int) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	argIdx := 1
	next := func() int {
		n := argIdx
		argIdx++
		return n
	}

	if after != nil {
		a, b := next(), next()
		conditions = append(conditions, fmt.Sprintf("(ts_ms, seq) > ($%d, $%d)", a, b))
		args = append(args, after.TimestampMs, after.Sequence)
	}
	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", next()))
		args = append(args, string(filter.Action))
	}
	if filter.ActorID != "" {
		conditions = append(conditions, fmt.Sprintf("actor_id = $%d", next()))
		args = append(args, filter.ActorID)
	}
	if filter.IP != "" {
		conditions = append(conditions, fmt.Sprintf("client_ip = $%d", next()))
		args = append(args, filter.IP)
	}
	if filter.UserAgent != "" {
		conditions = append(conditions, fmt.Sprintf("user_agent = $%d", next()))
		args = append(args, filter.UserAgent)
	}
	if dr := filter.DateRange; dr != nil {
		if !dr.Start.IsZero() {
			conditions = append(conditions, fmt.Sprintf("ts_ms >= $%d", next()))
			args = append(args, dr.Start.UnixMilli())
		}
		if !dr.End.IsZero() {
			conditions = append(conditions, fmt.Sprintf("ts_ms <= $%d", next()))
			args = append(args, dr.End.UnixMilli())
		}
	}

	keys := make([]string, 0, len(filter.Details))
	for k := range filter.Details {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		a, b := next(), next()
		conditions = append(conditions, fmt.Sprintf("details->>$%d = $%d", a, b))
		args = append(args, k, filter.Details[k])
	}

	query := "SELECT ts_ms, seq, action, actor_id, client_ip, user_agent, details FROM audit_log"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY ts_ms, seq"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", next())
		args = append(args, limit)
	}
	return query, args
}
