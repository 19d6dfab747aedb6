package postgres

import (
	"context"
	"fmt"
)

// requiredTables are created by EnsureSchema; without them every payment
// request fails, so the pool alone answering is not enough.
var requiredTables = []string{"payment_methods", "transactions", "billing_records", "audit_log"}

const schemaProbeSQL = `SELECT count(*) FROM pg_catalog.pg_tables
WHERE schemaname = current_schema() AND tablename = ANY($1)`

// HealthCheck implements ports.HealthChecker for PostgreSQL.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping fails when the database is unreachable or the schema is incomplete.
func (h *HealthCheck) Ping(ctx context.Context) error {
	var present int
	if err := h.pool.QueryRow(ctx, schemaProbeSQL, requiredTables).Scan(&present); err != nil {
		return fmt.Errorf("probing schema: %w", err)
	}
	if present != len(requiredTables) {
		return fmt.Errorf("schema incomplete: %d of %d tables present", present, len(requiredTables))
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "postgresql"
}
