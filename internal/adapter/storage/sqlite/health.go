package sqlite

import (
	"context"
	"database/sql"
)

// HealthCheck implements ports.HealthChecker for the audit database.
type HealthCheck struct {
	db *sql.DB
}

func NewHealthCheck(db *sql.DB) *HealthCheck {
	return &HealthCheck{db: db}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

func (h *HealthCheck) Name() string {
	return "audit-sqlite"
}
