package main

import (
	"context"
	"errors"
	"fmt"

	"patient-payments/config"
	"patient-payments/internal/adapter/storage/memory"
	pgStorage "patient-payments/internal/adapter/storage/postgres"
	redisStorage "patient-payments/internal/adapter/storage/redis"
	sqliteStorage "patient-payments/internal/adapter/storage/sqlite"
	"patient-payments/internal/core/ports"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// stores is every backend the service needs, built from config.
type stores struct {
	methods   ports.PaymentMethodRepository
	txns      ports.TransactionRepository
	billing   ports.BillingRepository
	audit     ports.AuditStore
	rateLimit ports.RateLimitStore
	health    []ports.HealthChecker
	closers   []func()
}

// Close releases backends in reverse order of opening.
func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *stores, err error) {
	s := &stores{}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	var pool *pgxpool.Pool
	if cfg.NeedsPostgres() {
		pool, err = pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		if err = pgStorage.EnsureSchema(ctx, pool); err != nil {
			return nil, err
		}
		s.health = append(s.health, pgStorage.NewHealthCheck(pool))
	}

	switch cfg.Storage.Driver {
	case "postgres":
		s.methods = pgStorage.NewPaymentMethodRepo(pool)
		s.txns = pgStorage.NewTransactionRepo(pool)
		s.billing = pgStorage.NewBillingRepo(pool)
	case "memory":
		log.Warn().Msg("storage.driver=memory: payment methods and transactions are lost on exit")
		s.methods = memory.NewPaymentMethodStore()
		s.txns = memory.NewTransactionStore()
		s.billing = memory.NewBillingStore()
	default:
		return nil, fmt.Errorf("unknown storage.driver %q", cfg.Storage.Driver)
	}

	if err = s.openAudit(ctx, cfg, pool, log); err != nil {
		return nil, err
	}

	s.openRateLimit(ctx, cfg, log)
	return s, nil
}

func (s *stores) openAudit(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, log zerolog.Logger) error {
	switch cfg.Audit.Driver {
	case "sqlite":
		db, err := sqliteStorage.Open(ctx, cfg.Audit.SQLitePath)
		if err != nil {
			return fmt.Errorf("open audit db: %w", err)
		}
		writer := sqliteStorage.NewWorker(db)
		s.closers = append(s.closers, func() { _ = db.Close() }, writer.Close)
		s.audit = sqliteStorage.NewAuditStore(db, writer)
		s.health = append(s.health, sqliteStorage.NewHealthCheck(db))
		log.Info().Str("path", cfg.Audit.SQLitePath).Msg("SQLite audit store opened")
	case "postgres":
		if pool == nil {
			return errors.New("audit.driver=postgres requires a database pool")
		}
		s.audit = pgStorage.NewAuditRepo(pool)
	case "memory":
		log.Warn().Msg("audit.driver=memory: audit trail is lost on exit")
		s.audit = memory.NewAuditStore()
	default:
		return fmt.Errorf("unknown audit.driver %q", cfg.Audit.Driver)
	}
	return nil
}

// openRateLimit prefers Redis so limits hold across instances, and falls
// back to the in-process limiter when Redis is unreachable.
func (s *stores) openRateLimit(ctx context.Context, cfg *config.Config, log zerolog.Logger) {
	if !cfg.RateLimit.Enabled {
		return
	}

	client, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, rate limiting per instance")
		s.rateLimit = memory.NewRateLimitStore()
		return
	}
	s.closers = append(s.closers, func() { _ = client.Close() })
	s.rateLimit = redisStorage.NewRateLimitStore(client)
	s.health = append(s.health, redisStorage.NewHealthCheck(client))
}
