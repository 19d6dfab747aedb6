package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"patient-payments/internal/adapter/storage/memory"
	pgStorage "patient-payments/internal/adapter/storage/postgres"
	sqliteStorage "patient-payments/internal/adapter/storage/sqlite"
	"patient-payments/internal/core/domain"
	"patient-payments/internal/core/ports"
	"patient-payments/internal/service"
	"patient-payments/pkg/logger"

	"github.com/spf13/cobra"
)

type auditQueryFlags struct {
	action        string
	actor         string
	ip            string
	userAgent     string
	transactionID string
	from          string
	to            string
	limit         int
}

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and maintain the payment audit trail",
	}
	cmd.AddCommand(newAuditQueryCmd())
	cmd.AddCommand(newAuditMigrateCmd())
	return cmd
}

func newAuditQueryCmd() *cobra.Command {
	var f auditQueryFlags
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print matching audit entries as JSON lines, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := f.toFilter()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, closeStore, err := openAuditStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			trail := service.NewAuditTrail(store, cfg.Audit.PageSize, logger.Component(log, "audit"))
			return writeAuditEntries(ctx, cmd.OutOrStdout(), trail, filter, f.limit)
		},
	}
	cmd.Flags().StringVar(&f.action, "action", "", "Action (ADD_PAYMENT_METHOD or PROCESS_PAYMENT)")
	cmd.Flags().StringVar(&f.actor, "actor", "", "Actor ID")
	cmd.Flags().StringVar(&f.ip, "ip", "", "Client IP address")
	cmd.Flags().StringVar(&f.userAgent, "user-agent", "", "Client user agent")
	cmd.Flags().StringVar(&f.transactionID, "transaction-id", "", "Transaction ID recorded in the entry details")
	cmd.Flags().StringVar(&f.from, "from", "", "Inclusive lower bound (RFC3339)")
	cmd.Flags().StringVar(&f.to, "to", "", "Inclusive upper bound (RFC3339)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Stop after this many entries (0 = all)")
	return cmd
}

func (f auditQueryFlags) toFilter() (domain.AuditFilter, error) {
	filter := domain.AuditFilter{
		Action:    domain.AuditAction(f.action),
		ActorID:   f.actor,
		IP:        f.ip,
		UserAgent: f.userAgent,
	}
	if f.transactionID != "" {
		filter.Details = map[string]string{"transactionId": f.transactionID}
	}

	if filter.Action != "" && !filter.Action.Valid() {
		return filter, fmt.Errorf("unknown action %q", f.action)
	}
	if f.from != "" || f.to != "" {
		var r domain.DateRange
		var err error
		if f.from != "" {
			if r.Start, err = time.Parse(time.RFC3339, f.from); err != nil {
				return filter, fmt.Errorf("--from: %w", err)
			}
		}
		if f.to != "" {
			if r.End, err = time.Parse(time.RFC3339, f.to); err != nil {
				return filter, fmt.Errorf("--to: %w", err)
			}
		}
		filter.DateRange = &r
	}
	if f.limit < 0 {
		return filter, errors.New("--limit must not be negative")
	}
	return filter, filter.Validate()
}

func writeAuditEntries(ctx context.Context, w io.Writer, trail ports.AuditTrail, filter domain.AuditFilter, limit int) error {
	enc := json.NewEncoder(w)
	n := 0
	for entry, err := range trail.Query(ctx, filter) {
		if err != nil {
			return err
		}
		if err := enc.Encode(entry); err != nil {
			return err
		}
		n++
		if limit > 0 && n >= limit {
			break
		}
	}
	return nil
}

// openAuditStore opens only the audit backend, without the payment stores.
func openAuditStore(ctx context.Context) (ports.AuditStore, func(), error) {
	switch cfg.Audit.Driver {
	case "sqlite":
		db, err := sqliteStorage.Open(ctx, cfg.Audit.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open audit db: %w", err)
		}
		writer := sqliteStorage.NewWorker(db)
		return sqliteStorage.NewAuditStore(db, writer), func() {
			writer.Close()
			_ = db.Close()
		}, nil
	case "postgres":
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, err
		}
		return pgStorage.NewAuditRepo(pool), pool.Close, nil
	default:
		return memory.NewAuditStore(), func() {}, nil
	}
}

func newAuditMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending audit schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			switch cfg.Audit.Driver {
			case "sqlite":
				db, err := sqliteStorage.Open(ctx, cfg.Audit.SQLitePath)
				if err != nil {
					return fmt.Errorf("open audit db: %w", err)
				}
				defer db.Close()
				versions, err := sqliteStorage.AppliedVersions(ctx, db)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: applied migrations %v\n", cfg.Audit.SQLitePath, versions)
			case "postgres":
				pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
					return err
				}
				fmt.Fprintln(out, "postgres: schema up to date")
			default:
				fmt.Fprintf(out, "audit.driver=%s has no schema\n", cfg.Audit.Driver)
			}
			return nil
		},
	}
}
