package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"patient-payments/internal/adapter/gateway"
	httpHandler "patient-payments/internal/adapter/http/handler"
	"patient-payments/internal/adapter/http/middleware"
	"patient-payments/internal/service"
	"patient-payments/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the payment HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Str("audit", cfg.Audit.Driver).
		Msg("Starting patient payment service")

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	trail := service.NewAuditTrail(st.audit, cfg.Audit.PageSize, logger.Component(log, "audit"))
	cipher := service.NewAESGCMCipher(service.NewPBKDF2KeyDeriver(cfg.Crypto.Iterations))
	validator := service.NewCardValidator(service.FirstDigitClassifier{}, nil)
	processor := gateway.NewSimulated(cfg.Gateway.Latency, cfg.Gateway.FailureRate, logger.Component(log, "gateway"))

	paymentSvc := service.NewPaymentService(
		validator,
		cipher,
		trail,
		processor,
		st.methods,
		st.txns,
		cfg.Crypto.Secret,
		logger.Component(log, "payments"),
	)
	billingSvc := service.NewBillingService(st.billing, logger.Component(log, "billing"))
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PaymentSvc:     paymentSvc,
		BillingSvc:     billingSvc,
		Audit:          trail,
		TokenSvc:       tokenSvc,
		RateLimitStore: st.rateLimit,
		RateLimit:      middleware.RateLimitRule{Limit: cfg.RateLimit.Limit, Window: cfg.RateLimit.Window},
		HealthCheckers: st.health,
		Logger:         logger.Component(log, "http"),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}
