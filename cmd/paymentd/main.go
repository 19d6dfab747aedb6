package main

import (
	"fmt"
	"os"

	"patient-payments/config"
	"patient-payments/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
	log        zerolog.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "paymentd",
		Short:         "Patient portal payment service",
		Long:          "Card tokenization, payment processing and the payment audit trail for the patient portal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
			log = logger.New(cfg.Log.Level, cfg.Log.Pretty)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file path (default: ./config.yaml or ./config/config.yaml)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newAuditCmd())
	root.AddCommand(newEnvelopeCmd())
	root.AddCommand(newTokenCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "paymentd:", err)
		os.Exit(1)
	}
}
