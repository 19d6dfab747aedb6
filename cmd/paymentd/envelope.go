package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"patient-payments/internal/service"

	"github.com/spf13/cobra"
)

func newEnvelopeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "envelope",
		Short: "Encrypt or decrypt card-data envelopes with the configured secret",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "encrypt [plaintext]",
		Short: "Encrypt plaintext (argument or stdin) into a base64 envelope",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			c, secret, err := envelopeCipher()
			if err != nil {
				return err
			}
			env, err := c.Encrypt([]byte(input), secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), env)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "decrypt [envelope]",
		Short: "Decrypt a base64 envelope (argument or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			c, secret, err := envelopeCipher()
			if err != nil {
				return err
			}
			plain, err := c.Decrypt(strings.TrimSpace(input), secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(plain))
			return nil
		},
	})
	return cmd
}

func envelopeCipher() (*service.AESGCMCipher, string, error) {
	if cfg.Crypto.Secret == "" {
		return nil, "", errors.New("crypto.secret is not configured")
	}
	return service.NewAESGCMCipher(service.NewPBKDF2KeyDeriver(cfg.Crypto.Iterations)), cfg.Crypto.Secret, nil
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
