package cmd

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/simpleit/sitepilot/internal/mail"
)

// smtpCmd checks the relay credentials and optionally sends a test email.
var smtpCmd = &cobra.Command{
	Use:   "smtp-test",
	Short: "verify the SMTP relay and send a test email",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if !cfg.SMTP.Configured() {
			return errors.New("SMTP2GO_USERNAME and SMTP2GO_PASSWORD must be set")
		}
		ctx := cmd.Context()

		sender := mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			Timeout:  cfg.SMTP.Timeout,
		})
		if err := sender.Verify(ctx); err != nil {
			return err
		}
		log.Info().Str("host", cfg.SMTP.Host).Int("port", cfg.SMTP.Port).Msg("smtp relay accepted credentials")

		to := k.String("to")
		if to == "" {
			return nil
		}
		m := mail.NewMailer(sender, mail.Addresses{From: cfg.SMTP.From, Support: cfg.SMTP.Support, Internal: cfg.SMTP.Internal})
		if err := m.SendTest(ctx, to); err != nil {
			return err
		}
		log.Info().Str("to", to).Msg("test email sent")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(smtpCmd)
	smtpCmd.Flags().String("to", "", "recipient of a test email; verify only when empty")
}
