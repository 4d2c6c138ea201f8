package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/simpleit/sitepilot/internal/domain"
	"github.com/simpleit/sitepilot/internal/repo"
	"github.com/simpleit/sitepilot/internal/services"
)

// auditCmd runs one audit from the terminal and prints the JSON result.
var auditCmd = &cobra.Command{
	Use:   "audit <domain>",
	Short: "audit a domain once and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		ctx := cmd.Context()

		svc := &services.AuditService{
			Fetcher:         setupFetcher(cfg),
			LLM:             setupLLM(cfg),
			PipelineTimeout: cfg.Worker.PipelineTimeout,
		}

		var out any
		if k.Bool("live") {
			d, err := domain.NormalizeDomain(args[0])
			if err != nil {
				return err
			}
			// Run stores its records; keep them out of the server's database.
			db, err := repo.OpenSQLite("file:cli_" + uuid.NewString() + "?mode=memory&cache=shared")
			if err != nil {
				return err
			}
			if err := repo.AutoMigrate(db); err != nil {
				return err
			}
			svc.DB = db
			rec := svc.Run(ctx, d, uuid.NewString())
			if rec.Status != domain.StatusComplete {
				return fmt.Errorf("audit of %s failed: %s", d, rec.Error)
			}
			out = rec.Results
		} else {
			_, res, err := svc.AuditNow(ctx, args[0])
			if err != nil {
				return fmt.Errorf("audit failed: %s", services.FailureMessage(err))
			}
			out = res
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().Bool("live", false, "fetch the homepage and run the full pipeline instead of a knowledge-only audit")
}
