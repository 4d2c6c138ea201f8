// Package cmd holds the sitepilot command line: the API server and the
// operator tools that share its configuration.
package cmd

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/simpleit/sitepilot/internal/config"
	"github.com/simpleit/sitepilot/internal/sysutil"
)

// appName is the name of the application used in CLI usage output
const appName = "sitepilot"

// version is overridden at build time with -ldflags "-X".
var version = "dev"

// k holds the parsed command line flags.
var k *koanf.Koanf

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "SEO audits, report emails and site forms for the SimpleIT marketing site",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initCmdFlags(cmd)
	},
}

// Execute runs the root command until it returns or the process receives
// SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}

func init() {
	k = koanf.New(".")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment; missing files are ignored")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug|info|warn|error)")
	rootCmd.PersistentFlags().Bool("pretty", false, "enable pretty (human readable) logging output")
	rootCmd.PersistentFlags().Bool("debug", false, "debug logging output")
	rootCmd.Version = version
}

// initCmdFlags loads the flags from the command line into the koanf instance
func initCmdFlags(cmd *cobra.Command) error {
	return k.Load(posflag.Provider(cmd.Flags(), k.Delim(), k), nil)
}

// loadConfig reads the dotenv file, then the environment, and configures
// logging from the result. Flags win over the environment.
func loadConfig() (config.Config, error) {
	if path := k.String("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	sysutil.SetupLogging(sysutil.LogOptions{
		Level:   sysutil.FirstNonEmpty(k.String("log-level"), cfg.LogLevel),
		Debug:   k.Bool("debug"),
		Pretty:  k.Bool("pretty") || cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
	})
	log.Debug().Str("version", version).Msg("configuration loaded")
	return cfg, nil
}
