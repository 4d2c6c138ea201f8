package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/simpleit/sitepilot/internal/config"
	"github.com/simpleit/sitepilot/internal/fetcher"
	httpapi "github.com/simpleit/sitepilot/internal/http"
	"github.com/simpleit/sitepilot/internal/llm"
	"github.com/simpleit/sitepilot/internal/mail"
	"github.com/simpleit/sitepilot/internal/observability"
	"github.com/simpleit/sitepilot/internal/repo"
	"github.com/simpleit/sitepilot/internal/reviews"
	"github.com/simpleit/sitepilot/internal/services"
	"github.com/simpleit/sitepilot/internal/worker"
)

const (
	dispatchTimeout = 10 * time.Second
	guideTimeout    = 20 * time.Second
)

// serveCmd is the cobra command that starts the API server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the sitepilot api server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// serve wires the services, starts the HTTP server, the worker pool and the
// store purger, and stops all of them once ctx is cancelled.
func serve(ctx context.Context, cfg config.Config) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}

	mailer := setupMailer(cfg)
	notifySvc := &services.NotifyService{DB: db, Mailer: mailer, Retention: cfg.AuditRetention}
	auditSvc := &services.AuditService{
		DB:              db,
		Fetcher:         setupFetcher(cfg),
		LLM:             setupLLM(cfg),
		Notifier:        notifySvc,
		Retention:       cfg.AuditRetention,
		IdempotencyTTL:  cfg.IdempotencyTTL,
		PipelineTimeout: cfg.Worker.PipelineTimeout,
	}

	pool := worker.NewPool(cfg.Worker.Count, cfg.Worker.Queue, auditSvc.RunJob)
	switch cfg.Worker.Mode {
	case config.DispatchHTTP:
		auditSvc.Dispatcher = worker.NewHTTPDispatcher(cfg.Worker.BackgroundURL, dispatchTimeout, nil)
		log.Info().Str("url", cfg.Worker.BackgroundURL).Msg("audits dispatched over http")
	default:
		auditSvc.Dispatcher = pool
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.RouterConfig{
		DB:      db,
		Audits:  auditSvc,
		Notify:  notifySvc,
		Leads:   &services.LeadService{Mailer: mailer, HTTP: resty.New().SetTimeout(guideTimeout), GuideURL: cfg.GuideURL},
		Tickets: &services.TicketService{Mailer: mailer},
		Reviews: setupReviews(cfg),
		// The background endpoint always feeds the local pool, whichever
		// dispatcher submit uses.
		Background: pool,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	pool.Start(context.WithoutCancel(ctx))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("base", cfg.APIBasePath).Msg("starting sitepilot api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		purgeLoop(gctx, db, cfg.Worker.PurgeInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down gracefully...")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(sctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := pool.Stop(sctx); err != nil {
			errs = append(errs, fmt.Errorf("worker shutdown: %w", err))
		}
		if err := shutdownOTel(sctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func openStore(cfg config.Config) (*gorm.DB, error) {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", cfg.DBPath, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrating store: %w", err)
	}
	return db, nil
}

// purgeLoop deletes expired records every interval until ctx is done.
func purgeLoop(ctx context.Context, db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpired(ctx, db, now)
			if err != nil {
				log.Warn().Err(err).Msg("purge expired records")
				continue
			}
			if n > 0 {
				log.Info().Int64("deleted", n).Msg("purged expired records")
			}
		}
	}
}

func setupMailer(cfg config.Config) *mail.Mailer {
	if !cfg.SMTP.Configured() {
		log.Warn().Msg("smtp credentials not configured, emails will fail")
	}
	sender := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		Timeout:  cfg.SMTP.Timeout,
	})
	return mail.NewMailer(sender, mail.Addresses{
		From:     cfg.SMTP.From,
		Support:  cfg.SMTP.Support,
		Internal: cfg.SMTP.Internal,
	})
}

func setupFetcher(cfg config.Config) *fetcher.Fetcher {
	return fetcher.New(
		fetcher.WithTimeout(cfg.Fetch.Timeout),
		fetcher.WithUserAgent(cfg.Fetch.UserAgent),
	)
}

func setupLLM(cfg config.Config) *llm.Client {
	if cfg.LLM.APIKey == "" {
		log.Warn().Msg("ANTHROPIC_API_KEY not set, audits will fail")
	}
	return llm.New(llm.Config{
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		BaseURL:   cfg.LLM.BaseURL,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	})
}

func setupReviews(cfg config.Config) *reviews.Client {
	rc := reviews.New(reviews.Config{APIKey: cfg.Places.APIKey, BaseURL: cfg.Places.BaseURL}, nil)
	if !rc.Configured() {
		log.Info().Msg("google places not configured, reviews endpoint will answer 500")
	}
	return rc
}
