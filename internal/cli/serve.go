package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyzmat-tm/portfolio/internal/analytics"
	"github.com/hyzmat-tm/portfolio/internal/auth"
	"github.com/hyzmat-tm/portfolio/internal/config"
	"github.com/hyzmat-tm/portfolio/internal/database"
	"github.com/hyzmat-tm/portfolio/internal/logging"
	"github.com/hyzmat-tm/portfolio/internal/mail"
	"github.com/hyzmat-tm/portfolio/internal/server"
	"github.com/hyzmat-tm/portfolio/internal/store"
	"github.com/hyzmat-tm/portfolio/internal/upload"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	authSvc, err := auth.NewService(db, auth.Options{
		Password:     cfg.AdminPassword,
		PasswordHash: cfg.AdminPasswordHash,
		TTL:          cfg.SessionTTL,
		Development:  cfg.IsDevelopment(),
	}, logger)
	if err != nil {
		return err
	}
	if _, err := authSvc.PurgeExpired(ctx); err != nil {
		logger.Warn("failed to purge expired sessions", zap.Error(err))
	}

	tracker, err := analytics.NewTracker(db, cfg.AnalyticsSalt, logger)
	if err != nil {
		return err
	}
	if _, err := tracker.Cleanup(ctx, cfg.AnalyticsRetention); err != nil {
		logger.Warn("failed to clean up visitor records", zap.Error(err))
	}

	uploads, err := upload.NewStore(cfg.UploadDir, cfg.UploadMaxBytes, logger)
	if err != nil {
		return err
	}

	mailer := mail.NewSMTPSender(mail.Config{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		User:      cfg.SMTPUser,
		Pass:      cfg.SMTPPass,
		Recipient: cfg.Recipient(),
	}, logger)
	if cfg.SMTPUser == "" || cfg.SMTPPass == "" {
		logger.Warn("SMTP credentials not set, contact form will fail")
	}

	srv, err := server.New(server.Config{
		Addr:           cfg.Addr(),
		Development:    cfg.IsDevelopment(),
		CORSOrigins:    cfg.CORSOrigins(),
		TrustedProxies: cfg.TrustedProxyList(),
	}, server.Deps{
		Projects: store.New(cfg.DBPath, logger),
		Mailer:   mailer,
		Auth:     authSvc,
		Tracker:  tracker,
		Uploads:  uploads,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	logger.Info("portfolio backend configured",
		zap.String("env", cfg.Env),
		zap.String("db_path", cfg.DBPath),
		zap.String("upload_dir", cfg.UploadDir),
		zap.Strings("cors_origins", cfg.CORSOrigins()),
	)
	return srv.Run(ctx)
}
