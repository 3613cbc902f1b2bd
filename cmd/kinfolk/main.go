package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mfalkner/kinfolk/internal/backup"
	"github.com/mfalkner/kinfolk/internal/database"
	"github.com/mfalkner/kinfolk/internal/email"
	"github.com/mfalkner/kinfolk/internal/l10n"
	"github.com/mfalkner/kinfolk/internal/logging"
	"github.com/mfalkner/kinfolk/internal/server"
	"github.com/mfalkner/kinfolk/internal/store"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	logger := logging.Setup(envOr("KINFOLK_LOG_LEVEL", "info"), envOr("KINFOLK_LOG_FORMAT", "text"))

	port := envOr("KINFOLK_PORT", "8080")
	dbPath := envOr("KINFOLK_DB_PATH", "kinfolk.db")

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	catalog, err := l10n.Load()
	if err != nil {
		logger.Error("load locales", "error", err)
		os.Exit(1)
	}

	emailClient := email.NewClient(
		os.Getenv("KINFOLK_POSTMARK_TOKEN"),
		os.Getenv("KINFOLK_EMAIL_FROM"),
		envOr("KINFOLK_POSTMARK_URL", "https://api.postmarkapp.com"),
	)

	backupOpts := []backup.Option{}
	if bucket := os.Getenv("KINFOLK_S3_BUCKET"); bucket != "" {
		cfg := aws.Config{
			Region: envOr("KINFOLK_S3_REGION", "us-east-1"),
			Credentials: credentials.NewStaticCredentialsProvider(
				os.Getenv("KINFOLK_S3_ACCESS_KEY"),
				os.Getenv("KINFOLK_S3_SECRET_KEY"),
				"",
			),
		}
		s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
			if endpoint := os.Getenv("KINFOLK_S3_ENDPOINT"); endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
				o.UsePathStyle = true
			}
		})
		backupOpts = append(backupOpts, backup.WithS3(s3Client, bucket))
	}
	backupSvc := backup.NewService(db, store.NewBackupStore(db), envOr("KINFOLK_BACKUP_DIR", "backups"), logger, backupOpts...)

	srv := server.New(db, emailClient, backupSvc, catalog, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.Scheduler().Start(ctx)
	defer srv.Scheduler().Stop()

	// Periodic cleanup of expired sessions, stale login codes, and rate
	// limiter buckets.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("cleanup sessions", "error", err)
				} else if n > 0 {
					logger.Info("cleaned up expired sessions", "count", n)
				}
				if _, err := srv.MagicLinkStore().DeleteExpired(); err != nil {
					logger.Error("cleanup login codes", "error", err)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Kinfolk running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
