package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Ultra2000/pdfBot/config"
	"github.com/Ultra2000/pdfBot/handler"
	"github.com/Ultra2000/pdfBot/job"
	"github.com/Ultra2000/pdfBot/middleware"
	"github.com/Ultra2000/pdfBot/pkg/logger"
	"github.com/Ultra2000/pdfBot/service"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var (
	configPath string

	cleanupDryRun bool
	cleanupForce  bool
)

var rootCmd = &cobra.Command{
	Use:   "pdfbot",
	Short: "WhatsApp PDF processing bot",
	Long: `pdfbot receives PDF documents over WhatsApp, runs operations on them
(compress, convert, OCR, summarize, translate, secure) through a remote
processing service, and delivers the results back to the user.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server and worker pool",
	RunE:  runServe,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge expired documents and their stored files",
	RunE:  runCleanup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "count candidates without deleting")
	cleanupCmd.Flags().BoolVarP(&cleanupForce, "force", "f", false, "skip confirmation")
	rootCmd.AddCommand(serveCmd, cleanupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	closeLogs := logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	defer closeLogs()

	slog.Info("configuration loaded successfully")

	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	if err := minioSvc.EnsureBucket(context.Background()); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}

	store := service.NewDocumentStore()
	sessions := service.NewSessionStore(cfg.Session.TTL())
	defer sessions.Close()

	downloads := service.NewDownloadService(&cfg.Download, minioSvc)
	pdfClient := service.NewPdfServiceClient(&cfg.PdfService, minioSvc, downloads)
	messenger := service.NewTwilioMessenger(&cfg.Twilio)

	engine := job.NewEngine(store, minioSvc, downloads, pdfClient, messenger, cfg)
	dispatcher := job.NewDispatcher(engine, &cfg.Worker)
	dispatcher.Start(context.Background())

	sweeper := job.NewSweeper(store, minioSvc)
	sweepStop := startPeriodicSweep(sweeper)
	defer close(sweepStop)

	webhookHandler := handler.NewWebhookHandler(store, sessions, messenger, dispatcher, cfg)
	healthHandler := handler.NewHealthHandler(store, pdfClient)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimit(cfg.Server.RateLimitRequests, cfg.Server.RateLimitWindow()))

	api := router.Group("/api")
	{
		api.POST("/whatsapp/webhook", webhookHandler.Handle)
		api.GET("/health", healthHandler.Health)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Let in-flight jobs finish before exiting.
	dispatcher.Shutdown()

	slog.Info("server exited gracefully")
	return nil
}

// startPeriodicSweep purges expired documents once an hour until the
// returned channel is closed.
func startPeriodicSweep(sweeper *job.Sweeper) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sweeper.Sweep(context.Background(), false)
			case <-stop:
				return
			}
		}
	}()
	return stop
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	closeLogs := logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	defer closeLogs()

	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}

	// The document store lives in the serve process; the standalone command
	// sweeps the bucket by object age instead.
	sweeper := job.NewSweeper(service.NewDocumentStore(), minioSvc)
	retention := cfg.Documents.ExpireAfter()

	ctx := context.Background()

	if cleanupDryRun {
		result := sweeper.SweepBucket(ctx, minioSvc, retention, true)
		fmt.Printf("Dry run: %d stale object(s) would be deleted\n", result.Candidates)
		return nil
	}

	candidates := sweeper.SweepBucket(ctx, minioSvc, retention, true).Candidates
	if candidates == 0 {
		fmt.Println("No stale objects")
		return nil
	}

	if !cleanupForce {
		fmt.Printf("Delete %d stale object(s)? [y/N] ", candidates)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if answer = strings.TrimSpace(strings.ToLower(answer)); answer != "y" && answer != "yes" {
			fmt.Println("Aborted")
			return nil
		}
	}

	result := sweeper.SweepBucket(ctx, minioSvc, retention, false)
	fmt.Printf("Deleted %d object(s), freed %d bytes, %d error(s)\n",
		result.Deleted, result.FreedBytes, result.Errors)
	return nil
}
