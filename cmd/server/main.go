package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"leasedesk/internal/ai"
	"leasedesk/internal/config"
	"leasedesk/internal/database"
	"leasedesk/internal/email"
	"leasedesk/internal/gmail"
	"leasedesk/internal/metrics"
	"leasedesk/internal/outbound"
	"leasedesk/internal/pipeline"
	"leasedesk/internal/poller"
	"leasedesk/internal/postmark"
	"leasedesk/internal/server"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := cfg.SetupLogger()

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Database connection failed")
	}
	logger.Info().Msg("Database connection established successfully")
	store := database.NewStore(db)

	m := metrics.New(prometheus.DefaultRegisterer)

	// Outbound dispatch via Postmark
	postmarkClient := postmark.NewClient(cfg.PostmarkAPIBaseURL, cfg.PostmarkServerToken)
	sender := outbound.NewSender(store, postmarkClient, cfg.DefaultFromAddress, logger, m)

	// AI collaborator, best effort when configured
	aiClient := ai.NewClient(cfg.AIBaseURL, time.Duration(cfg.AITimeoutSeconds)*time.Second)
	if !aiClient.Configured() {
		logger.Warn().Msg("AI base URL not set, inbound emails will be stored without replies")
	}
	responder := pipeline.NewAIResponder(store, aiClient, sender, logger, m)

	// Quota notifications via SendGrid
	var notifier pipeline.Notifier
	if cfg.SendGridAPIKey != "" {
		notifier = email.NewNotificationService(cfg.SendGridAPIKey, cfg.NotifyFromAddress, cfg.NotifyFromName)
	} else {
		logger.Warn().Msg("SendGrid API key not set, quota notifications disabled")
	}

	pipe := pipeline.New(store, notifier, responder, logger, m)

	// Optional Gmail polling path
	var gmailPoller *poller.Poller
	if cfg.PollEnabled && cfg.HasGmail() {
		fetcher, err := gmail.NewFetcher(context.Background(), gmail.Credentials{
			ClientID:     cfg.GmailClientID,
			ClientSecret: cfg.GmailClientSecret,
			RefreshToken: cfg.GmailRefreshToken,
			UserEmail:    cfg.GmailUserEmail,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Gmail fetcher initialization failed")
		}
		gmailPoller = poller.New(fetcher, store, pipe, cfg.PollIntervalMins, logger, m)
		if err := gmailPoller.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Poller failed to start")
		}
	}

	// Create and initialize server
	srv := server.New(cfg, db, store, pipe, sender, m, logger)
	srv.Initialize()

	// Stop cleanly on SIGINT/SIGTERM so the poller can drain
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info().Msg("Shutdown signal received")
		if gmailPoller != nil {
			gmailPoller.Stop()
		}
		os.Exit(0)
	}()

	// Start server
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed to start")
	}
}
