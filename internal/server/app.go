// Package server initializes and runs the webmail server: it picks the
// repository and attachment backends, builds the services, starts the
// retention sweeper and the HTTP API, and shuts everything down on a signal.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/webmail/internal/cryptox"
	"github.com/dmitrijs2005/webmail/internal/logging"
	"github.com/dmitrijs2005/webmail/internal/server/attachments"
	"github.com/dmitrijs2005/webmail/internal/server/config"
	"github.com/dmitrijs2005/webmail/internal/server/delivery"
	"github.com/dmitrijs2005/webmail/internal/server/httpapi"
	"github.com/dmitrijs2005/webmail/internal/server/metrics"
	"github.com/dmitrijs2005/webmail/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/webmail/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	services    httpapi.Services
	sweeper     *services.RetentionSweeper
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogLevel, c.LogFormat, os.Stdout)

	rm, err := openRepositories(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	cipher, err := cryptox.NewFieldCipher([]byte(c.EncryptionSecret),
		cryptox.WithFallbackObserver(func(userID int64, err error) {
			metrics.DecryptFallbacks.Inc()
			logger.Warn(ctx, "field decryption failed, returning stored value", "user_id", userID, "error", err)
		}))
	if err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("cipher init error: %w", err)
	}

	store, err := openStore(ctx, c, logger)
	if err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("attachment store init error: %w", err)
	}

	transport, err := delivery.NewSMTPTransport(delivery.SMTPConfig{
		Host:               c.SMTPHost,
		Port:               c.SMTPPort,
		TLSMode:            c.SMTPTLSMode,
		InsecureSkipVerify: c.SMTPInsecureSkipVerify,
		Timeout:            c.SMTPTimeout,
		MessageIDDomain:    c.CIDDomain,
	})
	if err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("smtp init error: %w", err)
	}
	pipeline := delivery.NewPipeline(transport, c.CIDDomain, logger)

	users := services.NewUserService(rm, cipher, store, logger, c)
	messages := services.NewMessageService(rm, cipher, store, logger, services.MessageServiceConfig{
		MaxTagsPerMessage: c.MaxTagsPerMessage,
		RetentionWindow:   c.RetentionWindow,
	})

	svc := httpapi.Services{
		Users:       users,
		Messages:    messages,
		Folders:     services.NewFolderService(rm, logger),
		Tags:        services.NewTagService(rm),
		Blocked:     services.NewBlockedSenderService(rm, logger),
		Aliases:     services.NewAliasService(rm, c.AliasDomain, logger),
		Attachments: services.NewAttachmentService(rm, store, logger, c.MaxAttachmentSize, c.DefaultStorageQuota),
		Send:        services.NewSendService(users, messages, store, pipeline, transport, logger),
	}

	return &App{
		config:      c,
		logger:      logger,
		repomanager: rm,
		services:    svc,
		sweeper:     services.NewRetentionSweeper(messages, users, c.RetentionSweepInterval, logger),
	}, nil
}

func openRepositories(ctx context.Context, c *config.Config, logger logging.Logger) (repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == config.MemoryDSN {
		logger.Warn(ctx, "Using in-memory repositories, data will not survive a restart")
		return repomanager.NewMemoryRepositoryManager(), nil
	}

	pm, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := pm.RunMigrations(ctx); err != nil {
		_ = pm.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return pm, nil
}

func openStore(ctx context.Context, c *config.Config, logger logging.Logger) (attachments.Store, error) {
	switch c.AttachmentBackend {
	case config.AttachmentBackendS3:
		s3, err := attachments.NewS3Store(ctx, attachments.S3Options{
			Region:       c.S3Region,
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
		}, logger)
		if err != nil {
			return nil, err
		}
		return s3, nil
	case config.AttachmentBackendLocal, "":
		return attachments.NewLocalStore(c.AttachmentBasePath, logger), nil
	default:
		return nil, fmt.Errorf("unknown attachment backend %q", c.AttachmentBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.HTTPAddr, app.logger, app.config.SecretKey, app.config.MaxAttachmentSize, app.services)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives or the HTTP server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	wg.Wait()

	if err := app.repomanager.Close(); err != nil {
		app.logger.Error(ctx, "closing repositories", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}
