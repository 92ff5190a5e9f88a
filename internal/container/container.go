package container

import (
	"fmt"
	"net/http"

	"github.com/anime-shed/certscan-go/internal/config"
	"github.com/anime-shed/certscan-go/internal/factory"
	"github.com/anime-shed/certscan-go/internal/logger"
	"github.com/anime-shed/certscan-go/internal/observer"
	"github.com/anime-shed/certscan-go/internal/repository"
	"github.com/anime-shed/certscan-go/internal/service"
	"github.com/anime-shed/certscan-go/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config      *config.Config
	components  *factory.ComponentFactory
	verifier    repository.VerificationRepository
	pool        *service.WorkerPool
	publisher   *observer.EventPublisher
	metrics     *observer.MetricsObserver
	scanService service.ScanService
	handler     http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	components := factory.NewComponentFactory(factory.StorageSettings{
		HTTPTimeout:  cfg.RequestTimeout,
		MaxPixels:    cfg.MaxFramePixels,
		AzureAccount: cfg.AzureStorageAccount,
		AzureKey:     cfg.AzureStorageKey,
	}, cfg.SnapshotInterval)

	if cfg.BlobEnabled() {
		// fail at startup rather than on the first blob session
		if _, err := components.StorageFactory.CreateStorage(factory.AzureStorage); err != nil {
			return nil, fmt.Errorf("failed to initialize blob storage: %w", err)
		}
	}

	var verifier repository.VerificationRepository
	if cfg.VerificationEnabled() {
		verifier = repository.NewHTTPVerificationRepository(cfg.VerifyAPIURL, cfg.VerifyAPIToken, cfg.VerifyTimeout)
	}

	pool := service.NewWorkerPool(cfg.VerifyWorkers)
	pool.Start()

	publisher := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	scanService := service.NewScanService(components.DeviceFactory, verifier, pool, publisher, metrics, service.Settings{
		Profile:            cfg.ScanProfile,
		Interval:           cfg.ScanInterval,
		AcquisitionTimeout: cfg.AcquisitionTimeout,
		MetadataTimeout:    cfg.MetadataTimeout,
		RetryDelay:         cfg.RetryDelay,
		VerifyTimeout:      cfg.VerifyTimeout,
	})
	handler := transport.NewHandler(scanService, cfg)

	return &Container{
		config:      cfg,
		components:  components,
		verifier:    verifier,
		pool:        pool,
		publisher:   publisher,
		metrics:     metrics,
		scanService: scanService,
		handler:     handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// ScanService returns the session registry
func (c *Container) ScanService() service.ScanService {
	return c.scanService
}

// Close closes every open session and drains pending verifications
func (c *Container) Close() {
	c.scanService.Shutdown()
}
