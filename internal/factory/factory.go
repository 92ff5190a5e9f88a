package factory

import (
	"fmt"
	"sync"
	"time"

	"github.com/anime-shed/certscan-go/internal/capture"
	"github.com/anime-shed/certscan-go/internal/storage"
	"github.com/anime-shed/certscan-go/pkg/models"
	"github.com/anime-shed/certscan-go/pkg/validation"
)

// StorageType represents different types of snapshot storage backends
type StorageType string

const (
	// HTTPStorage for IP camera snapshot URLs
	HTTPStorage StorageType = "http"
	// AzureStorage for pictures uploaded to blob storage by edge cameras
	AzureStorage StorageType = "azure"
)

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageFetcher, error)
}

// StorageSettings carries what the storage backends need
type StorageSettings struct {
	HTTPTimeout  time.Duration
	MaxPixels    int
	AzureAccount string
	AzureKey     string
}

// storageFactory implements StorageFactory. Fetchers are built once and
// shared by every session.
type storageFactory struct {
	settings StorageSettings

	mu    sync.Mutex
	http  storage.ImageFetcher
	azure storage.ImageFetcher
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(settings StorageSettings) StorageFactory {
	return &storageFactory{settings: settings}
}

// CreateStorage creates a storage implementation based on the given type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageFetcher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch storageType {
	case HTTPStorage:
		if f.http == nil {
			opts := storage.DefaultHTTPFetcherOptions()
			if f.settings.HTTPTimeout > 0 {
				opts.Timeout = f.settings.HTTPTimeout
			}
			if f.settings.MaxPixels > 0 {
				opts.MaxPixels = f.settings.MaxPixels
			}
			f.http = storage.NewHTTPImageFetcherWithOptions(opts)
		}
		return f.http, nil
	case AzureStorage:
		if f.azure == nil {
			if f.settings.AzureAccount == "" || f.settings.AzureKey == "" {
				return nil, fmt.Errorf("azure storage is not configured")
			}
			fetcher, err := storage.NewAzureBlobFetcher(f.settings.AzureAccount, f.settings.AzureKey, f.settings.MaxPixels)
			if err != nil {
				return nil, err
			}
			f.azure = fetcher
		}
		return f.azure, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// DeviceRequest describes the frame source of a new session
type DeviceRequest struct {
	Kind         models.DeviceKind
	SourceURL    string
	Capabilities capture.Capabilities
}

// DeviceFactory creates frame sources
type DeviceFactory interface {
	CreateDevice(req DeviceRequest) (capture.Device, error)
}

// deviceFactory implements DeviceFactory
type deviceFactory struct {
	storage          StorageFactory
	urlValidator     *validation.URLValidator
	azureAccount     string
	snapshotInterval time.Duration
}

// NewDeviceFactory creates a device factory. Snapshot and blob devices poll
// their source every snapshotInterval.
func NewDeviceFactory(storageFactory StorageFactory, urlValidator *validation.URLValidator, azureAccount string, snapshotInterval time.Duration) DeviceFactory {
	return &deviceFactory{
		storage:          storageFactory,
		urlValidator:     urlValidator,
		azureAccount:     azureAccount,
		snapshotInterval: snapshotInterval,
	}
}

// CreateDevice creates a device based on the given kind
func (f *deviceFactory) CreateDevice(req DeviceRequest) (capture.Device, error) {
	switch req.Kind {
	case models.DevicePush:
		return capture.NewPushDevice(req.Capabilities), nil
	case models.DeviceSnapshot:
		if err := f.urlValidator.ValidateSourceURL(req.SourceURL); err != nil {
			return nil, err
		}
		fetcher, err := f.storage.CreateStorage(HTTPStorage)
		if err != nil {
			return nil, err
		}
		return capture.NewSnapshotDevice(fetcher, req.SourceURL, f.snapshotInterval), nil
	case models.DeviceBlob:
		if err := f.urlValidator.ValidateBlobURL(req.SourceURL, f.azureAccount); err != nil {
			return nil, err
		}
		fetcher, err := f.storage.CreateStorage(AzureStorage)
		if err != nil {
			return nil, err
		}
		return capture.NewSnapshotDevice(fetcher, req.SourceURL, f.snapshotInterval), nil
	default:
		return nil, fmt.Errorf("unsupported device kind: %s", req.Kind)
	}
}

// CapabilitiesFromModel converts declared client capabilities
func CapabilitiesFromModel(m *models.DeviceCapabilities) (capture.Capabilities, error) {
	if m == nil {
		return capture.Capabilities{}, nil
	}
	caps := capture.Capabilities{
		MaxWidth:     m.MaxWidth,
		MaxHeight:    m.MaxHeight,
		MaxFrameRate: m.MaxFrameRate,
		Torch:        m.Torch,
	}
	for _, s := range m.Facings {
		facing, err := capture.ParseFacing(s)
		if err != nil {
			return capture.Capabilities{}, err
		}
		caps.Facings = append(caps.Facings, facing)
	}
	return caps, nil
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StorageFactory StorageFactory
	DeviceFactory  DeviceFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(settings StorageSettings, snapshotInterval time.Duration) *ComponentFactory {
	storageFactory := NewStorageFactory(settings)
	return &ComponentFactory{
		StorageFactory: storageFactory,
		DeviceFactory:  NewDeviceFactory(storageFactory, validation.NewURLValidator(), settings.AzureAccount, snapshotInterval),
	}
}
