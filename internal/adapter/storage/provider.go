package storage

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/ordersink/internal/config"
	"github.com/tigerroll/ordersink/internal/support/configbinder"
	"github.com/tigerroll/ordersink/internal/support/logger"
)

// AdapterFactory creates a StorageConnection for one backend type.
type AdapterFactory func(cfg StorageConfig, name string) (StorageConnection, error)

var (
	adapterRegistry = make(map[string]AdapterFactory)
	adapterMutex    sync.RWMutex
)

// RegisterAdapterFactory registers an AdapterFactory for the given storage type.
// Backend packages register themselves in their init functions.
func RegisterAdapterFactory(storageType string, factory AdapterFactory) {
	adapterMutex.Lock()
	defer adapterMutex.Unlock()
	if _, exists := adapterRegistry[storageType]; exists {
		logger.Warnf("Storage adapter factory for type '%s' already registered. Overwriting.", storageType)
	}
	adapterRegistry[storageType] = factory
}

func getAdapterFactory(storageType string) (AdapterFactory, error) {
	adapterMutex.RLock()
	defer adapterMutex.RUnlock()
	factory, ok := adapterRegistry[storageType]
	if !ok {
		return nil, fmt.Errorf("no storage adapter registered for type: %s", storageType)
	}
	return factory, nil
}

// Provider implements StorageProvider over the named connections in the
// application configuration.
type Provider struct {
	cfg         *config.Config
	connections map[string]StorageConnection
	mu          sync.RWMutex
}

// NewProvider creates a Provider over the configured storage connections.
func NewProvider(cfg *config.Config) StorageProvider {
	return &Provider{
		cfg:         cfg,
		connections: make(map[string]StorageConnection),
	}
}

// GetConnection retrieves an existing connection or establishes a new one.
func (p *Provider) GetConnection(name string) (StorageConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double check (DCL)
	conn, ok = p.connections[name]
	if ok {
		return conn, nil
	}

	namedConfig, ok := p.cfg.Ordersink.Storages[name]
	if !ok {
		return nil, fmt.Errorf("storage configuration for name '%s' not found", name)
	}

	var storageCfg StorageConfig
	if err := configbinder.BindConfig(namedConfig, &storageCfg); err != nil {
		return nil, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}

	factory, err := getAdapterFactory(storageCfg.Type)
	if err != nil {
		return nil, err
	}
	newConn, err := factory(storageCfg, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage adapter for '%s': %w", storageCfg.Type, name, err)
	}

	p.connections[name] = newConn
	logger.Debugf("Created new storage connection '%s' (%s).", name, storageCfg.Type)
	return newConn, nil
}

// CloseAll closes all connections managed by this provider.
func (p *Provider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to close storage connection '%s': %w", name, err))
		}
		delete(p.connections, name)
	}
	return errs.ErrorOrNil()
}
