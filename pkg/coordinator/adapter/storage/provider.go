package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"

	storageConfig "github.com/pressflow/pacer/pkg/coordinator/adapter/storage/config"
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// DecodeStorageConfig decodes the named entry of pacer.storage into a
// StorageConfig. Entries use yaml tags, matching the application config file.
func DecodeStorageConfig(cfg *config.Config, name string) (storageConfig.StorageConfig, error) {
	var sc storageConfig.StorageConfig
	raw, ok := cfg.Pacer.StorageConfigs[name]
	if !ok {
		return sc, fmt.Errorf("storage configuration for '%s' not found", name)
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &sc,
		TagName: "yaml",
	})
	if err != nil {
		return sc, fmt.Errorf("failed to create decoder for storage config '%s': %w", name, err)
	}
	if err := decoder.Decode(raw); err != nil {
		return sc, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	return sc, nil
}

// ConnectFunc builds one StorageConnection from its decoded configuration.
type ConnectFunc func(ctx context.Context, sc storageConfig.StorageConfig, name string) (StorageConnection, error)

// BaseProvider implements the connection caching shared by all storage
// backends; backend packages supply only the ConnectFunc.
type BaseProvider struct {
	cfg         *config.Config
	storageType string
	connect     ConnectFunc

	connections map[string]StorageConnection
	mu          sync.RWMutex
}

// NewBaseProvider creates a caching provider for one backend type.
func NewBaseProvider(cfg *config.Config, storageType string, connect ConnectFunc) *BaseProvider {
	return &BaseProvider{
		cfg:         cfg,
		storageType: storageType,
		connect:     connect,
		connections: make(map[string]StorageConnection),
	}
}

// Type returns the backend type this provider serves.
func (p *BaseProvider) Type() string {
	return p.storageType
}

// GetConnection retrieves the named connection, creating it on first use.
func (p *BaseProvider) GetConnection(ctx context.Context, name string) (StorageConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.connections[name]; ok {
		return conn, nil
	}

	sc, err := DecodeStorageConfig(p.cfg, name)
	if err != nil {
		return nil, err
	}
	if sc.Type != p.storageType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'",
			name, p.storageType, sc.Type)
	}

	conn, err = p.connect(ctx, sc, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage connection '%s': %w", p.storageType, name, err)
	}
	p.connections[name] = conn
	logger.Debugf("Created new %s storage connection '%s'.", p.storageType, name)
	return conn, nil
}

// CloseAll closes all connections managed by this provider.
func (p *BaseProvider) CloseAll() error {
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
