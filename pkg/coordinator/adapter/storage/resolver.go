package storage

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
)

// Resolver routes named storage connections to the provider whose type
// matches the connection's configuration.
type Resolver struct {
	providers map[string]StorageProvider
	cfg       *config.Config
}

// ResolverParams defines the dependencies for NewResolver.
type ResolverParams struct {
	fx.In
	Providers []StorageProvider `group:"storage_providers"`
	Cfg       *config.Config
}

// NewResolver creates a Resolver from all registered storage providers.
func NewResolver(p ResolverParams) *Resolver {
	providers := make(map[string]StorageProvider, len(p.Providers))
	for _, provider := range p.Providers {
		providers[provider.Type()] = provider
	}
	return &Resolver{providers: providers, cfg: p.Cfg}
}

// ResolveStorageConnection resolves the named connection through the provider
// matching its configured type.
func (r *Resolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	sc, err := DecodeStorageConfig(r.cfg, name)
	if err != nil {
		return nil, err
	}
	provider, ok := r.providers[sc.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider registered for type '%s' (connection '%s')", sc.Type, name)
	}
	return provider.GetConnection(ctx, name)
}

// CloseAll closes every connection held by every provider.
func (r *Resolver) CloseAll() error {
	var errs *multierror.Error
	for _, provider := range r.providers {
		if err := provider.CloseAll(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

var _ StorageConnectionResolver = (*Resolver)(nil)

// Module exports the storage connection resolver for dependency injection.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewResolver,
		fx.As(new(StorageConnectionResolver)),
	)),
)
