package gcs

import (
	"go.uber.org/fx"

	storageAdapter "github.com/pressflow/pacer/pkg/coordinator/adapter/storage"
)

// Module exports the GCS storage provider for dependency injection.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.As(new(storageAdapter.StorageProvider)),
		fx.ResultTags(`group:"`+storageAdapter.StorageProviderGroup+`"`),
	)),
)
