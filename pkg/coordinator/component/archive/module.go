package archive

import (
	"context"
	"time"

	"go.uber.org/fx"

	storageAdapter "github.com/pressflow/pacer/pkg/coordinator/adapter/storage"
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// sweepInterval is how often the archiver looks for expired records.
const sweepInterval = time.Hour

// NewArchiverProvider builds the Archiver from the application config.
func NewArchiverProvider(repo repository.CoordinatorRepository, resolver storageAdapter.StorageConnectionResolver, cfg *config.Config) *Archiver {
	return NewArchiver(repo, resolver, cfg.Pacer.Archive)
}

// StartArchiveLoop runs the archive sweep hourly for as long as the
// application is up. Disabled configurations never start the loop.
func StartArchiveLoop(lc fx.Lifecycle, archiver *Archiver) {
	if !archiver.Enabled() {
		logger.Debugf("Record archival is disabled.")
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(sweepInterval)
				defer ticker.Stop()
				for {
					select {
					case <-stop:
						return
					case now := <-ticker.C:
						if err := archiver.Run(context.Background(), now); err != nil {
							logger.Errorf("Archive sweep failed: %v", err)
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

// Module exports the archiver and its periodic sweep.
var Module = fx.Options(
	fx.Provide(NewArchiverProvider),
	fx.Invoke(StartArchiveLoop),
)
