// Package archive retires terminal execution records from the coordinator
// store into partitioned parquet files on object storage. The store stays
// small enough for the hot-path queries while the full execution history
// remains queryable offline.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	storageAdapter "github.com/pressflow/pacer/pkg/coordinator/adapter/storage"
	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	repository "github.com/pressflow/pacer/pkg/coordinator/core/domain/repository"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/exception"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// archiveBatchLimit bounds how many records one sweep moves, so a large
// backlog of expired records is drained over several sweeps instead of one
// giant upload.
const archiveBatchLimit = 500

// ArchivedRecord is the parquet row schema for retired execution records.
type ArchivedRecord struct {
	ID           string  `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Category     string  `parquet:"name=category, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status       string  `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
	Priority     float64 `parquet:"name=priority, type=DOUBLE"`
	ScheduledAt  int64   `parquet:"name=scheduled_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	StartedAt    int64   `parquet:"name=started_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	CompletedAt  int64   `parquet:"name=completed_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	BatchSize    int32   `parquet:"name=batch_size, type=INT32"`
	CostEstimate float64 `parquet:"name=cost_estimate, type=DOUBLE"`
	CostActual   float64 `parquet:"name=cost_actual, type=DOUBLE"`
	RetryCount   int32   `parquet:"name=retry_count, type=INT32"`
	WorkerID     string  `parquet:"name=worker_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ErrorDetail  string  `parquet:"name=error_detail, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func toArchivedRecord(rec *model.ExecutionRecord) ArchivedRecord {
	entry := ArchivedRecord{
		ID:           rec.ID,
		Category:     rec.Category,
		Status:       rec.Status.String(),
		Priority:     rec.Priority,
		ScheduledAt:  rec.ScheduledAt.UnixMilli(),
		BatchSize:    int32(rec.BatchSize),
		CostEstimate: rec.CostEstimate,
		CostActual:   rec.CostActual,
		RetryCount:   int32(rec.RetryCount),
		WorkerID:     rec.WorkerID,
		ErrorDetail:  rec.ErrorDetail,
	}
	if rec.StartedAt != nil {
		entry.StartedAt = rec.StartedAt.UnixMilli()
	}
	if rec.CompletedAt != nil {
		entry.CompletedAt = rec.CompletedAt.UnixMilli()
	}
	return entry
}

// Archiver moves expired terminal records to parquet files on object storage.
type Archiver struct {
	execRepo repository.ExecutionRecordRepository
	resolver storageAdapter.StorageConnectionResolver
	cfg      config.ArchiveConfig
}

// NewArchiver creates an Archiver.
func NewArchiver(execRepo repository.ExecutionRecordRepository, resolver storageAdapter.StorageConnectionResolver, cfg config.ArchiveConfig) *Archiver {
	return &Archiver{execRepo: execRepo, resolver: resolver, cfg: cfg}
}

// Enabled reports whether archival is configured.
func (a *Archiver) Enabled() bool {
	return a.cfg.StorageRef != "" && a.cfg.RetentionDays > 0
}

// Run archives one batch of terminal records older than the retention window.
// Records are only deleted from the store after their partition uploaded
// successfully, so a failed upload just leaves them for the next sweep.
func (a *Archiver) Run(ctx context.Context, now time.Time) error {
	if !a.Enabled() {
		return nil
	}

	cutoff := now.AddDate(0, 0, -a.cfg.RetentionDays)
	records, err := a.execRepo.FindTerminalBefore(ctx, cutoff, archiveBatchLimit)
	if err != nil {
		return exception.NewCoordinatorError("archive",
			"failed to find expired terminal records", exception.KindSystemFault, err, true)
	}
	if len(records) == 0 {
		return nil
	}

	conn, err := a.resolver.ResolveStorageConnection(ctx, a.cfg.StorageRef)
	if err != nil {
		return exception.NewCoordinatorError("archive",
			fmt.Sprintf("failed to resolve storage connection '%s'", a.cfg.StorageRef),
			exception.KindSystemFault, err, true)
	}

	codec, err := compressionCodec(a.cfg.CompressionType)
	if err != nil {
		return exception.NewValidationError("archive", err.Error(), nil)
	}

	// Partition by completion date, Hive style.
	partitions := make(map[string][]*model.ExecutionRecord)
	for _, rec := range records {
		day := cutoff
		if rec.CompletedAt != nil {
			day = *rec.CompletedAt
		}
		key := fmt.Sprintf("dt=%s", day.UTC().Format("2006-01-02"))
		partitions[key] = append(partitions[key], rec)
	}

	var errs *multierror.Error
	var archivedIDs []string
	for key, recs := range partitions {
		objectName, err := a.uploadPartition(ctx, conn, key, recs, codec, now)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		logger.Infof("Archived %d execution records to '%s'.", len(recs), objectName)
		for _, rec := range recs {
			archivedIDs = append(archivedIDs, rec.ID)
		}
	}

	if len(archivedIDs) > 0 {
		if err := a.execRepo.DeleteExecutionRecords(ctx, archivedIDs); err != nil {
			errs = multierror.Append(errs, exception.NewCoordinatorError("archive",
				"failed to delete archived records", exception.KindSystemFault, err, true))
		}
	}
	return errs.ErrorOrNil()
}

func (a *Archiver) uploadPartition(
	ctx context.Context,
	conn storageAdapter.StorageConnection,
	partitionKey string,
	recs []*model.ExecutionRecord,
	codec parquet.CompressionCodec,
	now time.Time,
) (objectName string, err error) {
	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(ArchivedRecord), int64(len(recs)))
	if err != nil {
		return "", fmt.Errorf("failed to create parquet writer for partition '%s': %w", partitionKey, err)
	}
	pw.CompressionType = codec

	for _, rec := range recs {
		if err := pw.Write(toArchivedRecord(rec)); err != nil {
			return "", fmt.Errorf("failed to write record %s to partition '%s': %w", rec.ID, partitionKey, err)
		}
	}

	// The parquet library can panic on malformed schemas; keep that from
	// taking down the sweep.
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("parquet writer panicked finalizing partition '%s': %v", partitionKey, r)
			}
		}()
		if stopErr := pw.WriteStop(); stopErr != nil {
			err = fmt.Errorf("failed to finalize parquet file for partition '%s': %w", partitionKey, stopErr)
		}
	}()
	if err != nil {
		return "", err
	}

	fileName := fmt.Sprintf("records_%s_%s.parquet", now.UTC().Format("20060102150405"), model.NewID()[:8])
	objectName = path.Join(a.cfg.OutputBaseDir, partitionKey, fileName)
	if err := conn.Upload(ctx, "", objectName, buf, "application/octet-stream"); err != nil {
		return "", fmt.Errorf("failed to upload parquet file '%s': %w", objectName, err)
	}
	return objectName, nil
}

func compressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}
