// Package quarantine exports rejected records as Parquet files to a storage
// connection, so rejected rows stay inspectable after a run finishes.
package quarantine

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	storageAdapter "github.com/tigerroll/ordersink/internal/adapter/storage"
	"github.com/tigerroll/ordersink/internal/config"
	"github.com/tigerroll/ordersink/internal/domain/entity"
	"github.com/tigerroll/ordersink/internal/support/exception"
	"github.com/tigerroll/ordersink/internal/support/logger"
)

const moduleName = "quarantine"

// quarantineRow is the flat Parquet schema of one exported rejection.
type quarantineRow struct {
	BatchID   string `parquet:"name=batch_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	RowIndex  int32  `parquet:"name=row_index, type=INT32"`
	Stage     string `parquet:"name=stage, type=BYTE_ARRAY, convertedtype=UTF8"`
	Reason    string `parquet:"name=reason, type=BYTE_ARRAY, convertedtype=UTF8"`
	OrderID   string `parquet:"name=order_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	UserID    string `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ProductID string `parquet:"name=product_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Quantity  string `parquet:"name=quantity, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price     string `parquet:"name=price, type=BYTE_ARRAY, convertedtype=UTF8"`
	OrderDate string `parquet:"name=order_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status    string `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// Writer exports a run's rejected records to the quarantine prefix of the
// source storage connection.
type Writer struct {
	provider storageAdapter.StorageProvider
	cfg      *config.PipelineConfig
	source   *config.SourceConfig
}

// NewWriter creates a quarantine Writer.
func NewWriter(provider storageAdapter.StorageProvider, cfg *config.PipelineConfig, source *config.SourceConfig) *Writer {
	return &Writer{provider: provider, cfg: cfg, source: source}
}

// Export writes all rejections of one run as a single Parquet object. The
// object key is <quarantine_prefix><batch_id segment>/rejections_<timestamp>.parquet.
// Export is best-effort infrastructure: failures are reported but must not
// fail the run.
func (w *Writer) Export(ctx context.Context, batchID string, rejections []entity.RejectedRecord) error {
	if !w.cfg.QuarantineEnabled || len(rejections) == 0 {
		return nil
	}

	conn, err := w.provider.GetConnection(w.source.StorageRef)
	if err != nil {
		return exception.NewPipelineError(moduleName, fmt.Sprintf("failed to resolve storage connection '%s'", w.source.StorageRef), err, true, false)
	}

	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(quarantineRow), int64(len(rejections)))
	if err != nil {
		return exception.NewPipelineError(moduleName, "failed to create Parquet writer", err, true, false)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	var multiErr error
	for _, rejection := range rejections {
		if err := pw.Write(toRow(batchID, rejection)); err != nil {
			multiErr = multierror.Append(multiErr, fmt.Errorf("failed to write rejection row %d: %w", rejection.RowIndex, err))
		}
	}

	// WriteStop panics on some malformed schemas inside the library, so keep
	// the recover guard around finalization.
	func() {
		defer func() {
			if r := recover(); r != nil {
				multiErr = multierror.Append(multiErr, fmt.Errorf("Parquet writer panicked during WriteStop: %v", r))
				logger.Errorf("Quarantine writer recovered from panic during WriteStop: %v", r)
			}
		}()
		if err := pw.WriteStop(); err != nil {
			multiErr = multierror.Append(multiErr, fmt.Errorf("failed to stop Parquet writer: %w", err))
		}
	}()
	if multiErr != nil {
		return exception.NewPipelineError(moduleName, "failed to build quarantine Parquet file", multiErr, true, false)
	}

	objectName := path.Join(w.cfg.QuarantinePrefix, sanitizeBatchID(batchID),
		fmt.Sprintf("rejections_%s.parquet", time.Now().UTC().Format("20060102150405")))

	if err := conn.Upload(ctx, "", objectName, buf, "application/octet-stream"); err != nil {
		return exception.NewPipelineError(moduleName, fmt.Sprintf("failed to upload quarantine file '%s'", objectName), err, true, true)
	}

	logger.Infof("Quarantined %d rejected records to '%s'.", len(rejections), objectName)
	return nil
}

// toRow flattens one rejection into its Parquet form.
func toRow(batchID string, r entity.RejectedRecord) quarantineRow {
	return quarantineRow{
		BatchID:   batchID,
		RowIndex:  int32(r.RowIndex),
		Stage:     string(r.Stage),
		Reason:    r.Reason.String(),
		OrderID:   r.Raw.Get("order_id"),
		UserID:    r.Raw.Get("user_id"),
		ProductID: r.Raw.Get("product_id"),
		Quantity:  r.Raw.Get("quantity"),
		Price:     r.Raw.Get("price"),
		OrderDate: r.Raw.Get("order_date"),
		Status:    r.Raw.Get("status"),
	}
}

// sanitizeBatchID turns a batch ID (often an object key) into a single path
// segment.
func sanitizeBatchID(batchID string) string {
	out := []rune(batchID)
	for i, r := range out {
		switch r {
		case '/', '\\', ' ':
			out[i] = '_'
		}
	}
	return string(out)
}
