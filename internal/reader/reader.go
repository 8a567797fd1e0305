// Package reader fetches raw order batches from a storage connection and
// decodes them into the domain's RawBatch form. Column names are lowercased
// on ingest so the rest of the pipeline sees one canonical header set.
package reader

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	storageAdapter "github.com/tigerroll/ordersink/internal/adapter/storage"
	"github.com/tigerroll/ordersink/internal/config"
	"github.com/tigerroll/ordersink/internal/domain/entity"
	"github.com/tigerroll/ordersink/internal/support/exception"
	"github.com/tigerroll/ordersink/internal/support/logger"
)

const moduleName = "reader"

// BatchReader reads one raw batch from the configured source object.
type BatchReader struct {
	provider storageAdapter.StorageProvider
	source   *config.SourceConfig
}

// NewBatchReader creates a BatchReader over the storage provider and source
// configuration.
func NewBatchReader(provider storageAdapter.StorageProvider, source *config.SourceConfig) *BatchReader {
	return &BatchReader{provider: provider, source: source}
}

// Read fetches the configured source object and decodes it. The batch ID is
// derived from the object key.
func (r *BatchReader) Read(ctx context.Context) (*entity.RawBatch, error) {
	conn, err := r.provider.GetConnection(r.source.StorageRef)
	if err != nil {
		return nil, exception.NewPipelineError(moduleName, fmt.Sprintf("failed to resolve storage connection '%s'", r.source.StorageRef), err, false, true)
	}

	body, err := conn.Download(ctx, "", r.source.Object)
	if err != nil {
		return nil, exception.NewPipelineError(moduleName, fmt.Sprintf("failed to download batch object '%s'", r.source.Object), err, false, true)
	}
	defer body.Close()

	var batch *entity.RawBatch
	switch strings.ToLower(r.source.Format) {
	case "csv":
		batch, err = decodeCSV(body)
	case "json":
		batch, err = decodeJSON(body)
	default:
		return nil, exception.NewPipelineErrorf(moduleName, "unsupported source format: %s", r.source.Format)
	}
	if err != nil {
		return nil, exception.NewPipelineError(moduleName, fmt.Sprintf("failed to decode batch object '%s'", r.source.Object), err, false, false)
	}

	batch.BatchID = r.source.Object
	logger.Infof("Read batch '%s': %d records, %d columns.", batch.BatchID, len(batch.Records), len(batch.Columns))
	return batch, nil
}

// decodeCSV decodes a headered CSV stream. Header names are lowercased and
// trimmed; short rows are padded with empty values.
func decodeCSV(body io.Reader) (*entity.RawBatch, error) {
	cr := csv.NewReader(body)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return &entity.RawBatch{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var records []entity.RawRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", len(records)+1, err)
		}
		record := make(entity.RawRecord, len(columns))
		for i, col := range columns {
			if i < len(row) {
				record[col] = row[i]
			} else {
				record[col] = ""
			}
		}
		records = append(records, record)
	}
	return &entity.RawBatch{Columns: columns, Records: records}, nil
}

// decodeJSON decodes a JSON array of flat objects. Numbers keep their source
// text via json.Number so the transformer controls all numeric coercion.
func decodeJSON(body io.Reader) (*entity.RawBatch, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var rows []map[string]interface{}
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode JSON batch: %w", err)
	}

	columnSeen := make(map[string]bool)
	var columns []string
	records := make([]entity.RawRecord, 0, len(rows))

	for _, row := range rows {
		record := make(entity.RawRecord, len(row))
		for key, value := range row {
			col := strings.ToLower(strings.TrimSpace(key))
			if !columnSeen[col] {
				columnSeen[col] = true
				columns = append(columns, col)
			}
			record[col] = stringifyJSONValue(value)
		}
		records = append(records, record)
	}
	return &entity.RawBatch{Columns: columns, Records: records}, nil
}

// stringifyJSONValue renders one JSON scalar as the string the pipeline's
// coercion layer expects. Nulls become empty strings.
func stringifyJSONValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
