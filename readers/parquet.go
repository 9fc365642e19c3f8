package readers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet/file"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/seqprep/core"
)

// ParquetReaderError wraps Parquet-specific read errors with the failing operation.
type ParquetReaderError struct {
	Op  string
	Err error
}

func (e *ParquetReaderError) Error() string {
	return fmt.Sprintf("parquet reader %s: %v", e.Op, e.Err)
}

func (e *ParquetReaderError) Unwrap() error {
	return e.Err
}

// ParquetReader implements DataSource for Parquet files, one row at a time.
type ParquetReader struct {
	fileHandle   *os.File
	recordReader pqarrow.RecordReader
	schema       *arrow.Schema
	batch        arrow.Record
	batchIdx     int
}

// NewParquetReader opens filename for reading.
func NewParquetReader(filename string) (*ParquetReader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &ParquetReaderError{Op: "open_file", Err: err}
	}

	parquetReader, err := file.NewParquetReader(f)
	if err != nil {
		f.Close()
		return nil, &ParquetReaderError{Op: "create_reader", Err: err}
	}
	arrowReader, err := pqarrow.NewFileReader(parquetReader, pqarrow.ArrowReadProperties{BatchSize: 1024}, memory.NewGoAllocator())
	if err != nil {
		f.Close()
		return nil, &ParquetReaderError{Op: "create_arrow_reader", Err: err}
	}
	schema, err := arrowReader.Schema()
	if err != nil {
		f.Close()
		return nil, &ParquetReaderError{Op: "get_schema", Err: err}
	}
	recordReader, err := arrowReader.GetRecordReader(context.Background(), nil, nil)
	if err != nil {
		f.Close()
		return nil, &ParquetReaderError{Op: "create_record_reader", Err: err}
	}

	return &ParquetReader{
		fileHandle:   f,
		recordReader: recordReader,
		schema:       schema,
	}, nil
}

// Schema returns the Arrow schema of the file.
func (p *ParquetReader) Schema() *arrow.Schema {
	return p.schema
}

// Read implements the DataSource interface.
func (p *ParquetReader) Read(ctx context.Context) (core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ParquetReaderError{Op: "read", Err: err}
	}

	for p.batch == nil || p.batchIdx >= int(p.batch.NumRows()) {
		if err := p.loadNextBatch(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, &ParquetReaderError{Op: "load_batch", Err: err}
		}
	}

	res := make(core.Record, p.batch.NumCols())
	for i, field := range p.batch.Schema().Fields() {
		res[field.Name] = columnValue(p.batch.Column(i), p.batchIdx)
	}
	p.batchIdx++
	return res, nil
}

func (p *ParquetReader) loadNextBatch() error {
	if p.batch != nil {
		p.batch.Release()
		p.batch = nil
	}
	rec, err := p.recordReader.Read()
	if err != nil {
		return err
	}
	if rec == nil {
		return io.EOF
	}
	// The record reader reuses the record on its next call.
	rec.Retain()
	p.batch = rec
	p.batchIdx = 0
	return nil
}

// Close releases resources and closes the underlying file
func (p *ParquetReader) Close() error {
	if p.batch != nil {
		p.batch.Release()
		p.batch = nil
	}
	if p.recordReader != nil {
		p.recordReader.Release()
		p.recordReader = nil
	}
	if p.fileHandle != nil {
		err := p.fileHandle.Close()
		p.fileHandle = nil
		return err
	}
	return nil
}

func columnValue(col arrow.Array, row int) interface{} {
	if col.IsNull(row) {
		return nil
	}
	switch arr := col.(type) {
	case *array.Boolean:
		return arr.Value(row)
	case *array.Int32:
		return int64(arr.Value(row))
	case *array.Int64:
		return arr.Value(row)
	case *array.Float32:
		return float64(arr.Value(row))
	case *array.Float64:
		return arr.Value(row)
	case *array.String:
		return arr.Value(row)
	case *array.Timestamp:
		return arr.Value(row).ToTime(arr.DataType().(*arrow.TimestampType).Unit).UTC()
	default:
		return fmt.Sprintf("%v", col.GetOneForMarshal(row))
	}
}
