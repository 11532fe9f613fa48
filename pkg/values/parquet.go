package values

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"mercator-hq/cellguard/pkg/errcode"
)

// ReadParquetRowGroup reads one row group of a parquet file whose columns
// are binary-encoded label chains. projection selects column indices (nil
// keeps all); selection, when non-nil, is a row-keep bitmap over the row
// group applied after the read.
func ReadParquetRowGroup(path string, rowGroup int, projection []int, selection []bool) ([]BinaryColumn, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errcode.Wrap(errcode.FileNotFound, err, "parquet file %q", path)
	}
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errcode.Wrap(errcode.FileNotFound, err, "parquet file %q", path)
		}
		return nil, errcode.Wrap(errcode.SerializeError, err, "opening parquet file %q", path)
	}
	defer rdr.Close()

	if rowGroup < 0 || rowGroup >= rdr.NumRowGroups() {
		return nil, errcode.New(errcode.InvalidOperation,
			"row group %d out of range (file has %d)", rowGroup, rdr.NumRowGroups())
	}

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errcode.Wrap(errcode.SerializeError, err, "reading parquet schema of %q", path)
	}

	tbl, err := fr.ReadRowGroups(context.Background(), projection, []int{rowGroup})
	if err != nil {
		return nil, errcode.Wrap(errcode.SerializeError, err, "reading row group %d of %q", rowGroup, path)
	}
	defer tbl.Release()

	out := make([]BinaryColumn, tbl.NumCols())
	for i := 0; i < int(tbl.NumCols()); i++ {
		col := tbl.Column(i)
		out[i].Name = col.Name()
		for _, chunk := range col.Data().Chunks() {
			cells, err := parquetBinaryCells(chunk)
			if err != nil {
				return nil, err
			}
			out[i].Cells = append(out[i].Cells, cells...)
		}
	}

	if selection != nil {
		for i := range out {
			if len(selection) != len(out[i].Cells) {
				return nil, errcode.New(errcode.InvalidOperation,
					"selection length %d does not match row group height %d", len(selection), len(out[i].Cells))
			}
			kept := out[i].Cells[:0]
			for r, keep := range selection {
				if keep {
					kept = append(kept, out[i].Cells[r])
				}
			}
			out[i].Cells = kept
		}
	}
	return out, nil
}

func parquetBinaryCells(col arrow.Array) ([][]byte, error) {
	switch arr := col.(type) {
	case *array.Binary, *array.LargeBinary:
		return binaryCells(arr)
	case *array.String:
		cells := make([][]byte, 0, arr.Len())
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				cells = append(cells, nil)
				continue
			}
			cells = append(cells, bytes.Clone([]byte(arr.Value(i))))
		}
		return cells, nil
	default:
		return nil, errcode.New(errcode.SerializeError,
			"policy parquet column must be binary, got %s", col.DataType())
	}
}
