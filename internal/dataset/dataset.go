// Package dataset reads bounded pages of rows from large tabular files and
// applies the cleaning transform the income models expect.
//
// Reads are chunked: a page of at most chunkSize rows is materialized at a
// time and earlier pages are decoded and discarded to reach the requested
// index, so memory stays bounded by the chunk size regardless of file size.
package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Format identifies a supported tabular input format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrEndOfData is returned by ReadPage when the requested page index lies
// beyond the last available chunk. It is a normal end condition, not a fault.
var ErrEndOfData = errors.New("end of data")

// ParseFormat resolves a format name or file name to a Format.
func ParseFormat(name string) (Format, error) {
	switch {
	case name == string(FormatCSV) || strings.HasSuffix(name, ".csv"):
		return FormatCSV, nil
	case name == string(FormatXLSX) || strings.HasSuffix(name, ".xlsx"):
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported file format %q", name)
	}
}

// ParseError reports a malformed source file. The request is expected to be
// aborted without retry; input files are not assumed transient.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed %s input: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports cleaning-relevant columns that are absent from the
// input. The drop list is strict: the transform refuses input that does not
// carry every column it is supposed to remove.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	missing := append([]string(nil), e.Missing...)
	sort.Strings(missing)
	return "dataset schema error, missing columns: " + strings.Join(missing, ", ")
}

// Chunk is a bounded, ordered page of raw rows plus the source header.
type Chunk struct {
	Header  []string   `json:"header"`
	Records [][]string `json:"records"`
	Page    int        `json:"page"`
}

// Len returns the number of rows in the chunk.
func (c *Chunk) Len() int { return len(c.Records) }

// Row returns row i as a column-keyed map. Short rows yield empty cells.
func (c *Chunk) Row(i int) map[string]string {
	row := make(map[string]string, len(c.Header))
	for j, col := range c.Header {
		if j < len(c.Records[i]) {
			row[col] = c.Records[i][j]
		} else {
			row[col] = ""
		}
	}
	return row
}

// Rows returns every row as a column-keyed map.
func (c *Chunk) Rows() []map[string]string {
	rows := make([]map[string]string, c.Len())
	for i := range c.Records {
		rows[i] = c.Row(i)
	}
	return rows
}
