package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ReadPage reads page pageIndex of chunkSize rows from r. The header row is
// always consumed first and attached to the returned chunk. A page index past
// the end of the data returns ErrEndOfData; malformed input returns a
// ParseError naming the underlying cause.
func ReadPage(r io.Reader, format Format, chunkSize, pageIndex int) (*Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if pageIndex < 0 {
		return nil, fmt.Errorf("page index must be non-negative, got %d", pageIndex)
	}

	switch format {
	case FormatCSV:
		return readCSVPage(r, chunkSize, pageIndex)
	case FormatXLSX:
		return readXLSXPage(r, chunkSize, pageIndex)
	default:
		return nil, fmt.Errorf("unsupported file format %q", format)
	}
}

// ReadAll reads the header and every row from r in one pass. Bulk prediction
// uses it for sources that are already size-bounded, such as cached uploads
// and the inbuilt test dataset.
func ReadAll(r io.Reader, format Format) (*Chunk, error) {
	switch format {
	case FormatCSV:
		return readAllCSV(r)
	case FormatXLSX:
		return readAllXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported file format %q", format)
	}
}

func readAllCSV(r io.Reader) (*Chunk, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Format: FormatCSV, Err: errors.New("empty input")}
	}
	if err != nil {
		return nil, &ParseError{Format: FormatCSV, Err: err}
	}

	chunk := &Chunk{Header: header}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return chunk, nil
		}
		if err != nil {
			return nil, &ParseError{Format: FormatCSV, Err: err}
		}
		chunk.Records = append(chunk.Records, record)
	}
}

func readAllXLSX(r io.Reader) (*Chunk, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Format: FormatXLSX, Err: errors.New("workbook has no sheets")}
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, &ParseError{Format: FormatXLSX, Err: errors.New("empty sheet")}
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Err: err}
	}

	chunk := &Chunk{Header: header}
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return nil, &ParseError{Format: FormatXLSX, Err: err}
		}
		for len(record) < len(header) {
			record = append(record, "")
		}
		chunk.Records = append(chunk.Records, record)
	}
	return chunk, nil
}

func readCSVPage(r io.Reader, chunkSize, pageIndex int) (*Chunk, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Format: FormatCSV, Err: errors.New("empty input")}
	}
	if err != nil {
		return nil, &ParseError{Format: FormatCSV, Err: err}
	}

	// Discard rows belonging to earlier pages one at a time.
	for skip := pageIndex * chunkSize; skip > 0; skip-- {
		if _, err := cr.Read(); err == io.EOF {
			return nil, ErrEndOfData
		} else if err != nil {
			return nil, &ParseError{Format: FormatCSV, Err: err}
		}
	}

	chunk := &Chunk{Header: header, Page: pageIndex}
	for len(chunk.Records) < chunkSize {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Format: FormatCSV, Err: err}
		}
		chunk.Records = append(chunk.Records, record)
	}

	if chunk.Len() == 0 {
		return nil, ErrEndOfData
	}
	return chunk, nil
}

func readXLSXPage(r io.Reader, chunkSize, pageIndex int) (*Chunk, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Format: FormatXLSX, Err: errors.New("workbook has no sheets")}
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, &ParseError{Format: FormatXLSX, Err: errors.New("empty sheet")}
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Err: err}
	}

	for skip := pageIndex * chunkSize; skip > 0; skip-- {
		if !rows.Next() {
			return nil, ErrEndOfData
		}
		if _, err := rows.Columns(); err != nil {
			return nil, &ParseError{Format: FormatXLSX, Err: err}
		}
	}

	chunk := &Chunk{Header: header, Page: pageIndex}
	for len(chunk.Records) < chunkSize && rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return nil, &ParseError{Format: FormatXLSX, Err: err}
		}
		// Trailing empty cells are omitted by the iterator; pad back out.
		for len(record) < len(header) {
			record = append(record, "")
		}
		chunk.Records = append(chunk.Records, record)
	}

	if chunk.Len() == 0 {
		return nil, ErrEndOfData
	}
	return chunk, nil
}
