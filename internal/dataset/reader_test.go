package dataset

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const sampleCSV = "ID,age,gender\n" +
	"1,34,Male\n" +
	"2,51,Female\n" +
	"3,27,Male\n" +
	"4,63,Female\n" +
	"5,45,Male\n"

func sampleXLSX(t *testing.T) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	rows := [][]any{
		{"ID", "age", "gender"},
		{"1", "34", "Male"},
		{"2", "51", "Female"},
		{"3", "27", "Male"},
		{"4", "63", "Female"},
		{"5", "45", "Male"},
	}
	sheet := f.GetSheetList()[0]
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestReadPage_CSV(t *testing.T) {
	chunk, err := ReadPage(strings.NewReader(sampleCSV), FormatCSV, 2, 1)
	if err != nil {
		t.Fatalf("ReadPage failed: %v", err)
	}

	if chunk.Page != 1 {
		t.Errorf("page = %d, want 1", chunk.Page)
	}
	if chunk.Len() != 2 {
		t.Fatalf("chunk has %d rows, want 2", chunk.Len())
	}
	if got := chunk.Row(0)["ID"]; got != "3" {
		t.Errorf("first row ID = %q, want 3 (pages must not overlap)", got)
	}
}

func TestReadPage_CSVPartialLastPage(t *testing.T) {
	chunk, err := ReadPage(strings.NewReader(sampleCSV), FormatCSV, 2, 2)
	if err != nil {
		t.Fatalf("ReadPage failed: %v", err)
	}
	if chunk.Len() != 1 {
		t.Errorf("last page has %d rows, want 1", chunk.Len())
	}
}

func TestReadPage_CSVEndOfData(t *testing.T) {
	_, err := ReadPage(strings.NewReader(sampleCSV), FormatCSV, 2, 3)
	if !errors.Is(err, ErrEndOfData) {
		t.Fatalf("expected ErrEndOfData, got %v", err)
	}
}

func TestReadPage_CSVMalformed(t *testing.T) {
	malformed := "ID,age,gender\n1,34\n"
	_, err := ReadPage(strings.NewReader(malformed), FormatCSV, 10, 0)

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Format != FormatCSV {
		t.Errorf("ParseError format = %q, want csv", perr.Format)
	}
}

func TestReadPage_CSVEmptyInput(t *testing.T) {
	_, err := ReadPage(strings.NewReader(""), FormatCSV, 10, 0)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError for empty input, got %v", err)
	}
}

func TestReadPage_XLSX(t *testing.T) {
	chunk, err := ReadPage(sampleXLSX(t), FormatXLSX, 2, 1)
	if err != nil {
		t.Fatalf("ReadPage failed: %v", err)
	}
	if chunk.Len() != 2 {
		t.Fatalf("chunk has %d rows, want 2", chunk.Len())
	}
	if got := chunk.Row(1)["gender"]; got != "Female" {
		t.Errorf("second row gender = %q, want Female", got)
	}
}

func TestReadPage_XLSXEndOfData(t *testing.T) {
	_, err := ReadPage(sampleXLSX(t), FormatXLSX, 3, 5)
	if !errors.Is(err, ErrEndOfData) {
		t.Fatalf("expected ErrEndOfData, got %v", err)
	}
}

func TestReadPage_XLSXMalformed(t *testing.T) {
	_, err := ReadPage(strings.NewReader("this is not a workbook"), FormatXLSX, 10, 0)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestReadAll(t *testing.T) {
	chunk, err := ReadAll(strings.NewReader(sampleCSV), FormatCSV)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if chunk.Len() != 5 {
		t.Errorf("ReadAll returned %d rows, want 5", chunk.Len())
	}

	xchunk, err := ReadAll(sampleXLSX(t), FormatXLSX)
	if err != nil {
		t.Fatalf("ReadAll xlsx failed: %v", err)
	}
	if xchunk.Len() != 5 {
		t.Errorf("ReadAll xlsx returned %d rows, want 5", xchunk.Len())
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"upload.csv", FormatCSV, false},
		{"xlsx", FormatXLSX, false},
		{"book.xlsx", FormatXLSX, false},
		{"data.parquet", "", true},
	}

	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
