package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	in := "\ufeffCustomer Search Term,Clicks\n\"blue, mug\",3\n,\n\nred cup,1\n"
	got, err := Read("report.CSV", strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Header) != 2 || got.Header[1] != "Clicks" {
		t.Fatalf("header = %v", got.Header)
	}
	// las filas vacías se descartan
	if len(got.Records) != 2 {
		t.Fatalf("expected 2 records, got %d: %v", len(got.Records), got.Records)
	}
	if got.Records[0][0] != "blue, mug" {
		t.Fatalf("quoted field = %q", got.Records[0][0])
	}
}

func TestReadUnsupportedFormat(t *testing.T) {
	for _, name := range []string{"report.xls", "report.txt", "report"} {
		if _, err := Read(name, strings.NewReader("a,b\n")); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%s: expected ErrUnsupportedFormat, got %v", name, err)
		}
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]any{
		{"Customer Search Term", "Match Type", "Clicks"},
		{"blue mug", "Exact", 12},
		{"red cup", "-", 4},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	got, err := Read("str.xlsx", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got.Records))
	}
	if got.Records[0][0] != "blue mug" || got.Records[0][2] != "12" || got.Records[1][1] != "-" {
		t.Fatalf("records = %v", got.Records)
	}
}

func TestReadXLSXGarbage(t *testing.T) {
	if _, err := ReadXLSX(strings.NewReader("not a zip")); err == nil {
		t.Fatal("expected error for invalid workbook")
	}
}

func TestReadEmptyCSV(t *testing.T) {
	got, err := ReadCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = Normalize(got, FailFast)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("empty file should fail with SchemaError, got %v", err)
	}
}
