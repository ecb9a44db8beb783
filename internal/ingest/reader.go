package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RawTable is a report exactly as read: a header line plus string cells.
type RawTable struct {
	Header  []string
	Records [][]string
}

var ErrUnsupportedFormat = errors.New("unsupported report format: use .csv or .xlsx")

// Read picks a reader from the file name's extension.
func Read(name string, r io.Reader) (RawTable, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return RawTable{}, ErrUnsupportedFormat
	}
}

func ReadCSV(r io.Reader) (RawTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	all, err := cr.ReadAll()
	if err != nil {
		return RawTable{}, fmt.Errorf("read csv: %w", err)
	}
	return fromRows(all), nil
}

// ReadXLSX reads the first sheet of a workbook.
func ReadXLSX(r io.Reader) (RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return RawTable{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return RawTable{}, errors.New("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return RawTable{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows), nil
}

func fromRows(all [][]string) RawTable {
	if len(all) == 0 {
		return RawTable{}
	}
	t := RawTable{Header: all[0]}
	for _, rec := range all[1:] {
		if blank(rec) {
			continue
		}
		t.Records = append(t.Records, rec)
	}
	return t
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
