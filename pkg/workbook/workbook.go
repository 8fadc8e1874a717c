package workbook

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ErrSheetNotFound is returned when a requested worksheet does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// Workbook is a read-only view over an uploaded spreadsheet.
type Workbook struct {
	file *excelize.File
}

// Open parses an xlsx/xlsm stream.
func Open(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &Workbook{file: f}, nil
}

// Close releases temporary files held by the reader.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// HasSheet reports whether the workbook contains the named sheet.
func (w *Workbook) HasSheet(name string) bool {
	idx, err := w.file.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// LabelValues reads a form-style sheet: column A holds the label and the value is the first non-empty cell to its
// right. Rows without a label or value are skipped and the first occurrence of a label wins.
func (w *Workbook) LabelValues(sheet string) (map[string]string, error) {
	rows, err := w.rows(sheet)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		label := strings.TrimSpace(row[0])
		if label == "" {
			continue
		}
		if _, seen := values[label]; seen {
			continue
		}
		for _, cell := range row[1:] {
			if v := strings.TrimSpace(cell); v != "" {
				values[label] = v
				break
			}
		}
	}
	return values, nil
}

// Records reads a header-row sheet into one map per data row keyed by header. Fully empty rows are dropped.
func (w *Workbook) Records(sheet string) ([]map[string]string, error) {
	rows, err := w.rows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(headers))
		for i, cell := range row {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			if v := strings.TrimSpace(cell); v != "" {
				record[headers[i]] = v
			}
		}
		if len(record) > 0 {
			records = append(records, record)
		}
	}
	return records, nil
}

func (w *Workbook) rows(sheet string) ([][]string, error) {
	if !w.HasSheet(sheet) {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02/01/2006",
}

// ParseDate accepts a bare year, a formatted date or an Excel serial day number.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(raw) == 4 {
		if year, err := strconv.Atoi(raw); err == nil {
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// ParseAmount reads a monetary cell, tolerating currency symbols, spaces and thousands separators.
func ParseAmount(raw string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, raw)
	if cleaned == "" {
		return 0, fmt.Errorf("no amount in %q", raw)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return v, nil
}

// ParseYesNo treats yes/true/1 (any case) as true.
func ParseYesNo(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "true", "1":
		return true
	default:
		return false
	}
}
