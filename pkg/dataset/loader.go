package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Load reads a dataset file. The codec is picked from the extension:
// semicolon separated .csv or the first sheet of an .xlsx workbook.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return Read(f, path)
}

// Read parses a dataset from r. name is only used to pick the codec and as
// the snapshot source label.
func Read(r io.Reader, name string) (*Snapshot, error) {
	var (
		rows [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".txt", "":
		rows, err = readCSV(r)
	case ".xlsx":
		rows, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q (expected .csv or .xlsx)", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	return Parse(rows, name)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open workbook: %w", ErrMalformedInput, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read first sheet: %w", ErrMalformedInput, err)
	}
	return rows, nil
}

// Parse builds a snapshot from raw rows, the first one being the header.
func Parse(rows [][]string, source string) (*Snapshot, error) {
	rows = dropBlankRows(rows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrMalformedInput)
	}

	header := normalizeHeader(rows[0])
	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &SchemaError{Column: col, Header: header}
		}
	}

	dataRows := rows[1:]
	if len(dataRows) == 0 {
		return nil, fmt.Errorf("%w: header without data rows", ErrMalformedInput)
	}

	col := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		return -1
	}
	titleIdx := col(ColumnTitle)
	awardedIdx := col(ColumnAwardedTitle)
	themeIdx := col(ColumnTheme)
	editionIdx := col(ColumnEdition)
	districtIdx := col(ColumnDistrict)
	statusIdx := col(ColumnStatus)
	priorityIdx := col(ColumnPriority)
	budgetIdx := col(ColumnBudget)

	records := make([]HistoricalRecord, 0, len(dataRows))
	for i, row := range dataRows {
		line := i + 2
		rec := HistoricalRecord{
			Title:              textCell(row, titleIdx),
			AwardedTitle:       textCell(row, awardedIdx),
			Theme:              textCell(row, themeIdx),
			District:           textCell(row, districtIdx),
			ProgressStatus:     textCell(row, statusIdx),
			IsPriorityDistrict: textCell(row, priorityIdx),
		}

		if editionIdx >= 0 {
			raw := cell(row, editionIdx)
			v, ok, err := parseNumber(raw)
			if err != nil {
				return nil, &RowError{Line: line, Column: ColumnEdition, Value: raw}
			}
			rec.Edition, rec.HasEdition = int(v), ok
		}
		if budgetIdx >= 0 {
			raw := cell(row, budgetIdx)
			v, ok, err := parseNumber(raw)
			if err != nil {
				return nil, &RowError{Line: line, Column: ColumnBudget, Value: raw}
			}
			rec.AwardedBudget, rec.HasBudget = v, ok
		}

		records = append(records, rec)
	}

	columns := Columns{Edition: editionIdx >= 0, Budget: budgetIdx >= 0}
	return NewSnapshot(source, columns, records), nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// textCell returns the normalized cell, "" standing for a missing value.
func textCell(row []string, idx int) string {
	v := normalizeCell(cell(row, idx))
	if isMissing(v) {
		return ""
	}
	return v
}

func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		for _, v := range row {
			if strings.TrimSpace(v) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
