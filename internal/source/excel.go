package source

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/lromero/facturabot/internal/domain"
)

const (
	// headerScanLimit bounds how deep the header row is searched for; real
	// exports carry a few banner rows above it.
	headerScanLimit = 20

	// markerValue is the observation cell value that flags a row for
	// processing.
	markerValue = "cargar txt"
)

// Exports name the document column like "F-0001-20057036"; the trailing run
// of digits is the invoice identifier.
var documentPattern = regexp.MustCompile(`^[A-Z]-\d{4}-(\d+)$`)

// ExcelReader extracts work items from the accounting system's .xlsx export.
// It locates the header row by its column titles, keeps only rows whose
// observation cell carries the processing marker, and derives the invoice
// identifier from the associated document number.
type ExcelReader struct{}

func NewExcelReader() *ExcelReader {
	return &ExcelReader{}
}

func (er *ExcelReader) Read(path string) ([]domain.WorkItem, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()
	return er.parse(f)
}

func (er *ExcelReader) ReadFrom(r io.Reader) ([]domain.WorkItem, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return er.parse(f)
}

func (er *ExcelReader) parse(f *excelize.File) ([]domain.WorkItem, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	headerRow, cols, err := findHeader(rows)
	if err != nil {
		return nil, err
	}

	var items []domain.WorkItem
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if !strings.EqualFold(strings.TrimSpace(cell(row, cols.observation)), markerValue) {
			continue
		}

		provider := strings.TrimSpace(cell(row, cols.provider))
		document := strings.TrimSpace(cell(row, cols.document))
		identifier := extractIdentifier(document)
		if provider == "" || identifier == "" {
			continue
		}

		items = append(items, domain.WorkItem{
			Provider:     provider,
			Identifier:   identifier,
			FullDocument: document,
			RowIndex:     i + 1,
		})
	}
	return items, nil
}

// columnMap holds the zero-based indexes of the three columns the reader
// cares about.
type columnMap struct {
	provider    int
	document    int
	observation int
}

// findHeader scans the top of the sheet for the row naming all three
// required columns and returns its index plus the column positions.
func findHeader(rows [][]string) (int, columnMap, error) {
	limit := headerScanLimit
	if len(rows) < limit {
		limit = len(rows)
	}

	for i := 0; i < limit; i++ {
		cols := columnMap{provider: -1, document: -1, observation: -1}
		for j, raw := range rows[i] {
			switch normalizeHeader(raw) {
			case "proveedor":
				cols.provider = j
			case "documento asociado":
				cols.document = j
			case "observacion":
				cols.observation = j
			}
		}
		if cols.provider >= 0 && cols.document >= 0 && cols.observation >= 0 {
			return i, cols, nil
		}
	}
	return 0, columnMap{}, fmt.Errorf("header row not found in first %d rows", limit)
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u").Replace(s)
}

// extractIdentifier pulls the invoice number out of a document reference
// like "F-0001-20057036". References that do not match the pattern fall
// back to the last dash-separated segment.
func extractIdentifier(document string) string {
	if document == "" {
		return ""
	}
	if m := documentPattern.FindStringSubmatch(document); m != nil {
		return m[1]
	}
	if idx := strings.LastIndex(document, "-"); idx >= 0 {
		return strings.TrimSpace(document[idx+1:])
	}
	return document
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
