package source

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// writeWorkbook builds an .xlsx file mimicking the accounting export: banner
// rows, then a header row, then data rows.
func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "export.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadFiltersByMarker(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Reporte de comprobantes"},
		{},
		{"Proveedor", "Documento Asociado", "Observación"},
		{"Suizo Argentina", "F-0001-20057036", "Cargar txt"},
		{"Suizo Argentina", "F-0001-20057037", "No procesar"},
		{"Monroe Americana", "F-0002-30012345", "cargar txt"},
	})

	items, err := NewExcelReader().Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}
	if items[0].Identifier != "20057036" || items[0].Provider != "Suizo Argentina" {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[0].FullDocument != "F-0001-20057036" {
		t.Errorf("FullDocument = %q", items[0].FullDocument)
	}
	if items[1].Identifier != "30012345" {
		t.Errorf("items[1] = %+v", items[1])
	}
}

func TestReadHeaderDetection(t *testing.T) {
	// Header buried below several banner rows, accent-free spelling.
	path := writeWorkbook(t, [][]interface{}{
		{"Empresa"},
		{"Fecha", "2026-08-29"},
		{},
		{},
		{"Nro", "Proveedor", "Fecha", "Documento Asociado", "Observacion"},
		{"1", "Suizo Argentina", "2026-08-28", "F-0001-20057036", "Cargar txt"},
	})

	items, err := NewExcelReader().Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(items) != 1 || items[0].Identifier != "20057036" {
		t.Fatalf("items = %+v", items)
	}
}

func TestReadMissingHeaderFails(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Proveedor", "Comprobante"},
		{"Suizo Argentina", "F-0001-20057036"},
	})

	if _, err := NewExcelReader().Read(path); err == nil {
		t.Fatal("expected header detection error")
	}
}

func TestReadKeepsDuplicatesAndOrder(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Proveedor", "Documento Asociado", "Observación"},
		{"Suizo Argentina", "F-0001-20057036", "Cargar txt"},
		{"Suizo Argentina", "F-0001-20057036", "Cargar txt"},
	})

	items, err := NewExcelReader().Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected duplicates kept, got %d items", len(items))
	}
	if items[0].RowIndex >= items[1].RowIndex {
		t.Errorf("row order lost: %d then %d", items[0].RowIndex, items[1].RowIndex)
	}
}

func TestReadSkipsIncompleteRows(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Proveedor", "Documento Asociado", "Observación"},
		{"", "F-0001-20057036", "Cargar txt"},
		{"Suizo Argentina", "", "Cargar txt"},
		{"Suizo Argentina", "F-0001-20057036", "Cargar txt"},
	})

	items, err := NewExcelReader().Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d: %+v", len(items), items)
	}
}

func TestExtractIdentifier(t *testing.T) {
	tests := []struct {
		document string
		want     string
	}{
		{"F-0001-20057036", "20057036"},
		{"A-0123-999", "999"},
		{"FC 0001-20057036", "20057036"}, // fallback: last dash segment
		{"20057036", "20057036"},         // no dashes at all
		{"", ""},
	}

	for _, tt := range tests {
		if got := extractIdentifier(tt.document); got != tt.want {
			t.Errorf("extractIdentifier(%q) = %q, want %q", tt.document, got, tt.want)
		}
	}
}
