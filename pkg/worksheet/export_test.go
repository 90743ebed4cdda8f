package worksheet

import (
	"bytes"
	"context"
	"testing"

	"gspreadsheet/pkg/feed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func exportFixture(t *testing.T) *Worksheet {
	body := cellsFeed(t, "Q1: sales/costs", 20, 5,
		feed.Cell{Row: 1, Col: 1, InputValue: "name", Value: "name"},
		feed.Cell{Row: 2, Col: 1, InputValue: "2", NumericValue: "2.0", Value: "2"},
		feed.Cell{Row: 2, Col: 2, InputValue: "3", NumericValue: "3.0", Value: "3"},
		feed.Cell{Row: 2, Col: 3, InputValue: "=A2+B2", NumericValue: "5.0", Value: "5"},
	)
	_, ws := newMockWorksheet(t, body)
	return ws
}

func openExport(t *testing.T, ws *Worksheet, opts ExportOptions) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, ws.WriteXLSX(context.Background(), &buf, opts))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWriteXLSXValues(t *testing.T) {
	ws := exportFixture(t)
	require.NoError(t, ws.SetAt(context.Background(), "B1", "unsaved"))

	f := openExport(t, ws, ExportOptions{})
	assert.Equal(t, []string{"Q1_ sales_costs"}, f.GetSheetList())

	sheet := "Q1_ sales_costs"
	for label, want := range map[string]string{
		"A1": "name",
		"B1": "unsaved",
		"A2": "2",
		"C2": "5",
	} {
		got, err := f.GetCellValue(sheet, label)
		require.NoError(t, err)
		assert.Equal(t, want, got, label)
	}
	formula, err := f.GetCellFormula(sheet, "C2")
	require.NoError(t, err)
	assert.Empty(t, formula)
}

func TestWriteXLSXFormulas(t *testing.T) {
	f := openExport(t, exportFixture(t), ExportOptions{Formulas: true})

	formula, err := f.GetCellFormula("Q1_ sales_costs", "C2")
	require.NoError(t, err)
	assert.Equal(t, "A2+B2", formula)
}

func TestXLSXSheetName(t *testing.T) {
	assert.Equal(t, "plain", xlsxSheetName("plain"))
	assert.Equal(t, "a_b_c", xlsxSheetName("a[b]c"))
	assert.Equal(t, "quoted", xlsxSheetName("'quoted'"))
	assert.Len(t, []rune(xlsxSheetName("0123456789012345678901234567890123456789")), 31)
	assert.Equal(t, "", xlsxSheetName("''"))
}
