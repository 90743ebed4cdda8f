package worksheet

import (
	"context"
	"io"
	"sort"
	"strings"

	"gspreadsheet/pkg/cell"

	"github.com/xuri/excelize/v2"
)

type ExportOptions struct {
	// Formulas writes input values starting with "=" as cell formulas
	// instead of their displayed results.
	Formulas bool
}

const maxSheetNameLength = 31

var sheetNameReplacer = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
)

// xlsxSheetName turns a worksheet title into a name Excel accepts.
func xlsxSheetName(title string) string {
	name := strings.Trim(sheetNameReplacer.Replace(title), "' ")
	if r := []rune(name); len(r) > maxSheetNameLength {
		name = string(r[:maxSheetNameLength])
	}
	return name
}

// WriteXLSX writes the mirror, including unsaved edits, as an xlsx workbook
// with a single sheet named after the worksheet title.
func (w *Worksheet) WriteXLSX(ctx context.Context, out io.Writer, opts ExportOptions) error {
	if err := w.Load(ctx); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	if name := xlsxSheetName(w.store.title); name != "" && name != sheet {
		if err := f.SetSheetName(sheet, name); err != nil {
			return err
		}
		sheet = name
	}

	ps := make([]cell.Pos, 0, len(w.store.cells))
	for p := range w.store.cells {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Row != ps[j].Row {
			return ps[i].Row < ps[j].Row
		}
		return ps[i].Col < ps[j].Col
	})

	for _, p := range ps {
		name, err := excelize.CoordinatesToCellName(p.Col, p.Row)
		if err != nil {
			return err
		}
		v := w.store.cells[p]
		switch {
		case opts.Formulas && strings.HasPrefix(v.input, "="):
			err = f.SetCellFormula(sheet, name, strings.TrimPrefix(v.input, "="))
		case v.hasNumeric:
			err = f.SetCellFloat(sheet, name, v.numeric, -1, 64)
		default:
			err = f.SetCellStr(sheet, name, v.display)
		}
		if err != nil {
			return err
		}
	}
	return f.Write(out)
}
