package worksheet

import (
	"sort"

	"gspreadsheet/pkg/cell"
)

// dirtyTracker records edits not yet confirmed by the server.
type dirtyTracker struct {
	cells map[cell.Pos]struct{}
	meta  bool
}

func newDirtyTracker() *dirtyTracker {
	return &dirtyTracker{cells: make(map[cell.Pos]struct{})}
}

func (d *dirtyTracker) markCell(p cell.Pos) {
	d.cells[p] = struct{}{}
}

func (d *dirtyTracker) markMeta() {
	d.meta = true
}

func (d *dirtyTracker) isDirty() bool {
	return d.meta || len(d.cells) > 0
}

// dirtyCells returns the dirty coordinates in row-major order.
func (d *dirtyTracker) dirtyCells() []cell.Pos {
	ps := make([]cell.Pos, 0, len(d.cells))
	for p := range d.cells {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Row != ps[j].Row {
			return ps[i].Row < ps[j].Row
		}
		return ps[i].Col < ps[j].Col
	})
	return ps
}

func (d *dirtyTracker) clearCells(ps []cell.Pos) {
	for _, p := range ps {
		delete(d.cells, p)
	}
}

// clearOutside forgets edits to cells beyond rows x cols.
func (d *dirtyTracker) clearOutside(rows, cols int) {
	for p := range d.cells {
		if p.Row > rows || p.Col > cols {
			delete(d.cells, p)
		}
	}
}

func (d *dirtyTracker) clearMeta() {
	d.meta = false
}

func (d *dirtyTracker) reset() {
	d.cells = make(map[cell.Pos]struct{})
	d.meta = false
}
