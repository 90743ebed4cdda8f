package worksheet

import (
	"gspreadsheet/pkg/cell"
)

type cellValue struct {
	display string
	input   string
	numeric float64
	// hasNumeric is set only when the server reported a numeric value.
	hasNumeric bool
}

// store is the in-memory mirror of one worksheet. Absent entries are empty
// cells.
type store struct {
	cells   map[cell.Pos]cellValue
	maxRows int
	maxCols int
	title   string
}

func newStore() *store {
	return &store{cells: make(map[cell.Pos]cellValue)}
}

func (s *store) get(p cell.Pos) string {
	return s.cells[p].display
}

func (s *store) input(p cell.Pos) string {
	return s.cells[p].input
}

func (s *store) numeric(p cell.Pos) (float64, bool) {
	v := s.cells[p]
	return v.numeric, v.hasNumeric
}

// set writes value to both the display and input facets and drops any stale
// numeric value. It reports whether the declared extent had to grow.
func (s *store) set(p cell.Pos, value string) (extended bool) {
	if value == "" {
		delete(s.cells, p)
	} else {
		s.cells[p] = cellValue{display: value, input: value}
	}
	if p.Row > s.maxRows {
		s.maxRows = p.Row
		extended = true
	}
	if p.Col > s.maxCols {
		s.maxCols = p.Col
		extended = true
	}
	return extended
}

// numRows is the bottom-most occupied row, 0 when empty.
func (s *store) numRows() int {
	n := 0
	for p := range s.cells {
		n = max(n, p.Row)
	}
	return n
}

// numCols is the right-most occupied column, 0 when empty.
func (s *store) numCols() int {
	n := 0
	for p := range s.cells {
		n = max(n, p.Col)
	}
	return n
}

// truncate drops cells outside the declared extent, as the server does when
// the worksheet shrinks.
func (s *store) truncate() {
	for p := range s.cells {
		if p.Row > s.maxRows || p.Col > s.maxCols {
			delete(s.cells, p)
		}
	}
}
