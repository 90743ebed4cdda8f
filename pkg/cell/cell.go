package cell

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidAddress is matched by every *InvalidAddressError.
var ErrInvalidAddress = errors.New("invalid cell address")

// InvalidAddressError reports a label or coordinate that does not name a cell.
type InvalidAddressError struct {
	Label string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid cell address: %q", e.Label)
}

func (e *InvalidAddressError) Is(target error) bool {
	return target == ErrInvalidAddress
}

// Pos is a 1-based (row, column) coordinate. Top-left cell is {1, 1}.
type Pos struct {
	Row int
	Col int
}

// String formats the position as an A1 label.
func (p Pos) String() string {
	return Encode(p.Row, p.Col)
}

// Valid reports whether both indices are positive.
func (p Pos) Valid() bool {
	return p.Row >= 1 && p.Col >= 1
}

// Check returns an *InvalidAddressError for non-positive coordinates.
func Check(row, col int) error {
	if row < 1 || col < 1 {
		return &InvalidAddressError{Label: fmt.Sprintf("R%dC%d", row, col)}
	}
	return nil
}

var labelPattern = regexp.MustCompile(`^([A-Za-z]+)([0-9]+)$`)

// Decode parses a label such as "A1", "z32" or "AA10".
// A1 => {1,1}; B1 => {1,2}; Z32 => {32,26}
func Decode(label string) (Pos, error) {
	m := labelPattern.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return Pos{}, &InvalidAddressError{Label: label}
	}
	col := 0
	for _, b := range []byte(strings.ToUpper(m[1])) {
		if col > (math.MaxInt-26)/26 {
			return Pos{}, &InvalidAddressError{Label: label}
		}
		col = col*26 + int(b-'A') + 1
	}
	row, err := strconv.Atoi(m[2])
	if err != nil || row < 1 {
		return Pos{}, &InvalidAddressError{Label: label}
	}
	return Pos{Row: row, Col: col}, nil
}

// ColumnName converts a 1-based column index to letters.
// 1→"A", 26→"Z", 27→"AA", 703→"AAA"
func ColumnName(col int) string {
	var buf []byte
	for col > 0 {
		col--
		buf = append([]byte{byte('A' + col%26)}, buf...)
		col /= 26
	}
	return string(buf)
}

// Encode produces the A1 label for a 1-based row and column.
func Encode(row, col int) string {
	return ColumnName(col) + strconv.Itoa(row)
}

// Box is the smallest rectangle covering a set of positions.
type Box struct {
	MinRow, MaxRow int
	MinCol, MaxCol int
}

// Bounds computes the bounding box of ps. ok is false when ps is empty.
func Bounds(ps []Pos) (b Box, ok bool) {
	for i, p := range ps {
		if i == 0 {
			b = Box{MinRow: p.Row, MaxRow: p.Row, MinCol: p.Col, MaxCol: p.Col}
			continue
		}
		b.MinRow = min(b.MinRow, p.Row)
		b.MaxRow = max(b.MaxRow, p.Row)
		b.MinCol = min(b.MinCol, p.Col)
		b.MaxCol = max(b.MaxCol, p.Col)
	}
	return b, len(ps) > 0
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p Pos) bool {
	return p.Row >= b.MinRow && p.Row <= b.MaxRow && p.Col >= b.MinCol && p.Col <= b.MaxCol
}
