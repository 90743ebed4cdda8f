// Package worksheet mirrors a remote worksheet in memory. Reads are served
// from the mirror, writes are staged locally and uploaded by Save.
package worksheet

import (
	"context"
	"fmt"
	"regexp"

	"gspreadsheet/pkg/cell"
)

// Transport performs authenticated feed requests and returns response bodies.
// *session.Session implements it.
type Transport interface {
	Get(ctx context.Context, url string) ([]byte, error)
	Post(ctx context.Context, url string, body []byte) ([]byte, error)
	Put(ctx context.Context, url string, body []byte) ([]byte, error)
	Delete(ctx context.Context, url string) ([]byte, error)
}

type State int

const (
	// Unloaded is the initial state; nothing has been fetched yet.
	Unloaded State = iota
	// Loaded means the mirror holds a full copy of the worksheet, possibly
	// with local edits pending.
	Loaded
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loaded:
		return "loaded"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Worksheet is a handle on one remote worksheet. It is not safe for
// concurrent use; separate handles may be used from separate goroutines.
//
// Every accessor and mutator loads the worksheet first if it is still
// Unloaded, which is why they take a context and can fail.
type Worksheet struct {
	transport    Transport
	cellsFeedURL string

	state State
	store *store
	dirty *dirtyTracker
}

// New returns an unloaded handle for the worksheet whose cell-based feed is
// at cellsFeedURL.
func New(t Transport, cellsFeedURL string) *Worksheet {
	return &Worksheet{
		transport:    t,
		cellsFeedURL: cellsFeedURL,
		state:        Unloaded,
		store:        newStore(),
		dirty:        newDirtyTracker(),
	}
}

func (w *Worksheet) CellsFeedURL() string {
	return w.cellsFeedURL
}

var cellsFeedPattern = regexp.MustCompile(`^(.*)/feeds/cells/([^/]+)/([^/]+)/private/full$`)

// WorksheetFeedURL derives the worksheet entry URL from the cells feed URL.
func (w *Worksheet) WorksheetFeedURL() (string, error) {
	m := cellsFeedPattern.FindStringSubmatch(w.cellsFeedURL)
	if m == nil {
		return "", fmt.Errorf("cells feed URL is in unknown format: %s", w.cellsFeedURL)
	}
	return fmt.Sprintf("%s/feeds/worksheets/%s/private/full/%s", m[1], m[2], m[3]), nil
}

func (w *Worksheet) State() State {
	return w.state
}

// Load fetches the worksheet if it has not been loaded yet.
func (w *Worksheet) Load(ctx context.Context) error {
	if w.state == Loaded {
		return nil
	}
	return w.Reload(ctx)
}

// Dirty reports whether there are cell or metadata edits not yet saved.
func (w *Worksheet) Dirty() bool {
	return w.dirty.isDirty()
}

func (w *Worksheet) at(ctx context.Context, row, col int) (cell.Pos, error) {
	if err := cell.Check(row, col); err != nil {
		return cell.Pos{}, err
	}
	if err := w.Load(ctx); err != nil {
		return cell.Pos{}, err
	}
	return cell.Pos{Row: row, Col: col}, nil
}

func (w *Worksheet) atLabel(ctx context.Context, label string) (cell.Pos, error) {
	p, err := cell.Decode(label)
	if err != nil {
		return cell.Pos{}, err
	}
	return w.at(ctx, p.Row, p.Col)
}

// Value returns the displayed content of a cell, "" when empty.
// Top-left cell is (1, 1).
func (w *Worksheet) Value(ctx context.Context, row, col int) (string, error) {
	p, err := w.at(ctx, row, col)
	if err != nil {
		return "", err
	}
	return w.store.get(p), nil
}

// ValueAt is Value addressed by a label such as "B3".
func (w *Worksheet) ValueAt(ctx context.Context, label string) (string, error) {
	p, err := w.atLabel(ctx, label)
	if err != nil {
		return "", err
	}
	return w.store.get(p), nil
}

// InputValue returns the formula or literal entered in a cell. For a cell
// holding "=A1+B1" Value might be "3" while InputValue is the formula.
func (w *Worksheet) InputValue(ctx context.Context, row, col int) (string, error) {
	p, err := w.at(ctx, row, col)
	if err != nil {
		return "", err
	}
	return w.store.input(p), nil
}

func (w *Worksheet) InputValueAt(ctx context.Context, label string) (string, error) {
	p, err := w.atLabel(ctx, label)
	if err != nil {
		return "", err
	}
	return w.store.input(p), nil
}

// NumericValue returns the numeric value the server reported for a cell.
// ok is false for non-numeric cells and for cells edited since the last load.
func (w *Worksheet) NumericValue(ctx context.Context, row, col int) (v float64, ok bool, err error) {
	p, err := w.at(ctx, row, col)
	if err != nil {
		return 0, false, err
	}
	v, ok = w.store.numeric(p)
	return v, ok, nil
}

func (w *Worksheet) NumericValueAt(ctx context.Context, label string) (v float64, ok bool, err error) {
	p, err := w.atLabel(ctx, label)
	if err != nil {
		return 0, false, err
	}
	v, ok = w.store.numeric(p)
	return v, ok, nil
}

// Set updates a cell locally. The change is not sent until Save.
func (w *Worksheet) Set(ctx context.Context, row, col int, value string) error {
	p, err := w.at(ctx, row, col)
	if err != nil {
		return err
	}
	w.set(p, value)
	return nil
}

// SetAt is Set addressed by a label.
func (w *Worksheet) SetAt(ctx context.Context, label, value string) error {
	p, err := w.atLabel(ctx, label)
	if err != nil {
		return err
	}
	w.set(p, value)
	return nil
}

func (w *Worksheet) set(p cell.Pos, value string) {
	if w.store.set(p, value) {
		w.dirty.markMeta()
	}
	w.dirty.markCell(p)
}

// NumRows is the row number of the bottom-most non-empty row.
func (w *Worksheet) NumRows(ctx context.Context) (int, error) {
	if err := w.Load(ctx); err != nil {
		return 0, err
	}
	return w.store.numRows(), nil
}

// NumCols is the column number of the right-most non-empty column.
func (w *Worksheet) NumCols(ctx context.Context) (int, error) {
	if err := w.Load(ctx); err != nil {
		return 0, err
	}
	return w.store.numCols(), nil
}

// MaxRows is the number of rows including empty rows.
func (w *Worksheet) MaxRows(ctx context.Context) (int, error) {
	if err := w.Load(ctx); err != nil {
		return 0, err
	}
	return w.store.maxRows, nil
}

// MaxCols is the number of columns including empty columns.
func (w *Worksheet) MaxCols(ctx context.Context) (int, error) {
	if err := w.Load(ctx); err != nil {
		return 0, err
	}
	return w.store.maxCols, nil
}

func (w *Worksheet) SetMaxRows(ctx context.Context, rows int) error {
	if rows < 1 {
		return fmt.Errorf("row count must be positive: %d", rows)
	}
	if err := w.Load(ctx); err != nil {
		return err
	}
	w.store.maxRows = rows
	w.dirty.markMeta()
	return nil
}

func (w *Worksheet) SetMaxCols(ctx context.Context, cols int) error {
	if cols < 1 {
		return fmt.Errorf("column count must be positive: %d", cols)
	}
	if err := w.Load(ctx); err != nil {
		return err
	}
	w.store.maxCols = cols
	w.dirty.markMeta()
	return nil
}

// Title is the worksheet's tab label.
func (w *Worksheet) Title(ctx context.Context) (string, error) {
	if err := w.Load(ctx); err != nil {
		return "", err
	}
	return w.store.title, nil
}

func (w *Worksheet) SetTitle(ctx context.Context, title string) error {
	if err := w.Load(ctx); err != nil {
		return err
	}
	w.store.title = title
	w.dirty.markMeta()
	return nil
}

// Rows returns display values as a 0-origin grid, so rows[0][0] is the
// value of (1+skip, 1). Every row has NumCols entries.
func (w *Worksheet) Rows(ctx context.Context, skip int) ([][]string, error) {
	if err := w.Load(ctx); err != nil {
		return nil, err
	}
	nr, nc := w.store.numRows(), w.store.numCols()
	var rows [][]string
	for row := 1 + skip; row <= nr; row++ {
		values := make([]string, nc)
		for col := 1; col <= nc; col++ {
			values[col-1] = w.store.get(cell.Pos{Row: row, Col: col})
		}
		rows = append(rows, values)
	}
	return rows, nil
}
