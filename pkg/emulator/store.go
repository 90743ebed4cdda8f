// Package emulator serves an in-memory imitation of the GData spreadsheet
// feeds: ClientLogin, cell feeds, batch cell updates and worksheet metadata.
package emulator

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"gspreadsheet/pkg/cell"
)

// BatchFault makes the next batch request misbehave.
type BatchFault struct {
	// Interrupted aborts the batch after the first sub-operation.
	Interrupted bool
	// Code is reported for the last sub-operation when not interrupted.
	Code   int
	Reason string
}

type cellData struct {
	input   string
	display string
	numeric string
	version int
}

type sheet struct {
	key     string
	id      string
	title   string
	rows    int
	cols    int
	version int
	cells   map[cell.Pos]*cellData
}

// Server holds emulated accounts, tokens and worksheets. It is safe for
// concurrent use.
type Server struct {
	mu        sync.Mutex
	accounts  map[string]string
	tokens    map[string]string
	sheets    map[string]*sheet
	faults    []BatchFault
	requests  []string
	nextToken int
}

func New() *Server {
	return &Server{
		accounts: make(map[string]string),
		tokens:   make(map[string]string),
		sheets:   make(map[string]*sheet),
	}
}

func sheetKey(key, ws string) string {
	return key + "/" + ws
}

// CellsFeedPath is the path of the cells feed of a worksheet.
func CellsFeedPath(key, ws string) string {
	return fmt.Sprintf("/feeds/cells/%s/%s/private/full", key, ws)
}

func (s *Server) AddAccount(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[email] = password
}

// IssueToken creates a valid token for email without a login round trip.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueToken(email)
}

func (s *Server) issueToken(email string) string {
	s.nextToken++
	token := fmt.Sprintf("token-%d", s.nextToken)
	s.tokens[token] = email
	return token
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

// AddWorksheet creates an empty worksheet, replacing any existing one.
func (s *Server) AddWorksheet(key, ws, title string, rows, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[sheetKey(key, ws)] = &sheet{
		key:     key,
		id:      ws,
		title:   title,
		rows:    rows,
		cols:    cols,
		version: 1,
		cells:   make(map[cell.Pos]*cellData),
	}
}

// SetCell stores input at (row, col) and recomputes the worksheet.
func (s *Server) SetCell(key, ws string, row, col int, input string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.sheets[sheetKey(key, ws)]
	if !ok {
		return fmt.Errorf("no worksheet %s", sheetKey(key, ws))
	}
	sh.set(cell.Pos{Row: row, Col: col}, input)
	sh.recompute()
	return nil
}

// Cell returns the stored input and display values.
func (s *Server) Cell(key, ws string, row, col int) (input, display string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, exists := s.sheets[sheetKey(key, ws)]
	if !exists {
		return "", "", false
	}
	c, exists := sh.cells[cell.Pos{Row: row, Col: col}]
	if !exists {
		return "", "", false
	}
	return c.input, c.display, true
}

// Worksheet reports the metadata of a worksheet.
func (s *Server) Worksheet(key, ws string) (title string, rows, cols int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, exists := s.sheets[sheetKey(key, ws)]
	if !exists {
		return "", 0, 0, false
	}
	return sh.title, sh.rows, sh.cols, true
}

// InjectBatchFault queues a fault for a later batch request.
func (s *Server) InjectBatchFault(f BatchFault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, f)
}

// Requests returns "METHOD path?query" for every request served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func (sh *sheet) set(p cell.Pos, input string) {
	if input == "" {
		delete(sh.cells, p)
		return
	}
	c, ok := sh.cells[p]
	if !ok {
		c = &cellData{}
		sh.cells[p] = c
	}
	c.input = input
	c.version++
	if p.Row > sh.rows {
		sh.rows = p.Row
	}
	if p.Col > sh.cols {
		sh.cols = p.Col
	}
}

func (sh *sheet) cellVersion(p cell.Pos) int {
	if c, ok := sh.cells[p]; ok {
		return c.version
	}
	return 0
}

// truncate drops cells outside the declared extent.
func (sh *sheet) truncate() {
	for p := range sh.cells {
		if p.Row > sh.rows || p.Col > sh.cols {
			delete(sh.cells, p)
		}
	}
}

// positions returns the occupied coordinates in row-major order.
func (sh *sheet) positions() []cell.Pos {
	ps := make([]cell.Pos, 0, len(sh.cells))
	for p := range sh.cells {
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

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
