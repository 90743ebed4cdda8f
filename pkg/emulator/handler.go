package emulator

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gspreadsheet/pkg/cell"
	"gspreadsheet/pkg/feed"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

func sendResponse(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", feed.ContentType+"; charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func sendText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, text)
}

func sendFeed(w http.ResponseWriter, v interface{}) {
	b, err := feed.Marshal(v)
	if err != nil {
		sendText(w, http.StatusInternalServerError, err.Error())
		return
	}
	sendResponse(w, http.StatusOK, b)
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (s *Server) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		line := r.Method + " " + r.URL.Path
		if r.URL.RawQuery != "" {
			line += "?" + r.URL.RawQuery
		}
		s.mu.Lock()
		s.requests = append(s.requests, line)
		s.mu.Unlock()
		log.Debug("emulator: ", line)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "GoogleLogin auth=")
		s.mu.Lock()
		_, valid := s.tokens[token]
		s.mu.Unlock()
		if !ok || !valid {
			sendText(w, http.StatusUnauthorized, "Token invalid")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) postClientLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		sendText(w, http.StatusBadRequest, "Error=BadRequest\n")
		return
	}
	email := r.PostForm.Get("Email")
	s.mu.Lock()
	defer s.mu.Unlock()
	password, ok := s.accounts[email]
	if !ok || password != r.PostForm.Get("Passwd") {
		sendText(w, http.StatusForbidden, "Error=BadAuthentication\n")
		return
	}
	token := s.issueToken(email)
	sendText(w, http.StatusOK, fmt.Sprintf("SID=sid\nLSID=lsid\nAuth=%s\n", token))
}

// lookup returns the worksheet named by the route, or nil after writing a 404.
// Callers hold s.mu.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) *sheet {
	sh, ok := s.sheets[sheetKey(chi.URLParam(r, "key"), chi.URLParam(r, "ws"))]
	if !ok {
		sendText(w, http.StatusNotFound, "Worksheet not found")
		return nil
	}
	return sh
}

func cellsFeedURL(r *http.Request, sh *sheet) string {
	return baseURL(r) + CellsFeedPath(sh.key, sh.id)
}

func worksheetURL(r *http.Request, sh *sheet) string {
	return fmt.Sprintf("%s/feeds/worksheets/%s/private/full/%s", baseURL(r), sh.key, sh.id)
}

func cellID(r *http.Request, sh *sheet, p cell.Pos) string {
	return fmt.Sprintf("%s/R%dC%d", cellsFeedURL(r, sh), p.Row, p.Col)
}

func cellEditURL(r *http.Request, sh *sheet, p cell.Pos) string {
	return fmt.Sprintf("%s/%d", cellID(r, sh, p), sh.cellVersion(p))
}

func (sh *sheet) cellEntry(r *http.Request, p cell.Pos) feed.CellEntry {
	fc := &feed.Cell{Row: p.Row, Col: p.Col}
	if c, ok := sh.cells[p]; ok {
		fc.InputValue = c.input
		fc.NumericValue = c.numeric
		fc.Value = c.display
	}
	return feed.CellEntry{
		ID: cellID(r, sh, p),
		Links: feed.Links{
			{Rel: "self", Type: feed.ContentType, Href: cellID(r, sh, p)},
			{Rel: feed.RelEdit, Type: feed.ContentType, Href: cellEditURL(r, sh, p)},
		},
		Cell: fc,
	}
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

func (s *Server) getCells(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh := s.lookup(w, r)
	if sh == nil {
		return
	}

	box := cell.Box{
		MinRow: max(queryInt(r, "min-row", 1), 1),
		MaxRow: min(queryInt(r, "max-row", sh.rows), sh.rows),
		MinCol: max(queryInt(r, "min-col", 1), 1),
		MaxCol: min(queryInt(r, "max-col", sh.cols), sh.cols),
	}
	f := &feed.CellsFeed{
		ID:    cellsFeedURL(r, sh),
		Title: sh.title,
		Links: feed.Links{
			{Rel: "http://schemas.google.com/g/2005#batch", Type: feed.ContentType, Href: cellsFeedURL(r, sh) + "/batch"},
		},
		RowCount: sh.rows,
		ColCount: sh.cols,
	}
	if r.URL.Query().Get("return-empty") == "true" {
		for row := box.MinRow; row <= box.MaxRow; row++ {
			for col := box.MinCol; col <= box.MaxCol; col++ {
				f.Entries = append(f.Entries, sh.cellEntry(r, cell.Pos{Row: row, Col: col}))
			}
		}
	} else {
		for _, p := range sh.positions() {
			if box.Contains(p) {
				f.Entries = append(f.Entries, sh.cellEntry(r, p))
			}
		}
	}
	sendFeed(w, f)
}

func (s *Server) postBatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		sendText(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := feed.ParseBatchFeed(body)
	if err != nil {
		sendText(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sh := s.lookup(w, r)
	if sh == nil {
		return
	}
	var fault *BatchFault
	if len(s.faults) > 0 {
		fault = &s.faults[0]
		s.faults = s.faults[1:]
	}

	resp := &feed.BatchFeed{ID: cellsFeedURL(r, sh)}
	for i, e := range req.Entries {
		if fault != nil && fault.Interrupted && i == 1 {
			resp.Entries = append(resp.Entries, feed.BatchEntry{
				Interrupted: &feed.BatchInterrupted{
					Reason:   fault.Reason,
					Parsed:   len(req.Entries),
					Success:  1,
					Failures: len(req.Entries) - 1,
				},
			})
			break
		}
		out := feed.BatchEntry{ID: e.ID, BatchID: e.BatchID, Operation: e.Operation}
		switch {
		case fault != nil && !fault.Interrupted && i == len(req.Entries)-1:
			out.Status = &feed.BatchStatus{Code: fault.Code, Reason: fault.Reason}
		case e.Cell == nil || e.Operation == nil || e.Operation.Type != "update":
			out.Status = &feed.BatchStatus{Code: http.StatusBadRequest, Reason: "Unsupported operation"}
		default:
			p := cell.Pos{Row: e.Cell.Row, Col: e.Cell.Col}
			edit, _ := e.Links.Find(feed.RelEdit)
			switch {
			case !p.Valid() || p.Row > sh.rows || p.Col > sh.cols:
				out.Status = &feed.BatchStatus{Code: http.StatusBadRequest, Reason: "Cell out of range"}
			case e.ID != cellID(r, sh, p):
				out.Status = &feed.BatchStatus{Code: http.StatusBadRequest, Reason: "Mismatched cell id"}
			case edit != cellEditURL(r, sh, p):
				out.Status = &feed.BatchStatus{Code: http.StatusConflict, Reason: "Version conflict"}
			default:
				sh.set(p, e.Cell.InputValue)
				out.Status = &feed.BatchStatus{Code: http.StatusOK, Reason: "Success"}
			}
		}
		resp.Entries = append(resp.Entries, out)
	}
	sh.recompute()
	sendFeed(w, resp)
}

func (sh *sheet) entry(r *http.Request) *feed.WorksheetEntry {
	id := worksheetURL(r, sh)
	return &feed.WorksheetEntry{
		ID:    id,
		Title: sh.title,
		Links: feed.Links{
			{Rel: feed.RelCellsFeed, Type: feed.ContentType, Href: cellsFeedURL(r, sh)},
			{Rel: "self", Type: feed.ContentType, Href: id},
			{Rel: feed.RelEdit, Type: feed.ContentType, Href: fmt.Sprintf("%s/%d", id, sh.version)},
		},
		RowCount: sh.rows,
		ColCount: sh.cols,
	}
}

func (s *Server) getWorksheet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh := s.lookup(w, r)
	if sh == nil {
		return
	}
	sendFeed(w, sh.entry(r))
}

// checkVersion writes a 409 and returns false when the edit link is stale.
func checkVersion(w http.ResponseWriter, r *http.Request, sh *sheet) bool {
	if chi.URLParam(r, "version") != strconv.Itoa(sh.version) {
		sendText(w, http.StatusConflict, "Version conflict")
		return false
	}
	return true
}

func (s *Server) putWorksheet(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		sendText(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := feed.ParseWorksheetEntry(body)
	if err != nil {
		sendText(w, http.StatusBadRequest, err.Error())
		return
	}
	if e.RowCount < 1 || e.ColCount < 1 {
		sendText(w, http.StatusBadRequest, "Invalid dimensions")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sh := s.lookup(w, r)
	if sh == nil || !checkVersion(w, r, sh) {
		return
	}
	sh.title = e.Title
	sh.rows = e.RowCount
	sh.cols = e.ColCount
	sh.version++
	sh.truncate()
	sh.recompute()
	sendFeed(w, sh.entry(r))
}

func (s *Server) deleteWorksheet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh := s.lookup(w, r)
	if sh == nil || !checkVersion(w, r, sh) {
		return
	}
	delete(s.sheets, sheetKey(sh.key, sh.id))
	sendResponse(w, http.StatusOK, nil)
}
