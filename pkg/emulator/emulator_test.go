package emulator

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"gspreadsheet/pkg/cell"
	"gspreadsheet/pkg/feed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormulaEvaluation(t *testing.T) {
	s := New()
	s.AddWorksheet("key", "od6", "Sheet1", 10, 10)
	set := func(row, col int, input string) {
		require.NoError(t, s.SetCell("key", "od6", row, col, input))
	}
	set(1, 1, "10")
	set(1, 2, "4")
	set(1, 4, "abc")

	tests := []struct {
		input, display string
	}{
		{"=A1+B1", "14"},
		{"=A1/B1", "2.5"},
		{"=$A$1*2", "20"},
		{"=a1-b1", "6"},
		{"=A1+D1", "10"},
		{"=A1+J9", "10"},
		{"=1+2", "3"},
		{"=A1>B1", "TRUE"},
		{"=A1+", "#ERROR!"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		set(2, 1, tt.input)
		input, display, ok := s.Cell("key", "od6", 2, 1)
		require.True(t, ok)
		assert.Equal(t, tt.input, input)
		assert.Equal(t, tt.display, display, tt.input)
	}
}

func TestFormulaChainsAndCycles(t *testing.T) {
	s := New()
	s.AddWorksheet("key", "od6", "Sheet1", 10, 10)
	require.NoError(t, s.SetCell("key", "od6", 1, 3, "=B1*2"))
	require.NoError(t, s.SetCell("key", "od6", 1, 2, "=A1+1"))
	require.NoError(t, s.SetCell("key", "od6", 1, 1, "2"))

	_, display, _ := s.Cell("key", "od6", 1, 3)
	assert.Equal(t, "6", display)

	// Cycles terminate.
	require.NoError(t, s.SetCell("key", "od6", 1, 1, "=C1"))
	_, _, ok := s.Cell("key", "od6", 1, 1)
	assert.True(t, ok)
}

func TestSetCellExtendsAndDeletes(t *testing.T) {
	s := New()
	s.AddWorksheet("key", "od6", "Sheet1", 10, 10)
	require.NoError(t, s.SetCell("key", "od6", 12, 15, "x"))
	_, rows, cols, ok := s.Worksheet("key", "od6")
	require.True(t, ok)
	assert.Equal(t, 12, rows)
	assert.Equal(t, 15, cols)

	require.NoError(t, s.SetCell("key", "od6", 12, 15, ""))
	_, _, ok = s.Cell("key", "od6", 12, 15)
	assert.False(t, ok)

	assert.Error(t, s.SetCell("key", "missing", 1, 1, "x"))
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func newClient(t *testing.T) (*Server, *client) {
	s := New()
	s.AddAccount("user@example.com", "secret")
	s.AddWorksheet("key", "od6", "Sheet1", 10, 5)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, &client{t: t, base: srv.URL, token: s.IssueToken("user@example.com")}
}

func (c *client) do(method, path string, body []byte) (int, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, bytes.NewReader(body))
	require.NoError(c.t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "GoogleLogin auth="+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, b
}

func TestClientLogin(t *testing.T) {
	_, c := newClient(t)

	form := url.Values{"Email": {"user@example.com"}, "Passwd": {"secret"}}
	resp, err := http.PostForm(c.base+"/accounts/ClientLogin", form)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "\nAuth=token-2\n")

	form.Set("Passwd", "wrong")
	resp, err = http.PostForm(c.base+"/accounts/ClientLogin", form)
	require.NoError(t, err)
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Error=BadAuthentication\n", string(b))
}

func TestFeedsRequireToken(t *testing.T) {
	s, c := newClient(t)
	c.token = "forged"
	code, _ := c.do(http.MethodGet, CellsFeedPath("key", "od6"), nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	c.token = s.IssueToken("user@example.com")
	code, _ = c.do(http.MethodGet, CellsFeedPath("key", "od6"), nil)
	assert.Equal(t, http.StatusOK, code)

	s.RevokeTokens()
	code, _ = c.do(http.MethodGet, CellsFeedPath("key", "od6"), nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestGetCells(t *testing.T) {
	s, c := newClient(t)
	require.NoError(t, s.SetCell("key", "od6", 2, 2, "7"))
	require.NoError(t, s.SetCell("key", "od6", 9, 1, "far"))

	code, body := c.do(http.MethodGet, CellsFeedPath("key", "od6"), nil)
	require.Equal(t, http.StatusOK, code)
	f, err := feed.ParseCellsFeed(body)
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", f.Title)
	assert.Equal(t, 10, f.RowCount)
	assert.Equal(t, 5, f.ColCount)
	require.Len(t, f.Entries, 2)
	assert.Equal(t, "7", f.Entries[0].Cell.NumericValue)
	assert.True(t, strings.HasSuffix(f.Entries[0].ID, "/R2C2"))
	edit, ok := f.Entries[0].Links.Find(feed.RelEdit)
	require.True(t, ok)
	assert.Equal(t, f.Entries[0].ID+"/1", edit)

	code, body = c.do(http.MethodGet, CellsFeedPath("key", "od6")+"?return-empty=true&min-row=1&max-row=2&min-col=2&max-col=9", nil)
	require.Equal(t, http.StatusOK, code)
	f, err = feed.ParseCellsFeed(body)
	require.NoError(t, err)
	// Columns are clamped to the sheet extent.
	assert.Len(t, f.Entries, 8)
	edit, _ = f.Entries[0].Links.Find(feed.RelEdit)
	assert.True(t, strings.HasSuffix(edit, "/R1C2/0"))

	code, _ = c.do(http.MethodGet, CellsFeedPath("key", "nope"), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBatchVersionConflict(t *testing.T) {
	s, c := newClient(t)
	require.NoError(t, s.SetCell("key", "od6", 1, 1, "v1"))
	id := c.base + CellsFeedPath("key", "od6") + "/R1C1"

	body, err := feed.BatchUpdate(c.base+CellsFeedPath("key", "od6"), []feed.CellUpdate{
		{Pos: cell.Pos{Row: 1, Col: 1}, ID: id, EditURL: id + "/0", InputValue: "stale"},
	})
	require.NoError(t, err)
	_, body = c.do(http.MethodPost, CellsFeedPath("key", "od6")+"/batch", body)
	resp, err := feed.ParseBatchFeed(body)
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, http.StatusConflict, resp.Entries[0].Status.Code)

	input, _, _ := s.Cell("key", "od6", 1, 1)
	assert.Equal(t, "v1", input)
}

func TestWorksheetEntryLifecycle(t *testing.T) {
	s, c := newClient(t)
	require.NoError(t, s.SetCell("key", "od6", 8, 5, "dropped"))
	path := "/feeds/worksheets/key/private/full/od6"

	code, body := c.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, code)
	e, err := feed.ParseWorksheetEntry(body)
	require.NoError(t, err)
	edit, ok := e.Links.Find(feed.RelEdit)
	require.True(t, ok)
	assert.Equal(t, c.base+path+"/1", edit)

	meta, err := feed.MetadataEntry(feed.Metadata{Title: "Small", RowCount: 4, ColCount: 4})
	require.NoError(t, err)
	code, _ = c.do(http.MethodPut, path+"/1", meta)
	require.Equal(t, http.StatusOK, code)

	title, rows, cols, _ := s.Worksheet("key", "od6")
	assert.Equal(t, "Small", title)
	assert.Equal(t, 4, rows)
	assert.Equal(t, 4, cols)
	_, _, ok = s.Cell("key", "od6", 8, 5)
	assert.False(t, ok)

	code, _ = c.do(http.MethodPut, path+"/1", meta)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = c.do(http.MethodDelete, path+"/2", nil)
	assert.Equal(t, http.StatusOK, code)
	_, _, _, ok = s.Worksheet("key", "od6")
	assert.False(t, ok)
}
