package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"text/template"

	"gspreadsheet/pkg/cell"
)

// Escape renders v as text safe for XML element content and attribute values.
func Escape(v interface{}) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(fmt.Sprint(v)))
	return b.String()
}

var funcs = template.FuncMap{"h": Escape}

var metadataTmpl = template.Must(template.New("metadata").Funcs(funcs).Parse(
	`<entry xmlns='http://www.w3.org/2005/Atom'
       xmlns:gs='http://schemas.google.com/spreadsheets/2006'>
  <title>{{h .Title}}</title>
  <gs:rowCount>{{h .RowCount}}</gs:rowCount>
  <gs:colCount>{{h .ColCount}}</gs:colCount>
</entry>
`))

var batchTmpl = template.Must(template.New("batch").Funcs(funcs).Parse(
	`<feed xmlns="http://www.w3.org/2005/Atom"
      xmlns:batch="http://schemas.google.com/gdata/batch"
      xmlns:gs="http://schemas.google.com/spreadsheets/2006">
  <id>{{h .FeedID}}</id>
{{- range .Updates}}
  <entry>
    <batch:id>{{h .Pos.Row}},{{h .Pos.Col}}</batch:id>
    <batch:operation type="update"/>
    <id>{{h .ID}}</id>
    <link rel="edit" type="application/atom+xml"
      href="{{h .EditURL}}"/>
    <gs:cell row="{{h .Pos.Row}}" col="{{h .Pos.Col}}" inputValue="{{h .InputValue}}"/>
  </entry>
{{- end}}
</feed>
`))

// Metadata is the editable worksheet metadata.
type Metadata struct {
	Title    string
	RowCount int
	ColCount int
}

// MetadataEntry renders the body of a worksheet metadata update.
func MetadataEntry(m Metadata) ([]byte, error) {
	var buf bytes.Buffer
	if err := metadataTmpl.Execute(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CellUpdate is one sub-operation of a batch update.
type CellUpdate struct {
	Pos        cell.Pos
	ID         string
	EditURL    string
	InputValue string
}

// BatchUpdate renders a batch request updating every cell in updates.
func BatchUpdate(feedID string, updates []CellUpdate) ([]byte, error) {
	var buf bytes.Buffer
	err := batchTmpl.Execute(&buf, struct {
		FeedID  string
		Updates []CellUpdate
	}{feedID, updates})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
