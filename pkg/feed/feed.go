// Package feed maps the Atom/GData spreadsheet wire format onto Go types and
// renders the request bodies the worksheet sync engine sends.
package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"golang.org/x/net/html/charset"
)

const (
	NSAtom   = "http://www.w3.org/2005/Atom"
	NSSheets = "http://schemas.google.com/spreadsheets/2006"
	NSBatch  = "http://schemas.google.com/gdata/batch"

	RelEdit      = "edit"
	RelCellsFeed = "http://schemas.google.com/spreadsheets/2006#cellsfeed"

	ContentType = "application/atom+xml"
)

type Link struct {
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr,omitempty"`
	Href string `xml:"href,attr"`
}

type Links []Link

// Find returns the href of the first link with the given rel.
func (ls Links) Find(rel string) (string, bool) {
	for _, l := range ls {
		if l.Rel == rel {
			return l.Href, true
		}
	}
	return "", false
}

// Cell is the gs:cell element. Value holds the rendered display text.
type Cell struct {
	Row          int    `xml:"row,attr"`
	Col          int    `xml:"col,attr"`
	InputValue   string `xml:"inputValue,attr"`
	NumericValue string `xml:"numericValue,attr,omitempty"`
	Value        string `xml:",chardata"`
}

type CellEntry struct {
	ID    string `xml:"http://www.w3.org/2005/Atom id"`
	Links Links  `xml:"http://www.w3.org/2005/Atom link"`
	Cell  *Cell  `xml:"http://schemas.google.com/spreadsheets/2006 cell"`
}

// CellsFeed is the cell-based feed of one worksheet.
type CellsFeed struct {
	XMLName  xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	ID       string      `xml:"http://www.w3.org/2005/Atom id"`
	Title    string      `xml:"http://www.w3.org/2005/Atom title"`
	Links    Links       `xml:"http://www.w3.org/2005/Atom link"`
	RowCount int         `xml:"http://schemas.google.com/spreadsheets/2006 rowCount"`
	ColCount int         `xml:"http://schemas.google.com/spreadsheets/2006 colCount"`
	Entries  []CellEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

// WorksheetEntry is a single entry of the worksheets feed. It is also the
// body of a metadata update.
type WorksheetEntry struct {
	XMLName  xml.Name `xml:"http://www.w3.org/2005/Atom entry"`
	ID       string   `xml:"http://www.w3.org/2005/Atom id,omitempty"`
	Title    string   `xml:"http://www.w3.org/2005/Atom title"`
	Links    Links    `xml:"http://www.w3.org/2005/Atom link"`
	RowCount int      `xml:"http://schemas.google.com/spreadsheets/2006 rowCount"`
	ColCount int      `xml:"http://schemas.google.com/spreadsheets/2006 colCount"`
}

type BatchOperation struct {
	Type string `xml:"type,attr"`
}

type BatchStatus struct {
	Code   int    `xml:"code,attr"`
	Reason string `xml:"reason,attr,omitempty"`
}

// Success reports a 2xx status code.
func (s *BatchStatus) Success() bool {
	return s != nil && s.Code >= 200 && s.Code < 300
}

type BatchInterrupted struct {
	Reason   string `xml:"reason,attr"`
	Success  int    `xml:"success,attr"`
	Failures int    `xml:"failures,attr"`
	Parsed   int    `xml:"parsed,attr"`
}

type BatchEntry struct {
	ID          string            `xml:"http://www.w3.org/2005/Atom id,omitempty"`
	BatchID     string            `xml:"http://schemas.google.com/gdata/batch id,omitempty"`
	Operation   *BatchOperation   `xml:"http://schemas.google.com/gdata/batch operation,omitempty"`
	Status      *BatchStatus      `xml:"http://schemas.google.com/gdata/batch status,omitempty"`
	Interrupted *BatchInterrupted `xml:"http://schemas.google.com/gdata/batch interrupted,omitempty"`
	Links       Links             `xml:"http://www.w3.org/2005/Atom link"`
	Cell        *Cell             `xml:"http://schemas.google.com/spreadsheets/2006 cell,omitempty"`
}

// BatchFeed is both the batch request and the batch response document.
type BatchFeed struct {
	XMLName xml.Name     `xml:"http://www.w3.org/2005/Atom feed"`
	ID      string       `xml:"http://www.w3.org/2005/Atom id"`
	Entries []BatchEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

func decode(body []byte, v interface{}) error {
	d := xml.NewDecoder(bytes.NewReader(body))
	d.CharsetReader = charset.NewReaderLabel
	return d.Decode(v)
}

func ParseCellsFeed(body []byte) (*CellsFeed, error) {
	f := &CellsFeed{}
	if err := decode(body, f); err != nil {
		return nil, fmt.Errorf("parse cells feed: %w", err)
	}
	return f, nil
}

func ParseWorksheetEntry(body []byte) (*WorksheetEntry, error) {
	e := &WorksheetEntry{}
	if err := decode(body, e); err != nil {
		return nil, fmt.Errorf("parse worksheet entry: %w", err)
	}
	return e, nil
}

func ParseBatchFeed(body []byte) (*BatchFeed, error) {
	f := &BatchFeed{}
	if err := decode(body, f); err != nil {
		return nil, fmt.Errorf("parse batch feed: %w", err)
	}
	return f, nil
}

// Marshal encodes v with an XML declaration.
func Marshal(v interface{}) ([]byte, error) {
	b, err := xml.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), b...), nil
}
