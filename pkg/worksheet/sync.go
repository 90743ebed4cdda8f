package worksheet

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gspreadsheet/pkg/cell"
	"gspreadsheet/pkg/feed"

	log "github.com/sirupsen/logrus"
)

// Reload replaces the mirror with the server's current content. Edits that
// have not been saved are discarded.
func (w *Worksheet) Reload(ctx context.Context) error {
	body, err := w.transport.Get(ctx, w.cellsFeedURL)
	if err != nil {
		return err
	}
	f, err := feed.ParseCellsFeed(body)
	if err != nil {
		return err
	}

	st := newStore()
	st.maxRows = f.RowCount
	st.maxCols = f.ColCount
	st.title = f.Title
	for _, e := range f.Entries {
		if e.Cell == nil {
			continue
		}
		p := cell.Pos{Row: e.Cell.Row, Col: e.Cell.Col}
		if !p.Valid() || (e.Cell.Value == "" && e.Cell.InputValue == "") {
			continue
		}
		v := cellValue{display: e.Cell.Value, input: e.Cell.InputValue}
		if e.Cell.NumericValue != "" {
			if n, err := strconv.ParseFloat(e.Cell.NumericValue, 64); err == nil {
				v.numeric, v.hasNumeric = n, true
			} else {
				log.WithFields(log.Fields{
					"cell":  p.String(),
					"value": e.Cell.NumericValue,
				}).Debug("ignoring unparsable numeric value")
			}
		}
		st.cells[p] = v
	}

	w.store = st
	w.dirty.reset()
	w.state = Loaded
	log.WithFields(log.Fields{
		"title": st.title,
		"cells": len(st.cells),
	}).Debug("worksheet reloaded")
	return nil
}

// Save uploads metadata and cell edits made since the last load or save.
// It reports whether anything was sent. If a batch sub-operation fails or
// the batch is interrupted, every dirty cell stays dirty.
func (w *Worksheet) Save(ctx context.Context) (bool, error) {
	sent := false

	if w.dirty.meta {
		if err := w.saveMetadata(ctx); err != nil {
			return sent, err
		}
		w.dirty.clearMeta()
		w.store.truncate()
		w.dirty.clearOutside(w.store.maxRows, w.store.maxCols)
		sent = true
	}

	if dirty := w.dirty.dirtyCells(); len(dirty) > 0 {
		if err := w.saveCells(ctx, dirty); err != nil {
			return sent, err
		}
		w.dirty.clearCells(dirty)
		sent = true
	}
	return sent, nil
}

// Synchronize saves and then reloads, picking up values the server
// recomputed, such as formula results.
func (w *Worksheet) Synchronize(ctx context.Context) error {
	if _, err := w.Save(ctx); err != nil {
		return err
	}
	return w.Reload(ctx)
}

// Delete removes the worksheet from the server right away, regardless of
// pending edits.
func (w *Worksheet) Delete(ctx context.Context) error {
	editURL, err := w.editURL(ctx)
	if err != nil {
		return err
	}
	_, err = w.transport.Delete(ctx, editURL)
	return err
}

func (w *Worksheet) editURL(ctx context.Context) (string, error) {
	wsURL, err := w.WorksheetFeedURL()
	if err != nil {
		return "", err
	}
	body, err := w.transport.Get(ctx, wsURL)
	if err != nil {
		return "", err
	}
	e, err := feed.ParseWorksheetEntry(body)
	if err != nil {
		return "", err
	}
	href, ok := e.Links.Find(feed.RelEdit)
	if !ok {
		return "", fmt.Errorf("no edit link in worksheet entry %s", wsURL)
	}
	return href, nil
}

func (w *Worksheet) saveMetadata(ctx context.Context) error {
	editURL, err := w.editURL(ctx)
	if err != nil {
		return err
	}
	body, err := feed.MetadataEntry(feed.Metadata{
		Title:    w.store.title,
		RowCount: w.store.maxRows,
		ColCount: w.store.maxCols,
	})
	if err != nil {
		return err
	}
	log.WithField("title", w.store.title).Debug("saving worksheet metadata")
	_, err = w.transport.Put(ctx, editURL, body)
	return err
}

// boxURL is the cells feed restricted to box, including empty cells.
func (w *Worksheet) boxURL(box cell.Box) string {
	sep := "?"
	if strings.Contains(w.cellsFeedURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sreturn-empty=true&min-row=%d&max-row=%d&min-col=%d&max-col=%d",
		w.cellsFeedURL, sep, box.MinRow, box.MaxRow, box.MinCol, box.MaxCol)
}

func (w *Worksheet) saveCells(ctx context.Context, dirty []cell.Pos) error {
	// Every cell needs its id and edit link before it can be updated, even
	// cells that are empty on the server. One fetch covers the whole box.
	box, _ := cell.Bounds(dirty)
	body, err := w.transport.Get(ctx, w.boxURL(box))
	if err != nil {
		return err
	}
	f, err := feed.ParseCellsFeed(body)
	if err != nil {
		return err
	}
	entries := make(map[cell.Pos]feed.CellEntry, len(f.Entries))
	for _, e := range f.Entries {
		if e.Cell != nil {
			entries[cell.Pos{Row: e.Cell.Row, Col: e.Cell.Col}] = e
		}
	}

	updates := make([]feed.CellUpdate, 0, len(dirty))
	for _, p := range dirty {
		e, ok := entries[p]
		if !ok {
			return fmt.Errorf("cell %s missing from cells feed", p)
		}
		editURL, ok := e.Links.Find(feed.RelEdit)
		if !ok {
			return fmt.Errorf("no edit link for cell %s", p)
		}
		updates = append(updates, feed.CellUpdate{
			Pos:        p,
			ID:         e.ID,
			EditURL:    editURL,
			InputValue: w.store.input(p),
		})
	}

	req, err := feed.BatchUpdate(w.cellsFeedURL, updates)
	if err != nil {
		return err
	}
	log.WithField("cells", len(updates)).Debug("sending batch update")
	body, err = w.transport.Post(ctx, w.cellsFeedURL+"/batch", req)
	if err != nil {
		return err
	}
	result, err := feed.ParseBatchFeed(body)
	if err != nil {
		return err
	}
	for _, e := range result.Entries {
		if e.Interrupted != nil {
			return &BatchInterruptedError{Reason: e.Interrupted.Reason}
		}
		if !e.Status.Success() {
			ce := &CellUpdateError{CellID: e.ID, Reason: "missing batch status"}
			if e.Status != nil {
				ce.Code, ce.Reason = e.Status.Code, e.Status.Reason
			}
			return ce
		}
	}
	return nil
}
