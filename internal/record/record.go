// Package record formats session snapshots into the semicolon-delimited,
// CSV-friendly rows spec.md §6 describes: a one-time cell prelude, then a
// vehicle row and a light row shape repeated every step. It is an external
// consumer of session.Snapshot, never imported back by internal/session,
// mirroring the teacher's manager/benchmark.go CSV writer kept outside the
// simulation core itself.
package record

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/lukaslovas/microtrafficsim/internal/grid"
	"github.com/lukaslovas/microtrafficsim/internal/session"
)

// Writer emits Snapshot rows as semicolon-delimited CSV records.
type Writer struct {
	csv *csv.Writer
}

// NewWriter wraps w, configuring the semicolon field separator spec.md §6
// calls for.
func NewWriter(w io.Writer) *Writer {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	return &Writer{csv: cw}
}

// WriteCellPrelude emits the one-time `-1; cell_id; x; y` row for every
// cell in roads, in ascending cell ID order, establishing a stable row
// ordering across runs with the same seed.
func (rw *Writer) WriteCellPrelude(roads *grid.Roads) error {
	for _, id := range roads.IDs() {
		c, _ := roads.GetCell(id)
		p := c.Point()
		row := []string{
			"-1",
			strconv.FormatInt(int64(id), 10),
			strconv.FormatFloat(p.X, 'f', -1, 64),
			strconv.FormatFloat(p.Y, 'f', -1, 64),
		}
		if err := rw.csv.Write(row); err != nil {
			return err
		}
	}
	rw.csv.Flush()
	return rw.csv.Error()
}

// WriteSnapshot emits every vehicle row followed by every light row of
// snap, in the order session.Snapshot already holds them (ascending ID).
func (rw *Writer) WriteSnapshot(snap session.Snapshot) error {
	for _, v := range snap.Vehicles {
		row := []string{
			strconv.Itoa(v.Step),
			strconv.FormatInt(int64(v.ID), 10),
			v.Type.String(),
			strconv.Itoa(v.LastSpeed),
			strconv.FormatFloat(v.LastAngle, 'f', -1, 64),
			strconv.FormatInt(int64(v.LastCell), 10),
		}
		if err := rw.csv.Write(row); err != nil {
			return err
		}
	}
	for _, l := range snap.Lights {
		row := []string{
			strconv.Itoa(l.PhaseStep),
			strconv.Itoa(l.Step),
			strconv.FormatInt(int64(l.LightID), 10),
			strconv.FormatInt(int64(l.GroupID), 10),
			strconv.FormatFloat(l.X, 'f', -1, 64),
			strconv.FormatFloat(l.Y, 'f', -1, 64),
			l.Signal.String(),
		}
		if err := rw.csv.Write(row); err != nil {
			return err
		}
	}
	rw.csv.Flush()
	return rw.csv.Error()
}
