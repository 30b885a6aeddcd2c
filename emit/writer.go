package emit

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strconv"

	"github.com/sliverarmory/ldfind/diag"
)

// ErrOverflow is returned once a row no longer fits the output capacity.
var ErrOverflow = errors.New("ldfind: output overflow")

// OverflowMarker terminates output that ran out of room.
const OverflowMarker = "ldfind: output overflow\n"

// Row is one emitted result line. Diagnostic rows have an empty Source and
// Path.
type Row struct {
	Number   int
	Source   string
	Path     string
	Warnings []diag.Warning
}

// Record returns the row's CSV fields.
func (r Row) Record() []string {
	return []string{strconv.Itoa(r.Number), r.Source, r.Path, diag.Join(r.Warnings)}
}

// Writer serializes rows into a buffer that never exceeds its capacity. Room
// for OverflowMarker is kept free so a truncated result is always marked.
type Writer struct {
	buf        []byte
	capacity   int
	overflowed bool
}

func NewWriter(capacity int) *Writer {
	return &Writer{capacity: capacity}
}

// WriteRow appends row as one CSV record. Rows already written are never
// modified.
func (w *Writer) WriteRow(row Row) error {
	if w.overflowed {
		return ErrOverflow
	}

	var rec bytes.Buffer
	cw := csv.NewWriter(&rec)
	if err := cw.Write(row.Record()); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	if len(w.buf)+rec.Len()+len(OverflowMarker) > w.capacity {
		w.overflow()
		return ErrOverflow
	}
	w.buf = append(w.buf, rec.Bytes()...)
	return nil
}

func (w *Writer) overflow() {
	w.overflowed = true
	room := w.capacity - len(w.buf)
	if room <= 0 {
		return
	}
	marker := OverflowMarker
	if len(marker) > room {
		marker = marker[:room]
	}
	w.buf = append(w.buf, marker...)
}

// Bytes returns the serialized output. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Overflowed() bool { return w.overflowed }
