package collect

import (
	"errors"

	"github.com/sliverarmory/ldfind/diag"
)

// ErrBufferFull is returned when a Buffer is at capacity. Callers discard the
// buffer and restart collection with a larger one.
var ErrBufferFull = errors.New("ldfind: candidate buffer full")

// Candidate is one file a source could supply.
type Candidate struct {
	Source   string
	Path     string
	Warnings []diag.Warning
}

// Buffer is an append-only candidate list with a fixed capacity.
type Buffer struct {
	items    []Candidate
	capacity int
}

func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{items: make([]Candidate, 0, min(capacity, 1024)), capacity: capacity}
}

// Append adds c, or returns ErrBufferFull without modifying the buffer.
func (b *Buffer) Append(c Candidate) error {
	if len(b.items) >= b.capacity {
		return ErrBufferFull
	}
	b.items = append(b.items, c)
	return nil
}

func (b *Buffer) Len() int {
	return len(b.items)
}

func (b *Buffer) Cap() int {
	return b.capacity
}

// Candidates returns the collected candidates in insertion order.
func (b *Buffer) Candidates() []Candidate {
	return b.items
}
