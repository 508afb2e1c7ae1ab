package compiler

import (
	"fmt"
	"io"
	"os"
)

const readerBufferSize = 16384

// sourceReader feeds the lexer one byte at a time from a fixed buffer that is
// refilled with a single contiguous read. NextChar returns 0 at end of input.
// Exactly one UnreadChar is permitted between reads; that invariant is what
// lets a single-level column history suffice.
type sourceReader struct {
	file *os.File
	buf  [readerBufferSize]byte
	size int // number of valid bytes in buf
	cur  int // read pointer into buf

	// Refilling resets cur to 0, so a byte unread at that point cannot go
	// back into the buffer; it waits in this one-slot cell instead.
	pushback    byte
	hasPushback bool

	line       int
	column     int
	prevColumn int // column before the last advance
}

func newSourceReader(path string) (*sourceReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open file: %w", err)
	}

	r := &sourceReader{file: f, line: 1, column: 1, prevColumn: 1}
	if err := r.refill(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *sourceReader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *sourceReader) refill() error {
	n, err := r.file.Read(r.buf[:])
	if err != nil && err != io.EOF {
		return fmt.Errorf("read failed: %w", err)
	}
	r.size = n
	r.cur = 0
	return nil
}

// NextChar returns the next source byte, advancing the position, or 0 at end
// of input.
func (r *sourceReader) NextChar() byte {
	var c byte
	switch {
	case r.hasPushback:
		c = r.pushback
		r.hasPushback = false
	default:
		if r.cur >= r.size {
			if err := r.refill(); err != nil || r.size == 0 {
				return 0
			}
		}
		c = r.buf[r.cur]
		r.cur++
	}

	switch c {
	case '\n':
		r.line++
		r.prevColumn = r.column
		r.column = 1
	case '\t':
		r.prevColumn = r.column
		r.column += 4
	default:
		r.prevColumn = r.column
		r.column++
	}
	return c
}

// UnreadChar restores exactly one byte and reverses its position advance.
// Unreading the 0 sentinel is a no-op so the lexer may unread unconditionally
// after a lookahead.
func (r *sourceReader) UnreadChar(c byte) {
	if c == 0 {
		return
	}

	if r.cur == 0 {
		r.pushback = c
		r.hasPushback = true
	} else {
		r.cur--
	}

	switch c {
	case '\n':
		r.line--
		r.column = r.prevColumn
	case '\t':
		r.column -= 4
	default:
		r.column--
	}
}

// Line and Column report the 1-based position of the next unread character.
func (r *sourceReader) Line() int   { return r.line }
func (r *sourceReader) Column() int { return r.column }
