// Package lines assembles logical lines from a raw output stream the way a
// terminal would show them.
//
// A carriage return moves the cursor back to the start of the line, so every
// byte buffered for the current line is dropped. A line feed terminates the
// line and is kept as its last byte. Whatever is buffered when the stream ends
// becomes one final line without a terminator.
//
//	"abc\rdef\n"  -> "def\n"
//	"abc"         -> "abc"
//	"\r\r"        -> (no lines)
package lines

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrInvalidUTF8 is reported by Scanner.Err when a line cannot be decoded.
var ErrInvalidUTF8 = errors.New("invalid UTF-8 in output")

// Scanner yields the lines of a stream one at a time. It is single pass:
// once Scan has returned false the scanner stays exhausted.
type Scanner struct {
	r    *bufio.Reader
	buf  []byte
	line string
	n    int
	err  error
	done bool
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Scan advances to the next line. It returns false at the end of the stream or
// when reading fails; Err tells the two apart.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			s.done = true
			if err != io.EOF {
				s.err = fmt.Errorf("reading line %d: %w", s.n+1, err)
				return false
			}
			if len(s.buf) == 0 {
				return false
			}
			return s.emit()
		}

		switch b {
		case '\r':
			s.buf = s.buf[:0]
		case '\n':
			s.buf = append(s.buf, b)
			return s.emit()
		default:
			s.buf = append(s.buf, b)
		}
	}
}

func (s *Scanner) emit() bool {
	s.n++
	if !utf8.Valid(s.buf) {
		s.done = true
		s.err = fmt.Errorf("line %d: %w", s.n, ErrInvalidUTF8)
		s.buf = s.buf[:0]
		return false
	}
	s.line = string(s.buf)
	s.buf = s.buf[:0]
	return true
}

// Text returns the most recent line produced by Scan, including its trailing
// line feed if it had one.
func (s *Scanner) Text() string {
	return s.line
}

// Err returns the first non-EOF error encountered by the Scanner.
func (s *Scanner) Err() error {
	return s.err
}

// Split returns the lines of text in order.
func Split(text string) []string {
	var out []string
	sc := NewScanner(strings.NewReader(text))
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out
}
