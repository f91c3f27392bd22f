package outputlog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"
)

// TimeFormat is the layout of record timestamps.
const TimeFormat = "2006-01-02T15:04:05.000000000Z"

// MaxChunk is the largest content length a record may carry. Writers split
// larger writes into several records.
const MaxChunk = 1 << 20

// maxStreamName bounds the stream field while parsing.
const maxStreamName = 64

var streamName = regexp.MustCompile(`^[a-zA-Z0-9_./-]{1,64}$`)

// ErrMalformed is wrapped by every parse error.
var ErrMalformed = errors.New("malformed output log")

// Chunk is one write to one stream.
type Chunk struct {
	Stream    string
	Timestamp time.Time
	Data      []byte
}

// ValidStream reports whether name may be used as a stream name.
func ValidStream(name string) bool {
	return streamName.MatchString(name)
}

// AppendChunk appends the encoded record for c to dst.
func AppendChunk(dst []byte, c Chunk) []byte {
	dst = fmt.Appendf(dst, "%s %s %d: ", c.Stream, c.Timestamp.UTC().Format(TimeFormat), len(c.Data))
	dst = append(dst, c.Data...)
	return append(dst, '\n')
}

// ReadChunk decodes the next record from r. It returns io.EOF only when r is
// exhausted at a record boundary.
func ReadChunk(r *bufio.Reader) (Chunk, error) {
	var c Chunk

	stream, err := readField(r, ' ', maxStreamName+1)
	if err != nil {
		if err == io.EOF && stream == "" {
			return c, io.EOF
		}
		return c, malformed("stream", err)
	}
	if !ValidStream(stream) {
		return c, malformed("stream", fmt.Errorf("invalid name %q", stream))
	}
	c.Stream = stream

	ts, err := readField(r, ' ', len(TimeFormat)+16)
	if err != nil {
		return c, malformed("timestamp", err)
	}
	c.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return c, malformed("timestamp", err)
	}

	size, err := readField(r, ':', 20)
	if err != nil {
		return c, malformed("length", err)
	}
	n, err := strconv.Atoi(size)
	if err != nil || n < 0 {
		return c, malformed("length", fmt.Errorf("invalid length %q", size))
	}
	if n > MaxChunk {
		return c, malformed("length", fmt.Errorf("length %d exceeds %d", n, MaxChunk))
	}

	if b, err := r.ReadByte(); err != nil || b != ' ' {
		return c, malformed("separator", fmt.Errorf("expected space after colon"))
	}

	var data bytes.Buffer
	if _, err := io.CopyN(&data, r, int64(n)); err != nil {
		return c, malformed(fmt.Sprintf("content (%d bytes)", n), err)
	}
	c.Data = data.Bytes()

	if b, err := r.ReadByte(); err != nil || b != '\n' {
		return c, malformed("terminator", fmt.Errorf("expected newline after content"))
	}
	return c, nil
}

// readField reads up to delim, which is consumed but not returned.
func readField(r *bufio.Reader, delim byte, limit int) (string, error) {
	var field []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return string(field), err
		}
		if b == delim {
			return string(field), nil
		}
		field = append(field, b)
		if len(field) > limit {
			return "", fmt.Errorf("field longer than %d bytes", limit)
		}
	}
}

func malformed(field string, err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %s: %w", ErrMalformed, field, err)
}
