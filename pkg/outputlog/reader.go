package outputlog

import (
	"bufio"
	"bytes"
	"io"
)

// Reader decodes records one at a time.
type Reader struct {
	r *bufio.Reader
}

// NewReader returns a Reader decoding from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next chunk, or io.EOF after the last one.
func (lr *Reader) Next() (Chunk, error) {
	return ReadChunk(lr.r)
}

// Streams holds the reassembled content of every stream in a log.
type Streams map[string][]byte

// Reader returns the content of stream. An absent stream reads as empty.
func (s Streams) Reader(stream string) io.Reader {
	return bytes.NewReader(s[stream])
}

// ReadStreams decodes r to the end and concatenates each stream's chunks in
// order. On a malformed record the streams decoded so far are returned along
// with the error.
func ReadStreams(r io.Reader) (Streams, error) {
	streams := Streams{}
	lr := NewReader(r)
	for {
		c, err := lr.Next()
		if err == io.EOF {
			return streams, nil
		}
		if err != nil {
			return streams, err
		}
		streams[c.Stream] = append(streams[c.Stream], c.Data...)
	}
}
