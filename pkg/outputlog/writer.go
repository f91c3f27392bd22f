package outputlog

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Writer encodes chunks from any number of stream writers onto one
// io.Writer. A single goroutine owns the destination, so stream writers may
// be used concurrently.
type Writer struct {
	chunks chan Chunk
	done   chan struct{}
	now    func() time.Time

	closeOnce sync.Once
	err       error
}

// NewWriter starts a Writer on w. Close must be called to flush it.
func NewWriter(w io.Writer) *Writer {
	lw := &Writer{
		chunks: make(chan Chunk, 100),
		done:   make(chan struct{}),
		now:    time.Now,
	}
	go lw.run(w)
	return lw
}

func (lw *Writer) run(w io.Writer) {
	defer close(lw.done)
	var buf []byte
	for c := range lw.chunks {
		if lw.err != nil {
			continue
		}
		buf = AppendChunk(buf[:0], c)
		if _, err := w.Write(buf); err != nil {
			lw.err = fmt.Errorf("writing output log: %w", err)
		}
	}
}

// Stream returns an io.Writer recording every write as a chunk of stream.
// It panics if the name is not a valid stream name.
func (lw *Writer) Stream(stream string) io.Writer {
	if !ValidStream(stream) {
		panic(fmt.Sprintf("outputlog: invalid stream name %q", stream))
	}
	return &streamWriter{stream: stream, lw: lw}
}

// Close waits for pending chunks to be written and returns the first write
// error. Stream writers must not be used after Close.
func (lw *Writer) Close() error {
	lw.closeOnce.Do(func() { close(lw.chunks) })
	<-lw.done
	return lw.err
}

type streamWriter struct {
	stream string
	lw     *Writer
}

func (sw *streamWriter) Write(p []byte) (int, error) {
	now := sw.lw.now().UTC()
	for rest := p; len(rest) > 0; {
		n := min(len(rest), MaxChunk)
		sw.lw.chunks <- Chunk{
			Stream:    sw.stream,
			Timestamp: now,
			Data:      append([]byte(nil), rest[:n]...),
		}
		rest = rest[n:]
	}
	return len(p), nil
}
