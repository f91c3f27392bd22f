package outputlog

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	stdout := w.Stream("stdout")
	stderr := w.Stream("stderr")

	_, err := stdout.Write([]byte("line1\n"))
	require.NoError(t, err)
	_, err = stderr.Write([]byte("error1\n"))
	require.NoError(t, err)
	_, err = stdout.Write([]byte("50%\r100%\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := NewReader(&buf)
	var chunks []Chunk
	for {
		c, err := r.Next()
		if err != nil {
			break
		}
		chunks = append(chunks, c)
	}

	require.Len(t, chunks, 3)
	require.Equal(t, "stdout", chunks[0].Stream)
	require.Equal(t, "line1\n", string(chunks[0].Data))
	require.Equal(t, "stderr", chunks[1].Stream)
	require.Equal(t, "error1\n", string(chunks[1].Data))
	require.Equal(t, "50%\r100%\n", string(chunks[2].Data))
}

func TestWriter_EmptyWriteRecordsNothing(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	n, err := w.Stream("stdout").Write(nil)
	require.NoError(t, err)
	require.Zero(t, n)
	require.NoError(t, w.Close())
	require.Zero(t, buf.Len())
}

func TestWriter_ConcurrentStreams(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	var wg sync.WaitGroup
	for _, name := range []string{"stdout", "stderr"} {
		wg.Add(1)
		go func(stream string) {
			defer wg.Done()
			sw := w.Stream(stream)
			for i := range 100 {
				_, _ = fmt.Fprintf(sw, "%s %d\n", stream, i)
			}
		}(name)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	streams, err := ReadStreams(&buf)
	require.NoError(t, err)
	require.Equal(t, 100, bytes.Count(streams["stdout"], []byte("\n")))
	require.Equal(t, 100, bytes.Count(streams["stderr"], []byte("\n")))
	require.True(t, bytes.HasPrefix(streams["stdout"], []byte("stdout 0\nstdout 1\n")))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriter_CloseReportsWriteError(t *testing.T) {
	w := NewWriter(failingWriter{})
	_, err := w.Stream("stdout").Write([]byte("x"))
	require.NoError(t, err)

	err = w.Close()
	require.ErrorContains(t, err, "disk full")
	require.Equal(t, err, w.Close())
}

func TestWriter_InvalidStreamPanics(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	defer func() { _ = w.Close() }()
	require.Panics(t, func() { w.Stream("bad name") })
}

func TestWriter_SplitsLargeWrites(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	data := bytes.Repeat([]byte("x"), 2*MaxChunk+10)
	n, err := w.Stream("stdout").Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, w.Close())

	r := NewReader(&buf)
	var sizes []int
	for {
		c, err := r.Next()
		if err != nil {
			break
		}
		sizes = append(sizes, len(c.Data))
	}
	require.Equal(t, []int{MaxChunk, MaxChunk, 10}, sizes)

	streams, err := ReadStreams(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, data, streams["stdout"])
}
