package pyexec

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// sentinel marks the end of one cell's output in the capture stream.
const sentinel = "\x00__cell_boundary__\x00"

// streamCapture collects everything the interpreter writes to the process
// standard streams. The interpreter binds its stdout at context creation,
// so the pipe lives as long as the executor and a background reader drains
// it continuously; Begin/End bracket one cell's slice of the stream.
type streamCapture struct {
	r *os.File
	w *os.File

	mu  sync.Mutex
	buf strings.Builder
}

func newStreamCapture() (*streamCapture, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	c := &streamCapture{r: r, w: w}
	go c.drainLoop()
	return c, nil
}

func (c *streamCapture) drainLoop() {
	chunk := make([]byte, 4096)
	for {
		n, err := c.r.Read(chunk)
		if n > 0 {
			c.mu.Lock()
			c.buf.Write(chunk[:n])
			c.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// RouteProcessStreams points os.Stdout and os.Stderr at the capture pipe
// and returns a func restoring the originals. Used only while the
// interpreter context initializes.
func (c *streamCapture) RouteProcessStreams() func() {
	origOut, origErr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = c.w, c.w
	return func() {
		os.Stdout, os.Stderr = origOut, origErr
	}
}

// Begin discards anything buffered so far.
func (c *streamCapture) Begin() {
	c.Drain()
}

// End returns everything written since Begin. A sentinel written from the
// Go side flushes the pipe so the reader is known to have caught up.
func (c *streamCapture) End() string {
	_, _ = io.WriteString(c.w, sentinel)

	deadline := time.Now().Add(2 * time.Second)
	for {
		c.mu.Lock()
		content := c.buf.String()
		c.mu.Unlock()

		if idx := strings.Index(content, sentinel); idx >= 0 {
			c.mu.Lock()
			c.buf.Reset()
			c.buf.WriteString(content[idx+len(sentinel):])
			c.mu.Unlock()
			return content[:idx]
		}
		if time.Now().After(deadline) {
			return content
		}
		time.Sleep(time.Millisecond)
	}
}

// Drain clears the buffer, swallowing output that belongs to no cell.
func (c *streamCapture) Drain() {
	_ = c.End()
}
