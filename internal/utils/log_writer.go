package utils

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"time"
)

// LogFileWriter prefixes every complete line written to it with a running
// line number and a timestamp before forwarding it to the target. Partial
// lines are held back until their newline arrives or Close is called.
type LogFileWriter struct {
	mu      sync.Mutex
	target  io.Writer
	line    uint64
	pending bytes.Buffer
	now     func() time.Time
}

func NewLogFileWriter(target io.Writer) *LogFileWriter {
	return &LogFileWriter{
		target: target,
		now:    time.Now,
	}
}

func (w *LogFileWriter) writeLine(line []byte) error {
	w.line++
	prefix := slog.Uint64("line", w.line).String() + " " +
		slog.String("time", w.now().Format(time.RFC3339)).String() + " "
	if _, err := io.WriteString(w.target, prefix); err != nil {
		return err
	}
	_, err := w.target.Write(line)
	return err
}

// Write implements io.Writer. The returned count is len(p) on success since
// every byte is either forwarded or buffered.
func (w *LogFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending.Write(p)
	for {
		idx := bytes.IndexByte(w.pending.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := w.pending.Next(idx + 1)
		if err := w.writeLine(line); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Close flushes a trailing partial line, terminating it with a newline.
func (w *LogFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending.Len() == 0 {
		return nil
	}
	rest := append(w.pending.Bytes(), '\n')
	w.pending.Reset()
	return w.writeLine(rest)
}
