package generate

import (
	"bufio"
	"io"
	"strings"
)

// lineWriter writes naive comma-joined CSV lines. Values are generated, not
// user-supplied, so no quoting is applied; the reconciler's line counting
// relies on one row per line.
type lineWriter struct {
	w *bufio.Writer
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{w: bufio.NewWriter(w)}
}

func (l *lineWriter) writeRow(values []string) error {
	if _, err := l.w.WriteString(strings.Join(values, ",")); err != nil {
		return err
	}
	return l.w.WriteByte('\n')
}

func (l *lineWriter) flush() error {
	return l.w.Flush()
}
