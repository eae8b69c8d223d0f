// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"strings"
)

// lineWriter forwards complete lines to emit and keeps a copy of
// everything written. One lineWriter must not be shared between
// concurrent writers.
type lineWriter struct {
	emit     func(line string)
	pending  []byte
	captured strings.Builder
}

func newLineWriter(emit func(string)) *lineWriter {
	return &lineWriter{emit: emit}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.captured.Write(p)
	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		w.emit(strings.TrimSuffix(string(w.pending[:i]), "\r"))
		w.pending = w.pending[i+1:]
	}
	return len(p), nil
}

// Flush emits a trailing line without newline.
func (w *lineWriter) Flush() {
	if len(w.pending) > 0 {
		w.emit(strings.TrimSuffix(string(w.pending), "\r"))
		w.pending = nil
	}
}

func (w *lineWriter) String() string {
	return w.captured.String()
}
