package output

import (
	"fmt"
	"io"
)

// Warnf writes a prefixed warning line. Warnings go to the command's own
// writer rather than stderr so they stay interleaved with the output they
// refer to.
func Warnf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "warning: "+format+"\n", args...)
}

// Successf writes a prefixed confirmation line for a completed operation.
func Successf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "ok: "+format+"\n", args...)
}
