package review

import (
	"os"

	"golang.org/x/term"
)

// IsTTY checks if the given file descriptor is a terminal.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// IsOutputTerminal reports whether stdout is a terminal rather than a pipe
// or redirect. The CLI uses this to decide between live progress rendering
// and plain line output.
func IsOutputTerminal() bool {
	return IsTTY(os.Stdout.Fd())
}
