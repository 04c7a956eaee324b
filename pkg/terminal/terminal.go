package terminal

import (
	"io"
	"os"

	"github.com/moby/term"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 120

// IsTerminal reports whether w is attached to a terminal.
func IsTerminal(w io.Writer) bool {
	_, isTerm := term.GetFdInfo(w)
	return isTerm
}

// GetWidth returns the width of the terminal in characters.
// If the width cannot be determined, it returns DefaultWidth.
func GetWidth() int {
	return GetWidthFrom(os.Stdout)
}

// GetWidthFrom returns the width of the terminal behind w, falling back to os.Stdout
// and then to DefaultWidth.
func GetWidthFrom(w io.Writer) int {
	fd, isTerm := term.GetFdInfo(w)
	if !isTerm {
		fd, isTerm = term.GetFdInfo(os.Stdout)
	}
	if !isTerm {
		return DefaultWidth
	}
	ws, err := term.GetWinsize(fd)
	if err != nil || ws.Width == 0 {
		return DefaultWidth
	}
	return int(ws.Width)
}
