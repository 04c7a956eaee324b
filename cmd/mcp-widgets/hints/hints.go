package hints

import (
	"os"
	"strconv"

	"github.com/fatih/color"
)

// Enabled reports whether CLI tips should be printed. Set MCP_WIDGETS_HINTS=false to silence them.
func Enabled() bool {
	if enabled, err := strconv.ParseBool(os.Getenv("MCP_WIDGETS_HINTS")); err == nil {
		return enabled
	}
	return true
}

var (
	TipCyan           = color.New(color.FgCyan)
	TipCyanBoldItalic = color.New(color.FgCyan, color.Bold, color.Italic)
	TipGreen          = color.New(color.FgGreen)
)
