package formatting

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"
)

const separator = " | "

// PrettyPrintTable writes rows sorted by their first column, with an optional header.
// maxWidths limits each column; pass nil (or a slice of different length) to skip it.
// Cells wider than their column are truncated with an ellipsis.
func PrettyPrintTable(w io.Writer, rows [][]string, maxWidths []int, header ...[]string) {
	var headerRow []string
	if len(header) > 0 {
		headerRow = header[0]
	}

	numColumns := len(headerRow)
	if numColumns == 0 && len(rows) > 0 {
		numColumns = len(rows[0])
	}
	if numColumns == 0 {
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return strings.ToLower(rows[i][0]) < strings.ToLower(rows[j][0])
	})

	colWidths := make([]int, numColumns)
	for _, row := range append([][]string{headerRow}, rows...) {
		for i, cell := range row {
			if i < numColumns {
				colWidths[i] = max(colWidths[i], runeWidth(cell))
			}
		}
	}
	if len(maxWidths) == numColumns {
		for i := range colWidths {
			colWidths[i] = min(colWidths[i], maxWidths[i])
		}
	}

	printRow := func(row []string) {
		var sb strings.Builder
		for i := range numColumns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			s := truncateString(cell, colWidths[i])
			if i < numColumns-1 {
				s += strings.Repeat(" ", colWidths[i]-runeWidth(s)) + separator
			}
			sb.WriteString(s)
		}
		fmt.Fprintln(w, sb.String())
	}
	if headerRow != nil {
		printRow(headerRow)
	}
	for _, row := range rows {
		printRow(row)
	}
}

// FitWidths shrinks the last column so that a row fits in totalWidth.
func FitWidths(totalWidth int, widths ...int) []int {
	fitted := append([]int(nil), widths...)
	if len(fitted) == 0 {
		return fitted
	}
	used := (len(fitted) - 1) * len(separator)
	for _, w := range fitted[:len(fitted)-1] {
		used += w
	}
	fitted[len(fitted)-1] = max(totalWidth-used, 1)
	return fitted
}

func runeWidth(s string) int {
	return utf8.RuneCountInString(s)
}

// truncateString shortens s to fit the given width, appending an ellipsis if possible.
func truncateString(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width > 1 {
		return string(runes[:width-1]) + "…"
	}
	return string(runes[:width])
}
