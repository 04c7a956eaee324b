package formatting

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrettyPrintTable(t *testing.T) {
	var buf bytes.Buffer
	rows := [][]string{
		{"greeting", "ui://widget/greeting.html"},
		{"Clock", "ui://widget/clock.html"},
	}

	PrettyPrintTable(&buf, rows, nil, []string{"ID", "URI"})

	assert.Equal(t, ""+
		"ID       | URI\n"+
		"Clock    | ui://widget/clock.html\n"+
		"greeting | ui://widget/greeting.html\n", buf.String())
}

func TestPrettyPrintTableTruncates(t *testing.T) {
	var buf bytes.Buffer

	PrettyPrintTable(&buf, [][]string{{"greeting", "Preparing a greeting"}}, []int{4, 8})

	assert.Equal(t, "gre… | Prepari…\n", buf.String())
}

func TestPrettyPrintTableEmpty(t *testing.T) {
	var buf bytes.Buffer

	PrettyPrintTable(&buf, nil, nil)

	assert.Empty(t, buf.String())
}

func TestFitWidths(t *testing.T) {
	assert.Equal(t, []int{10, 20, 64}, FitWidths(100, 10, 20, 40))
	assert.Equal(t, []int{50, 50, 1}, FitWidths(80, 50, 50, 40))
	assert.Empty(t, FitWidths(80))
}
