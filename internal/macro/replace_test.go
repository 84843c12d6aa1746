package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplace(t *testing.T) {
	tests := []struct {
		in, old, new string
		want         string
		count        int
	}{
		{"Guido", "do", "c", "Guic", 1},
		{`Gui\do`, "do", "c", "Guido", 0},
		{`do you know \do`, "do", "c", "c you know do", 1},
		{"nothing here", "zz", "c", "nothing here", 0},
		{"abb", "ab", "a", "ab", 1},
		{`\\do`, "do", "c", `\do`, 0},
		{`\dodo`, "do", "c", "doc", 1},
		{"aaaa", "aa", "a", "aa", 2},
		{"x", "", "y", "x", 0},
		{`a\~b~c`, "~", " ", "a~b c", 1},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, n := Replace(tt.in, tt.old, tt.new)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.count, n)
		})
	}
}

func TestEscapedTextSurvivesLaterPasses(t *testing.T) {
	text := NewText(`do you know \do`)
	assert.Equal(t, 1, text.Replace("do", "c"))
	assert.Equal(t, 0, text.Replace("do", "c"))
	assert.Equal(t, 2, text.Replace("o", "0"))
	assert.Equal(t, "c y0u kn0w do", text.String())
	assert.Equal(t, len("c y0u kn0w do"), text.Len())
}
