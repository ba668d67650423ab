package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty", input: "", expected: nil},
		{name: "only separators", input: " , ,", expected: nil},
		{name: "single", input: "localhost:9092", expected: []string{"localhost:9092"}},
		{name: "trims", input: " a:1 ,b:2 ", expected: []string{"a:1", "b:2"}},
		{name: "drops repeats keeping first", input: "a,b,a,c,b", expected: []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input, ","))
		})
	}
}
