package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHiddenUnicode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Detection
	}{
		{
			name:     "empty string",
			input:    "",
			expected: []Detection{},
		},
		{
			name:     "clean ascii",
			input:    "Return the typical color for a given fruit.",
			expected: []Detection{},
		},
		{
			name:     "clean multi-byte",
			input:    "こんにちは世界",
			expected: []Detection{},
		},
		{
			name:  "unicode tag character",
			input: "A\U000E0042C",
			expected: []Detection{
				{Rune: '\U000E0042', Hex: "U+E0042", Index: 1, Category: TagChar},
			},
		},
		{
			name:  "bidi override",
			input: "safe‮tool",
			expected: []Detection{
				{Rune: '‮', Hex: "U+202E", Index: 4, Category: BidiControl},
			},
		},
		{
			name:  "zero width space",
			input: "a​b",
			expected: []Detection{
				{Rune: '​', Hex: "U+200B", Index: 1, Category: InvisibleFmt},
			},
		},
		{
			name:  "non-character",
			input: "x﷐",
			expected: []Detection{
				{Rune: '﷐', Hex: "U+FDD0", Index: 1, Category: NonCharacter},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectHiddenUnicode(tc.input)
			require.Len(t, got, len(tc.expected))
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestDetectHiddenUnicode_MultipleHits(t *testing.T) {
	input := "a​‪b"
	got := DetectHiddenUnicode(input)
	require.Len(t, got, 2)
	assert.Equal(t, InvisibleFmt, got[0].Category)
	assert.Equal(t, BidiControl, got[1].Category)
}
