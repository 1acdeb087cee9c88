package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDisplayName(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expected      string
		expectedError error
	}{
		{name: "plain", input: "Sam", expected: "Sam"},
		{name: "trims and collapses whitespace", input: "  Mary \t  Ann ", expected: "Mary Ann"},
		{name: "two characters", input: "Al", expected: "Al"},
		{name: "one character", input: "A", expectedError: ErrDisplayNameLength},
		{name: "only whitespace", input: "   ", expectedError: ErrDisplayNameLength},
		{name: "thirty characters", input: strings.Repeat("x", 30), expected: strings.Repeat("x", 30)},
		{name: "thirty one characters", input: strings.Repeat("x", 31), expectedError: ErrDisplayNameLength},
		{name: "counts characters not bytes", input: strings.Repeat("ж", 30), expected: strings.Repeat("ж", 30)},
		{name: "compatibility forms are folded", input: "ＳＡＭ", expected: "SAM"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeDisplayName(tc.input)
			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestNamesMatch(t *testing.T) {
	assert.True(t, NamesMatch("sam", "Sam"))
	assert.True(t, NamesMatch("  SAM ", "Sam"))
	assert.True(t, NamesMatch("mary  ann", "Mary Ann"))
	assert.False(t, NamesMatch("Sammy", "Sam"))
	assert.False(t, NamesMatch("", ""))
}

func TestNormalizeTitle(t *testing.T) {
	title, err := NormalizeTitle("  Friday   night ")
	require.NoError(t, err)
	assert.Equal(t, "Friday night", title)

	_, err = NormalizeTitle(strings.Repeat("t", 101))
	assert.ErrorIs(t, err, ErrTitleTooLong)
}
