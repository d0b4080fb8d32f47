package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMachineID(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected bool
	}{
		{name: "Plain", raw: "CC0012", expected: true},
		{name: "Surrounding whitespace", raw: " CC0099 ", expected: true},
		{name: "Tabs and newline", raw: "\tCC1234\n", expected: true},
		{name: "Too few digits", raw: "CC12", expected: false},
		{name: "Too many digits", raw: "CC00123", expected: false},
		{name: "Lowercase prefix", raw: "cc0012", expected: false},
		{name: "Mixed case prefix", raw: "Cc0012", expected: false},
		{name: "Letters in number", raw: "CC00A2", expected: false},
		{name: "Inner space", raw: "CC 0012", expected: false},
		{name: "Empty", raw: "", expected: false},
		{name: "Non-ASCII digits", raw: "CC١٢٣٤", expected: false},
		{name: "Trailing text", raw: "CC0012x", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsMachineID(tc.raw))
		})
	}
}

func TestIsLocationID(t *testing.T) {
	assert.True(t, IsLocationID("A3"))
	assert.True(t, IsLocationID("  Hylla 4  "))
	assert.True(t, IsLocationID("CC0012"))
	assert.False(t, IsLocationID(""))
	assert.False(t, IsLocationID(" \t\n"))
}

func TestSplitIDList(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected []string
	}{
		{name: "Commas", raw: "A1, A2,A3", expected: []string{"A1", "A2", "A3"}},
		{name: "Newlines and semicolons", raw: "CC0001\nCC0002;CC0003", expected: []string{"CC0001", "CC0002", "CC0003"}},
		{name: "Repeated separators", raw: ",,A1;;\n\nA2  ", expected: []string{"A1", "A2"}},
		{name: "Duplicates keep first", raw: "A2 A1 A2", expected: []string{"A2", "A1"}},
		{name: "Empty", raw: "  \n ", expected: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SplitIDList(tc.raw))
		})
	}
}

func TestMachineIDAndLocationID(t *testing.T) {
	id, err := MachineID(" CC0042\n")
	assert.NoError(t, err)
	assert.Equal(t, "CC0042", id)

	_, err = MachineID("CC42")
	assert.ErrorIs(t, err, ErrInvalidMachineID)

	loc, err := LocationID("  A3 ")
	assert.NoError(t, err)
	assert.Equal(t, "A3", loc)

	_, err = LocationID("   ")
	assert.ErrorIs(t, err, ErrInvalidLocationID)
}
