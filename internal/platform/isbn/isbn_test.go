package isbn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	testCases := []struct {
		isbn  string
		valid bool
	}{
		{"9780123456786", true},
		{"978-0-12-345678-6", true},
		{"9780123456789", false},
		{"0123456789", true},
		{"0-306-40615-2", true},
		{"080442957X", true},
		{"080442957x", true},
		{"012345678X", false},
		{"X123456789", false},
		{"12345", false},
		{"invalid", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.isbn, func(t *testing.T) {
			assert.Equal(t, tc.valid, Valid(tc.isbn))
		})
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, "080442957X", Clean("0-8044-2957-x"))
	assert.Equal(t, "9780123456786", Clean(" 978 0123456786"))
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "080442957", Digits("0-8044-2957-X"))
	assert.Equal(t, "", Digits("n/a"))
}
