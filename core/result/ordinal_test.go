package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrdinal(t *testing.T) {
	want := []string{
		"1st", "2nd", "3rd", "4th", "5th", "6th", "7th", "8th", "9th", "10th",
		"11th", "12th", "13th", "14th", "15th", "16th", "17th", "18th", "19th", "20th",
	}
	for i, w := range want {
		assert.Equal(t, w, Ordinal(i+1))
	}
	assert.Equal(t, "21st", Ordinal(21))
	assert.Equal(t, "22nd", Ordinal(22))
	assert.Equal(t, "111th", Ordinal(111))
	assert.Equal(t, "102nd", Ordinal(102))
}

func TestNormalizeClassToken(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "digit", raw: "9", want: "9th"},
		{name: "one", raw: "1", want: "1st"},
		{name: "eleven", raw: "11", want: "11th"},
		{name: "twelve", raw: "12", want: "12th"},
		{name: "thirteen", raw: "13", want: "13th"},
		{name: "padded", raw: "  10 ", want: "10th"},
		{name: "already ordinal", raw: "9th", want: "9th"},
		{name: "upper ordinal", raw: "9TH", want: "9th"},
		{name: "free text", raw: " Nursery ", want: "nursery"},
		{name: "mixed", raw: "9-A", want: "9-a"},
		{name: "blank", raw: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeClassToken(tt.raw))
		})
	}
}
