package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOrderings(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Ordering
	}{
		{name: "empty", raw: ""},
		{name: "blanks", raw: " , -,"},
		{name: "single", raw: "name", want: []Ordering{{Field: "name", Ascending: true}}},
		{
			name: "mixed", raw: "-percentage, roll_number",
			want: []Ordering{{Field: "percentage"}, {Field: "roll_number", Ascending: true}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseOrderings(tt.raw)
			assert.Equal(t, tt.want, got)
			for i, ord := range got {
				assert.Equal(t, tt.want[i].String(), ord.String())
			}
		})
	}
}
