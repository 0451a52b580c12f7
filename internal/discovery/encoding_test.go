package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	assert.Equal(t, "5&7", Encode([]int{5, 7}))
	assert.Equal(t, "5&7", Encode([]int{5, 7, 5}))
	assert.Equal(t, "", Encode(nil))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []int
		wantErr error
	}{
		{name: "single", in: "7", want: []int{7}},
		{name: "pair", in: "5&7", want: []int{5, 7}},
		{name: "duplicates", in: "5&7&5", want: []int{5, 7}},
		{name: "spaces", in: " 5 & 7 ", want: []int{5, 7}},
		{name: "empty", in: "", wantErr: ErrEmptySelection},
		{name: "not a number", in: "5&NaN", wantErr: ErrInvalidIdentifier},
		{name: "empty element", in: "5&&7", wantErr: ErrInvalidIdentifier},
		{name: "negative", in: "-3", wantErr: ErrInvalidIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
