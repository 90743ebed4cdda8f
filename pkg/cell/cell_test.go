package cell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		in   string
		want Pos
	}{
		{"A1", Pos{1, 1}},
		{"B1", Pos{1, 2}},
		{"Z32", Pos{32, 26}},
		{"z32", Pos{32, 26}},
		{"AA1", Pos{1, 27}},
		{"AZ7", Pos{7, 52}},
		{"ZZ100", Pos{100, 702}},
	}
	for _, tt := range tests {
		got, err := Decode(tt.in)
		if err != nil {
			t.Errorf("Decode(%q) returned error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Decode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDecodeInvalid(t *testing.T) {
	for _, in := range []string{"", "A", "1", "1A", "A-1", "A1B", "$A$1", "Ä1", "A0", "ZZZZZZZZZZZZZZZ1", "A99999999999999999999"} {
		_, err := Decode(in)
		require.Error(t, err, "Decode(%q)", in)
		assert.True(t, errors.Is(err, ErrInvalidAddress), "Decode(%q) error %v", in, err)

		var addrErr *InvalidAddressError
		require.True(t, errors.As(err, &addrErr))
		assert.Equal(t, in, addrErr.Label)
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		row, col int
		want     string
	}{
		{1, 1, "A1"},
		{1, 2, "B1"},
		{32, 26, "Z32"},
		{1, 27, "AA1"},
		{5, 702, "ZZ5"},
		{9, 703, "AAA9"},
	}
	for _, tt := range tests {
		if got := Encode(tt.row, tt.col); got != tt.want {
			t.Errorf("Encode(%d, %d) = %q, want %q", tt.row, tt.col, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for row := 1; row <= 30; row++ {
		for col := 1; col <= 26*27; col++ {
			got, err := Decode(Encode(row, col))
			require.NoError(t, err)
			if got != (Pos{row, col}) {
				t.Fatalf("Decode(Encode(%d, %d)) = %v", row, col, got)
			}
		}
	}
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(1, 1))
	assert.ErrorIs(t, Check(0, 1), ErrInvalidAddress)
	assert.ErrorIs(t, Check(1, -3), ErrInvalidAddress)
}

func TestBounds(t *testing.T) {
	_, ok := Bounds(nil)
	assert.False(t, ok)

	b, ok := Bounds([]Pos{{2, 1}, {1, 3}, {4, 2}})
	require.True(t, ok)
	assert.Equal(t, Box{MinRow: 1, MaxRow: 4, MinCol: 1, MaxCol: 3}, b)
	assert.True(t, b.Contains(Pos{3, 2}))
	assert.False(t, b.Contains(Pos{5, 1}))
}
