package workorder

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int64
		err  bool
	}{
		{in: "12", want: 1200},
		{in: "12.5", want: 1250},
		{in: "12.05", want: 1205},
		{in: "0.01", want: 1},
		{in: " 7.10 ", want: 710},
		{in: "1000000", want: 100_000_000},
		{in: "0", err: true},
		{in: "0.00", err: true},
		{in: "-3", err: true},
		{in: "1.234", err: true},
		{in: "1.", err: true},
		{in: ".5", err: true},
		{in: "1e3", err: true},
		{in: "1000000.01", err: true},
		{in: "", err: true},
	}

	for _, tc := range tests {
		got, err := ParseAmount(tc.in)
		if tc.err {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("ParseAmount(%q): expected ErrInvalidAmount, got %d, %v", tc.in, got, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseAmount(%q): expected %d, got %d (err %v)", tc.in, tc.want, got, err)
		}
	}
}
