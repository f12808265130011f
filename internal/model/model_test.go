package model

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestStatsItem_Increase(t *testing.T) {
	var item StatsItem
	item.Increase(d("10"))
	item.Increase(d("2.5"))

	if item.Count != 2 {
		t.Errorf("count = %d, want 2", item.Count)
	}
	if !item.Value.Equal(d("12.5")) {
		t.Errorf("value = %s, want 12.5", item.Value)
	}
}

func TestUserLedger_UpdateROI(t *testing.T) {
	tests := []struct {
		name string
		bets string
		wins string
		want string
	}{
		{"no bets", "0", "0", "0"},
		{"all lost", "100", "0", "-1"},
		{"break even", "200", "200", "0"},
		{"net winner", "100", "150", "0.5"},
		{"house edge", "1000", "900", "-0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := UserLedger{Stats: Stats{
				Bets: StatsItem{Value: d(tt.bets)},
				Wins: StatsItem{Value: d(tt.wins)},
			}}
			u.UpdateROI()
			if !u.ROI.Equal(d(tt.want)) {
				t.Errorf("ROI = %s, want %s", u.ROI, tt.want)
			}
		})
	}
}

func TestPoolLedger_AverageFeeIsNegatedROI(t *testing.T) {
	p := PoolLedger{Stats: Stats{
		Bets: StatsItem{Value: d("1000")},
		Wins: StatsItem{Value: d("900")},
	}}
	p.UpdateAverageFee()
	if !p.AverageFee.Equal(d("0.1")) {
		t.Errorf("average fee = %s, want 0.1", p.AverageFee)
	}
}

func TestRange_Contains(t *testing.T) {
	r := Range{Min: d("1"), Max: d("1000")}

	// Bounds are inclusive.
	for _, bet := range []string{"1", "1000", "500"} {
		if !r.Contains(d(bet)) {
			t.Errorf("Contains(%s) = false, want true", bet)
		}
	}
	for _, bet := range []string{"0.999999", "1000.000001", "0", "-5"} {
		if r.Contains(d(bet)) {
			t.Errorf("Contains(%s) = true, want false", bet)
		}
	}
}

func TestSide_Valid(t *testing.T) {
	if !SideHead.Valid() || !SideTail.Valid() {
		t.Error("head and tail must be valid")
	}
	for _, s := range []Side{"", "heads", "edge", "HEAD"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestValidateAddress(t *testing.T) {
	valid := []string{
		"omflip1admin000",
		"osmo1xyzabc",
		"cosmos1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq",
	}
	for _, addr := range valid {
		if err := ValidateAddress(addr); err != nil {
			t.Errorf("ValidateAddress(%q) = %v, want nil", addr, err)
		}
	}

	// Empty, short prefix, short body, uppercase, no separator, whitespace.
	invalid := []string{
		"",
		"x1abcdef",
		"omflip1abc",
		"OMFLIP1abcdef0",
		"omflipabcdefgh",
		"omflip1abc def",
	}
	for _, addr := range invalid {
		if err := ValidateAddress(addr); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("ValidateAddress(%q) = %v, want ErrInvalidAddress", addr, err)
		}
	}
}

func TestValidateDenom(t *testing.T) {
	for _, denom := range []string{"uom", "untrn", "ibc/27394FB092D2EC", "factory/omflip1abc/token"} {
		if err := ValidateDenom(denom); err != nil {
			t.Errorf("ValidateDenom(%q) = %v, want nil", denom, err)
		}
	}
	for _, denom := range []string{"", "u", "1uom", "uom!"} {
		if err := ValidateDenom(denom); !errors.Is(err, ErrInvalidDenom) {
			t.Errorf("ValidateDenom(%q) = %v, want ErrInvalidDenom", denom, err)
		}
	}
}
