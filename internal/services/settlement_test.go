package services_test

import (
	"math/big"
	"testing"

	"wager-escrow-backend/internal/services"
)

func TestSplitPool(t *testing.T) {
	tests := []struct {
		name   string
		pool   string
		feeBps uint32
		fee    string
		payout string
	}{
		{"two player pool at 5%", "2000000", 500, "100000", "1900000"},
		{"three bettor pool at 5%", "3000000", 500, "150000", "2850000"},
		{"zero fee", "2000000", 0, "0", "2000000"},
		{"max fee", "2000000", 3000, "600000", "1400000"},
		{"indivisible remainder stays on payout side", "999", 500, "49", "950"},
		{"empty pool", "0", 500, "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, _ := new(big.Int).SetString(tt.pool, 10)
			fee, payout := services.SplitPool(pool, tt.feeBps)

			if fee.String() != tt.fee {
				t.Errorf("fee = %s, want %s", fee, tt.fee)
			}
			if payout.String() != tt.payout {
				t.Errorf("payout = %s, want %s", payout, tt.payout)
			}
			if sum := new(big.Int).Add(fee, payout); sum.Cmp(pool) != 0 {
				t.Errorf("fee + payout = %s, want the full pool %s", sum, pool)
			}
		})
	}
}

func TestSplitPoolLargeAmounts(t *testing.T) {
	// 10^24 base units overflows int64; the split must stay exact
	pool := new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)
	fee, payout := services.SplitPool(pool, 500)

	wantFee := new(big.Int).Exp(big.NewInt(10), big.NewInt(22), nil)
	wantFee.Mul(wantFee, big.NewInt(5))
	if fee.Cmp(wantFee) != 0 {
		t.Errorf("fee = %s, want %s", fee, wantFee)
	}
	if sum := new(big.Int).Add(fee, payout); sum.Cmp(pool) != 0 {
		t.Errorf("fee + payout = %s, want %s", sum, pool)
	}
}

func TestWinnerShare(t *testing.T) {
	tests := []struct {
		name        string
		winnerPool  string
		winnerCount uint64
		want        string
	}{
		{"two winners split evenly", "2850000", 2, "1425000"},
		{"single winner takes all", "2850000", 1, "2850000"},
		{"dust remainder floors", "100", 3, "33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, _ := new(big.Int).SetString(tt.winnerPool, 10)
			if got := services.WinnerShare(pool, tt.winnerCount); got.String() != tt.want {
				t.Errorf("WinnerShare(%s, %d) = %s, want %s", tt.winnerPool, tt.winnerCount, got, tt.want)
			}
		})
	}
}
