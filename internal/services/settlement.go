package services

import (
	"math/big"

	"wager-escrow-backend/internal/models"
)

var bpsDenominator = big.NewInt(models.BpsDenominator)

// SplitPool divides a settled pool into the platform fee and the payout
// remainder. Fee division floors, so any indivisible remainder stays on the
// payout side rather than being dropped: fee + payout == pool always.
func SplitPool(pool *big.Int, feeBps uint32) (fee, payout *big.Int) {
	fee = new(big.Int).Mul(pool, big.NewInt(int64(feeBps)))
	fee.Div(fee, bpsDenominator)
	payout = new(big.Int).Sub(pool, fee)
	return fee, payout
}

// WinnerShare is one winner's cut of the winner pool. Integer division; the
// remainder (at most winnerCount-1 base units) stays with the contract.
func WinnerShare(winnerPool *big.Int, winnerCount uint64) *big.Int {
	return new(big.Int).Div(winnerPool, new(big.Int).SetUint64(winnerCount))
}
