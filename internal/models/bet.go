package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type BetStatus string

const (
	BetStatusOpen      BetStatus = "open"
	BetStatusLocked    BetStatus = "locked"
	BetStatusSettled   BetStatus = "settled"
	BetStatusCancelled BetStatus = "cancelled"
	BetStatusRefunded  BetStatus = "refunded"
)

func (s BetStatus) Terminal() bool {
	switch s {
	case BetStatusSettled, BetStatusCancelled, BetStatusRefunded:
		return true
	}
	return false
}

// Accepting reports whether new stakes may still be placed.
func (s BetStatus) Accepting() bool {
	return s == BetStatusOpen
}

type Bet struct {
	ID             common.Hash    `json:"id" redis:"id"`
	Creator        common.Address `json:"creator" redis:"creator"`
	StakePerBettor *big.Int       `json:"stake_per_bettor" redis:"stake_per_bettor"`
	Token          common.Address `json:"token" redis:"token"`
	Status         BetStatus      `json:"status" redis:"status"`

	BettingDeadline int64 `json:"betting_deadline" redis:"betting_deadline"`
	SettleBy        int64 `json:"settle_by" redis:"settle_by"`

	// WinningOutcome is 0 until settlement; outcomes are 1-indexed.
	WinningOutcome uint32   `json:"winning_outcome" redis:"winning_outcome"`
	TotalPool      *big.Int `json:"total_pool" redis:"total_pool"`
	FeeCollected   *big.Int `json:"fee_collected" redis:"fee_collected"`
	WinnerPool     *big.Int `json:"winner_pool" redis:"winner_pool"`
	WinnerCount    uint64   `json:"winner_count" redis:"winner_count"`
	BettorCount    uint64   `json:"bettor_count" redis:"bettor_count"`

	// OutcomeTally counts bettors per chosen outcome.
	OutcomeTally map[uint32]uint64 `json:"outcome_tally" redis:"outcome_tally"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
	UpdatedAt int64 `json:"updated_at" redis:"updated_at"`
}

// BettorRecord is one participant's position in one bet. Outcome is set
// exactly once on stake placement and never changes afterwards.
type BettorRecord struct {
	BetID    common.Hash    `json:"bet_id" redis:"bet_id"`
	Bettor   common.Address `json:"bettor" redis:"bettor"`
	Outcome  uint32         `json:"outcome" redis:"outcome"`
	Claimed  bool           `json:"claimed" redis:"claimed"`
	PlacedAt int64          `json:"placed_at" redis:"placed_at"`
}

type CreateBetParams struct {
	ID              common.Hash
	StakePerBettor  *big.Int
	Token           common.Address
	BettingDeadline int64
	SettleBy        int64
}

// BetResult is the signed outcome claim for a bet pool.
type BetResult struct {
	WinningOutcome uint32
	Timestamp      int64
	Signature      []byte
}
