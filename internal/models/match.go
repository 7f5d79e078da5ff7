package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type MatchStatus string

const (
	MatchStatusCreated   MatchStatus = "created"
	MatchStatusAccepted  MatchStatus = "accepted"
	MatchStatusDeposited MatchStatus = "deposited"
	MatchStatusSettled   MatchStatus = "settled"
	MatchStatusRefunded  MatchStatus = "refunded"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// Terminal reports whether the match can never change state again.
func (s MatchStatus) Terminal() bool {
	switch s {
	case MatchStatusSettled, MatchStatusRefunded, MatchStatusCancelled:
		return true
	}
	return false
}

type Match struct {
	ID      common.Hash    `json:"id" redis:"id"`
	GameID  string         `json:"game_id" redis:"game_id"`
	PlayerA common.Address `json:"player_a" redis:"player_a"`
	PlayerB common.Address `json:"player_b" redis:"player_b"`
	Stake   *big.Int       `json:"stake" redis:"stake"`
	Token   common.Address `json:"token" redis:"token"`
	Status  MatchStatus    `json:"status" redis:"status"`

	AcceptBy  int64 `json:"accept_by" redis:"accept_by"`
	DepositBy int64 `json:"deposit_by" redis:"deposit_by"`
	SettleBy  int64 `json:"settle_by" redis:"settle_by"`

	PlayerADeposited bool `json:"player_a_deposited" redis:"player_a_deposited"`
	PlayerBDeposited bool `json:"player_b_deposited" redis:"player_b_deposited"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
	UpdatedAt int64 `json:"updated_at" redis:"updated_at"`
}

// IsPlayer reports whether addr is one of the two parties.
func (m *Match) IsPlayer(addr common.Address) bool {
	return addr == m.PlayerA || addr == m.PlayerB
}

// Pool is the total custodied amount once both players have funded.
func (m *Match) Pool() *big.Int {
	return new(big.Int).Mul(m.Stake, big.NewInt(2))
}

// CreateMatchParams carries the validated, typed fields of a createMatch call.
type CreateMatchParams struct {
	ID        common.Hash
	GameID    string
	Opponent  common.Address
	Stake     *big.Int
	Token     common.Address
	AcceptBy  int64
	DepositBy int64
	SettleBy  int64
}

// MatchResult is the signed outcome claim produced by the result authority.
// Winner is the zero address for a draw.
type MatchResult struct {
	Winner    common.Address
	ScoreHash common.Hash
	Timestamp int64
	Signature []byte
}
