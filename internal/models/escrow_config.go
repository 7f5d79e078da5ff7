package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MaxFeeBps caps the platform fee at 30%.
const MaxFeeBps = 3000

// BpsDenominator converts basis points to a fraction.
const BpsDenominator = 10000

// EscrowConfig is the platform-mutable configuration shared by both engines.
// It is persisted as a single record and only the platform role may write it;
// every change emits an audit event.
type EscrowConfig struct {
	FeeBps        uint32                  `json:"fee_bps" redis:"fee_bps"`
	FeeRecipient  common.Address          `json:"fee_recipient" redis:"fee_recipient"`
	ResultSigner  common.Address          `json:"result_signer" redis:"result_signer"`
	MinStake      *big.Int                `json:"min_stake" redis:"min_stake"`
	AllowedTokens map[common.Address]bool `json:"allowed_tokens" redis:"allowed_tokens"`
	Paused        bool                    `json:"paused" redis:"paused"`
	UpdatedAt     int64                   `json:"updated_at" redis:"updated_at"`
}

func (c *EscrowConfig) TokenAllowed(token common.Address) bool {
	return c.AllowedTokens[token]
}

// Clone returns a deep copy so engines can read a snapshot without holding
// the config lock.
func (c *EscrowConfig) Clone() *EscrowConfig {
	out := *c
	out.MinStake = new(big.Int).Set(c.MinStake)
	out.AllowedTokens = make(map[common.Address]bool, len(c.AllowedTokens))
	for token, ok := range c.AllowedTokens {
		out.AllowedTokens[token] = ok
	}
	return &out
}
