package services

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"wager-escrow-backend/internal/models"
)

// DrawWinner is the sentinel bound into a match digest when no winner exists.
var DrawWinner = common.Address{}

// MatchResultClaim is the full signed-message content for a match outcome.
// Field order is the wire contract with the off-chain authority; changing it
// breaks every deployed signer and must be versioned.
type MatchResultClaim struct {
	MatchID   common.Hash
	Winner    common.Address
	PlayerA   common.Address
	PlayerB   common.Address
	Stake     *big.Int
	Token     common.Address
	ScoreHash common.Hash
	Timestamp int64
}

// BetResultClaim is the signed-message content for a bet pool outcome.
type BetResultClaim struct {
	BetID          common.Hash
	WinningOutcome uint32
	TotalPool      *big.Int
	Token          common.Address
	Timestamp      int64
}

// ResultVerifier checks that an outcome claim was attested by the configured
// result authority. The engines depend on this interface so the core can be
// exercised with a stub authority in tests.
type ResultVerifier interface {
	VerifyMatchResult(claim *MatchResultClaim, sig []byte, signer common.Address) error
	VerifyBetResult(claim *BetResultClaim, sig []byte, signer common.Address) error
}

// EthVerifier recovers an ECDSA personal-message (EIP-191) signature over a
// keccak256 digest of the claim. The digest binds the chain id and the engine
// address, so a signature for one deployment can never settle another.
type EthVerifier struct {
	chainID    *big.Int
	engineAddr common.Address
}

func NewEthVerifier(chainID int64, engineAddr common.Address) *EthVerifier {
	return &EthVerifier{
		chainID:    big.NewInt(chainID),
		engineAddr: engineAddr,
	}
}

func (v *EthVerifier) MatchResultDigest(claim *MatchResultClaim) common.Hash {
	return crypto.Keccak256Hash(
		claim.MatchID.Bytes(),
		claim.Winner.Bytes(),
		claim.PlayerA.Bytes(),
		claim.PlayerB.Bytes(),
		common.BigToHash(claim.Stake).Bytes(),
		claim.Token.Bytes(),
		claim.ScoreHash.Bytes(),
		common.BigToHash(big.NewInt(claim.Timestamp)).Bytes(),
		common.BigToHash(v.chainID).Bytes(),
		v.engineAddr.Bytes(),
	)
}

func (v *EthVerifier) BetResultDigest(claim *BetResultClaim) common.Hash {
	return crypto.Keccak256Hash(
		claim.BetID.Bytes(),
		common.BigToHash(big.NewInt(int64(claim.WinningOutcome))).Bytes(),
		common.BigToHash(claim.TotalPool).Bytes(),
		claim.Token.Bytes(),
		common.BigToHash(big.NewInt(claim.Timestamp)).Bytes(),
		common.BigToHash(v.chainID).Bytes(),
		v.engineAddr.Bytes(),
	)
}

func (v *EthVerifier) VerifyMatchResult(claim *MatchResultClaim, sig []byte, signer common.Address) error {
	return verifyDigest(v.MatchResultDigest(claim), sig, signer)
}

func (v *EthVerifier) VerifyBetResult(claim *BetResultClaim, sig []byte, signer common.Address) error {
	return verifyDigest(v.BetResultDigest(claim), sig, signer)
}

func verifyDigest(digest common.Hash, sig []byte, signer common.Address) error {
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: signature must be %d bytes", models.ErrBadSignature, crypto.SignatureLength)
	}
	if signer == (common.Address{}) {
		return fmt.Errorf("%w: result signer not configured", models.ErrBadSignature)
	}

	// wallets emit v as 27/28, crypto.SigToPub wants 0/1
	normalized := make([]byte, crypto.SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash(digest.Bytes()), normalized)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrBadSignature, err)
	}
	if recovered := crypto.PubkeyToAddress(*pub); recovered != signer {
		return fmt.Errorf("%w: recovered %s, want %s", models.ErrBadSignature, recovered.Hex(), signer.Hex())
	}
	return nil
}
