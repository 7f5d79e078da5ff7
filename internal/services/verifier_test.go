package services_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"wager-escrow-backend/internal/models"
	"wager-escrow-backend/internal/services"
)

func testMatchClaim() *services.MatchResultClaim {
	return &services.MatchResultClaim{
		MatchID:   common.Hash{31: 1},
		Winner:    playerA,
		PlayerA:   playerA,
		PlayerB:   playerB,
		Stake:     big.NewInt(1000000),
		Token:     testToken,
		ScoreHash: crypto.Keccak256Hash([]byte("3-1")),
		Timestamp: 1700000000,
	}
}

func TestVerifyMatchResult(t *testing.T) {
	env := newTestEnv(t)
	signer := crypto.PubkeyToAddress(env.signerKey.PublicKey)

	claim := testMatchClaim()
	sig := env.sign(t, env.verifier.MatchResultDigest(claim))

	if err := env.verifier.VerifyMatchResult(claim, sig, signer); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	t.Run("tampered winner", func(t *testing.T) {
		tampered := *claim
		tampered.Winner = playerB
		err := env.verifier.VerifyMatchResult(&tampered, sig, signer)
		if !errors.Is(err, models.ErrBadSignature) {
			t.Errorf("err = %v, want ErrBadSignature", err)
		}
	})

	t.Run("tampered stake", func(t *testing.T) {
		tampered := *claim
		tampered.Stake = big.NewInt(1)
		err := env.verifier.VerifyMatchResult(&tampered, sig, signer)
		if !errors.Is(err, models.ErrBadSignature) {
			t.Errorf("err = %v, want ErrBadSignature", err)
		}
	})

	t.Run("wrong signer", func(t *testing.T) {
		otherKey, _ := crypto.GenerateKey()
		otherSig, err := crypto.Sign(accounts.TextHash(env.verifier.MatchResultDigest(claim).Bytes()), otherKey)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if err := env.verifier.VerifyMatchResult(claim, otherSig, signer); !errors.Is(err, models.ErrBadSignature) {
			t.Errorf("err = %v, want ErrBadSignature", err)
		}
	})

	t.Run("truncated signature", func(t *testing.T) {
		err := env.verifier.VerifyMatchResult(claim, sig[:64], signer)
		if !errors.Is(err, models.ErrBadSignature) {
			t.Errorf("err = %v, want ErrBadSignature", err)
		}
	})

	t.Run("unconfigured signer", func(t *testing.T) {
		err := env.verifier.VerifyMatchResult(claim, sig, common.Address{})
		if !errors.Is(err, models.ErrBadSignature) {
			t.Errorf("err = %v, want ErrBadSignature", err)
		}
	})
}

func TestVerifyMatchResultWalletStyleV(t *testing.T) {
	// wallets put 27/28 in the recovery byte instead of 0/1
	env := newTestEnv(t)
	signer := crypto.PubkeyToAddress(env.signerKey.PublicKey)

	claim := testMatchClaim()
	sig := env.sign(t, env.verifier.MatchResultDigest(claim))
	sig[64] += 27

	if err := env.verifier.VerifyMatchResult(claim, sig, signer); err != nil {
		t.Fatalf("wallet-style v rejected: %v", err)
	}
}

func TestVerifyBetResult(t *testing.T) {
	env := newTestEnv(t)
	signer := crypto.PubkeyToAddress(env.signerKey.PublicKey)

	claim := &services.BetResultClaim{
		BetID:          common.Hash{31: 2},
		WinningOutcome: 3,
		TotalPool:      big.NewInt(5000000),
		Token:          testToken,
		Timestamp:      1700000000,
	}
	sig := env.sign(t, env.verifier.BetResultDigest(claim))

	if err := env.verifier.VerifyBetResult(claim, sig, signer); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	tampered := *claim
	tampered.WinningOutcome = 1
	if err := env.verifier.VerifyBetResult(&tampered, sig, signer); !errors.Is(err, models.ErrBadSignature) {
		t.Errorf("err = %v, want ErrBadSignature", err)
	}
}

func TestDigestBoundToDeployment(t *testing.T) {
	// a signature for one chain id / engine address must not verify on another
	env := newTestEnv(t)
	signer := crypto.PubkeyToAddress(env.signerKey.PublicKey)

	claim := testMatchClaim()
	sig := env.sign(t, env.verifier.MatchResultDigest(claim))

	otherChain := services.NewEthVerifier(testChainID+1, engineAddr)
	if err := otherChain.VerifyMatchResult(claim, sig, signer); !errors.Is(err, models.ErrBadSignature) {
		t.Errorf("cross-chain replay: err = %v, want ErrBadSignature", err)
	}

	otherEngine := services.NewEthVerifier(testChainID, outsider)
	if err := otherEngine.VerifyMatchResult(claim, sig, signer); !errors.Is(err, models.ErrBadSignature) {
		t.Errorf("cross-engine replay: err = %v, want ErrBadSignature", err)
	}
}
