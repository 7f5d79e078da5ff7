package services_test

import (
	"context"
	"crypto/ecdsa"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"wager-escrow-backend/internal/config"
	"wager-escrow-backend/internal/models"
	"wager-escrow-backend/internal/services"
)

const (
	testChainID = 8453
	testFeeBps  = 500
)

var (
	testToken  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	feeWallet  = common.HexToAddress("0x00000000000000000000000000000000000000fe")
	engineAddr = common.HexToAddress("0x00000000000000000000000000000000000000e5")
	playerA    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	playerB    = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	bettorC    = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	outsider   = common.HexToAddress("0x00000000000000000000000000000000000000dd")
)

// fakeClock drives deadline transitions without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{t: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// captureSink records published events so tests can assert on them.
type captureSink struct {
	mu     sync.Mutex
	events []*models.Event
}

func (s *captureSink) Publish(event *models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) countOf(eventType models.EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func (s *captureSink) lastOf(eventType models.EventType) *models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Type == eventType {
			return s.events[i]
		}
	}
	return nil
}

type testEnv struct {
	store     *services.MemoryStore
	clock     *fakeClock
	sink      *captureSink
	configSvc *services.ConfigService
	verifier  *services.EthVerifier
	match     *services.MatchEngine
	bet       *services.BetEngine
	signerKey *ecdsa.PrivateKey
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	signerKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate signer key: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := services.NewMemoryStore()
	sink := &captureSink{}
	clock := newFakeClock(time.Unix(1700000000, 0))

	bootstrap := &config.Config{
		Escrow: config.EscrowConfig{
			FeeBps:        testFeeBps,
			FeeRecipient:  feeWallet.Hex(),
			ResultSigner:  crypto.PubkeyToAddress(signerKey.PublicKey).Hex(),
			MinStake:      "1000",
			AllowedTokens: []string{testToken.Hex()},
		},
	}

	configSvc, err := services.NewConfigService(context.Background(), store, sink, log, bootstrap)
	if err != nil {
		t.Fatalf("bootstrap config service: %v", err)
	}

	verifier := services.NewEthVerifier(testChainID, engineAddr)

	return &testEnv{
		store:     store,
		clock:     clock,
		sink:      sink,
		configSvc: configSvc,
		verifier:  verifier,
		match:     services.NewMatchEngine(store, store, configSvc, verifier, sink, log, engineAddr).WithClock(clock.Now),
		bet:       services.NewBetEngine(store, store, configSvc, verifier, sink, log, engineAddr).WithClock(clock.Now),
		signerKey: signerKey,
	}
}

func (env *testEnv) fund(t *testing.T, account common.Address, amount int64) {
	t.Helper()
	if err := env.store.Credit(context.Background(), testToken, account, big.NewInt(amount)); err != nil {
		t.Fatalf("credit %s: %v", account.Hex(), err)
	}
}

func (env *testEnv) balance(t *testing.T, account common.Address) *big.Int {
	t.Helper()
	balance, err := env.store.BalanceOf(context.Background(), testToken, account)
	if err != nil {
		t.Fatalf("balance of %s: %v", account.Hex(), err)
	}
	return balance
}

func (env *testEnv) requireBalance(t *testing.T, account common.Address, want int64) {
	t.Helper()
	if got := env.balance(t, account); got.Cmp(big.NewInt(want)) != 0 {
		t.Errorf("balance of %s = %s, want %d", account.Hex(), got, want)
	}
}

func (env *testEnv) sign(t *testing.T, digest common.Hash) []byte {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash(digest.Bytes()), env.signerKey)
	if err != nil {
		t.Fatalf("sign digest: %v", err)
	}
	return sig
}

// signedMatchResult builds the authority's signed claim for a match outcome.
// Winner is services.DrawWinner for a draw.
func (env *testEnv) signedMatchResult(t *testing.T, match *models.Match, winner common.Address) *models.MatchResult {
	t.Helper()
	timestamp := env.clock.Now().Unix()
	scoreHash := crypto.Keccak256Hash([]byte("11-9"))
	claim := &services.MatchResultClaim{
		MatchID:   match.ID,
		Winner:    winner,
		PlayerA:   match.PlayerA,
		PlayerB:   match.PlayerB,
		Stake:     match.Stake,
		Token:     match.Token,
		ScoreHash: scoreHash,
		Timestamp: timestamp,
	}
	return &models.MatchResult{
		Winner:    winner,
		ScoreHash: scoreHash,
		Timestamp: timestamp,
		Signature: env.sign(t, env.verifier.MatchResultDigest(claim)),
	}
}

func (env *testEnv) signedBetResult(t *testing.T, bet *models.Bet, outcome uint32) *models.BetResult {
	t.Helper()
	timestamp := env.clock.Now().Unix()
	claim := &services.BetResultClaim{
		BetID:          bet.ID,
		WinningOutcome: outcome,
		TotalPool:      bet.TotalPool,
		Token:          bet.Token,
		Timestamp:      timestamp,
	}
	return &models.BetResult{
		WinningOutcome: outcome,
		Timestamp:      timestamp,
		Signature:      env.sign(t, env.verifier.BetResultDigest(claim)),
	}
}

func matchParams(env *testEnv, id byte, stake int64) *models.CreateMatchParams {
	now := env.clock.Now().Unix()
	return &models.CreateMatchParams{
		ID:        common.Hash{31: id},
		GameID:    "pong",
		Opponent:  playerB,
		Stake:     big.NewInt(stake),
		Token:     testToken,
		AcceptBy:  now + 3600,
		DepositBy: now + 7200,
		SettleBy:  now + 10800,
	}
}

func betParams(env *testEnv, id byte, stake int64) *models.CreateBetParams {
	now := env.clock.Now().Unix()
	return &models.CreateBetParams{
		ID:              common.Hash{31: id},
		StakePerBettor:  big.NewInt(stake),
		Token:           testToken,
		BettingDeadline: now + 3600,
		SettleBy:        now + 7200,
	}
}

// depositedMatch drives a fresh match to the fully funded state.
func depositedMatch(t *testing.T, env *testEnv, id byte, stake int64) *models.Match {
	t.Helper()
	ctx := context.Background()

	env.fund(t, playerA, stake)
	env.fund(t, playerB, stake)

	match, err := env.match.CreateMatch(ctx, playerA, matchParams(env, id, stake))
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	if _, err := env.match.AcceptMatch(ctx, playerB, match.ID); err != nil {
		t.Fatalf("accept match: %v", err)
	}
	if _, err := env.match.Deposit(ctx, playerA, match.ID); err != nil {
		t.Fatalf("deposit playerA: %v", err)
	}
	match, err = env.match.Deposit(ctx, playerB, match.ID)
	if err != nil {
		t.Fatalf("deposit playerB: %v", err)
	}
	if match.Status != models.MatchStatusDeposited {
		t.Fatalf("match status = %s, want deposited", match.Status)
	}
	return match
}
