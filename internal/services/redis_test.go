package services_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"wager-escrow-backend/internal/config"
	"wager-escrow-backend/internal/models"
	"wager-escrow-backend/internal/services"
)

func newTestRedis(t *testing.T) *services.RedisService {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	svc, err := services.NewRedisService(&config.Config{
		Redis: config.RedisConfig{Addr: addr, DB: 15},
	})
	if err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestRedisMatchRoundTrip(t *testing.T) {
	svc := newTestRedis(t)
	ctx := context.Background()

	match := &models.Match{
		ID:        common.Hash{31: 0xf1},
		GameID:    "pong",
		PlayerA:   playerA,
		PlayerB:   playerB,
		Stake:     big.NewInt(1000000),
		Token:     testToken,
		Status:    models.MatchStatusCreated,
		AcceptBy:  1700003600,
		DepositBy: 1700007200,
		SettleBy:  1700010800,
		CreatedAt: 1700000000,
		UpdatedAt: 1700000000,
	}
	t.Cleanup(func() { svc.DeleteMatch(ctx, match.ID) })

	if err := svc.CreateMatch(ctx, match); err != nil {
		t.Fatalf("create match: %v", err)
	}
	if err := svc.CreateMatch(ctx, match); !errors.Is(err, models.ErrAlreadyExists) {
		t.Errorf("duplicate create: err = %v, want ErrAlreadyExists", err)
	}

	loaded, err := svc.GetMatch(ctx, match.ID)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if loaded.Stake.Cmp(match.Stake) != 0 || loaded.Status != match.Status || loaded.PlayerB != playerB {
		t.Errorf("loaded match differs: %+v", loaded)
	}

	loaded.Status = models.MatchStatusAccepted
	if err := svc.SaveMatch(ctx, loaded); err != nil {
		t.Fatalf("save match: %v", err)
	}
	reloaded, err := svc.GetMatch(ctx, match.ID)
	if err != nil {
		t.Fatalf("get after save: %v", err)
	}
	if reloaded.Status != models.MatchStatusAccepted {
		t.Errorf("status = %s, want accepted", reloaded.Status)
	}
}

func TestRedisBetRoundTrip(t *testing.T) {
	svc := newTestRedis(t)
	ctx := context.Background()

	bet := &models.Bet{
		ID:              common.Hash{31: 0xf2},
		Creator:         playerA,
		StakePerBettor:  big.NewInt(1000000),
		Token:           testToken,
		Status:          models.BetStatusOpen,
		BettingDeadline: 1700003600,
		SettleBy:        1700007200,
		TotalPool:       big.NewInt(3000000),
		FeeCollected:    big.NewInt(0),
		WinnerPool:      big.NewInt(0),
		BettorCount:     3,
		OutcomeTally:    map[uint32]uint64{1: 2, 2: 1},
		CreatedAt:       1700000000,
		UpdatedAt:       1700000000,
	}
	t.Cleanup(func() { svc.DeleteBet(ctx, bet.ID) })

	if err := svc.CreateBet(ctx, bet); err != nil {
		t.Fatalf("create bet: %v", err)
	}
	loaded, err := svc.GetBet(ctx, bet.ID)
	if err != nil {
		t.Fatalf("get bet: %v", err)
	}
	if loaded.TotalPool.Cmp(bet.TotalPool) != 0 {
		t.Errorf("pool = %s, want %s", loaded.TotalPool, bet.TotalPool)
	}
	if loaded.OutcomeTally[1] != 2 || loaded.OutcomeTally[2] != 1 {
		t.Errorf("tally = %v, want map[1:2 2:1]", loaded.OutcomeTally)
	}

	record := &models.BettorRecord{BetID: bet.ID, Bettor: playerB, Outcome: 1, PlacedAt: 1700000100}
	if err := svc.SaveBettor(ctx, record); err != nil {
		t.Fatalf("save bettor: %v", err)
	}
	got, err := svc.GetBettor(ctx, bet.ID, playerB)
	if err != nil {
		t.Fatalf("get bettor: %v", err)
	}
	if got.Outcome != 1 || got.Claimed {
		t.Errorf("bettor record = %+v", got)
	}

	if _, err := svc.GetBettor(ctx, bet.ID, outsider); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing bettor: err = %v, want ErrNotFound", err)
	}
}

func TestRedisBalances(t *testing.T) {
	svc := newTestRedis(t)
	ctx := context.Background()

	from := common.HexToAddress("0x00000000000000000000000000000000000000f3")
	to := common.HexToAddress("0x00000000000000000000000000000000000000f4")
	t.Cleanup(func() {
		svc.DeleteBalance(ctx, testToken, from)
		svc.DeleteBalance(ctx, testToken, to)
	})

	// amounts beyond int64 must round-trip exactly
	amount, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	if err := svc.Credit(ctx, testToken, from, amount); err != nil {
		t.Fatalf("credit: %v", err)
	}
	balance, err := svc.BalanceOf(ctx, testToken, from)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(amount) != 0 {
		t.Errorf("balance = %s, want %s", balance, amount)
	}

	if err := svc.Transfer(ctx, testToken, from, to, big.NewInt(1000)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	toBalance, err := svc.BalanceOf(ctx, testToken, to)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if toBalance.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("recipient balance = %s, want 1000", toBalance)
	}

	err = svc.Transfer(ctx, testToken, to, from, big.NewInt(2000))
	if !errors.Is(err, models.ErrInsufficientFunds) {
		t.Errorf("overdraft: err = %v, want ErrInsufficientFunds", err)
	}
	if err := svc.Transfer(ctx, testToken, from, to, big.NewInt(0)); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("zero transfer: err = %v, want ErrInvalidInput", err)
	}
}

func TestRedisRateLimit(t *testing.T) {
	svc := newTestRedis(t)
	ctx := context.Background()

	caller := "ratelimit-test-" + time.Now().Format("150405.000000000")
	for i := 0; i < 3; i++ {
		ok, err := svc.CheckRateLimit(ctx, caller, "place", 3, time.Minute)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("check %d rejected below the limit", i)
		}
	}
	ok, err := svc.CheckRateLimit(ctx, caller, "place", 3, time.Minute)
	if err != nil {
		t.Fatalf("check over limit: %v", err)
	}
	if ok {
		t.Error("fourth call allowed with limit 3")
	}
}
