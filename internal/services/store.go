package services

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"wager-escrow-backend/internal/models"
)

// Store persists the registry records owned by the engines. Implementations
// return models.ErrNotFound for missing records and models.ErrAlreadyExists
// from the Create methods when the id is taken.
type Store interface {
	CreateMatch(ctx context.Context, match *models.Match) error
	GetMatch(ctx context.Context, id common.Hash) (*models.Match, error)
	SaveMatch(ctx context.Context, match *models.Match) error

	CreateBet(ctx context.Context, bet *models.Bet) error
	GetBet(ctx context.Context, id common.Hash) (*models.Bet, error)
	SaveBet(ctx context.Context, bet *models.Bet) error

	GetBettor(ctx context.Context, betID common.Hash, bettor common.Address) (*models.BettorRecord, error)
	SaveBettor(ctx context.Context, record *models.BettorRecord) error

	GetEscrowConfig(ctx context.Context) (*models.EscrowConfig, error)
	SaveEscrowConfig(ctx context.Context, cfg *models.EscrowConfig) error
}

// TokenLedger is the token-transfer primitive. It tracks per-(token, account)
// balances in base units; the engine's own address is the custody account for
// all escrowed stakes. Transfer returns models.ErrInsufficientFunds when the
// source balance does not cover the amount.
type TokenLedger interface {
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
	Transfer(ctx context.Context, token, from, to common.Address, amount *big.Int) error
	// Credit mints balance into an account, mirroring an external on-ramp
	// deposit observed by the platform.
	Credit(ctx context.Context, token, account common.Address, amount *big.Int) error
}

// keyedMutex serializes state-changing calls per record id, the in-process
// equivalent of the sequencer ordering both engines assume: no two settlement
// calls for the same record can interleave, and a call never re-enters a
// record it already holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
