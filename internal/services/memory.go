package services

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"wager-escrow-backend/internal/models"
)

// MemoryStore is an in-process Store + TokenLedger. It backs the engine tests
// and local development without a Redis server; the production deployment
// uses RedisService.
type MemoryStore struct {
	mu       sync.RWMutex
	matches  map[common.Hash]*models.Match
	bets     map[common.Hash]*models.Bet
	bettors  map[string]*models.BettorRecord
	config   *models.EscrowConfig
	balances map[string]*big.Int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		matches:  make(map[common.Hash]*models.Match),
		bets:     make(map[common.Hash]*models.Bet),
		bettors:  make(map[string]*models.BettorRecord),
		balances: make(map[string]*big.Int),
	}
}

func bettorKey(betID common.Hash, bettor common.Address) string {
	return betID.Hex() + ":" + bettor.Hex()
}

func (s *MemoryStore) CreateMatch(ctx context.Context, match *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[match.ID]; ok {
		return fmt.Errorf("%w: match %s", models.ErrAlreadyExists, match.ID.Hex())
	}
	cloned := *match
	s.matches[match.ID] = &cloned
	return nil
}

func (s *MemoryStore) GetMatch(ctx context.Context, id common.Hash) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match, ok := s.matches[id]
	if !ok {
		return nil, fmt.Errorf("%w: match %s", models.ErrNotFound, id.Hex())
	}
	cloned := *match
	return &cloned, nil
}

func (s *MemoryStore) SaveMatch(ctx context.Context, match *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cloned := *match
	s.matches[match.ID] = &cloned
	return nil
}

func (s *MemoryStore) CreateBet(ctx context.Context, bet *models.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bets[bet.ID]; ok {
		return fmt.Errorf("%w: bet %s", models.ErrAlreadyExists, bet.ID.Hex())
	}
	s.bets[bet.ID] = cloneBet(bet)
	return nil
}

func (s *MemoryStore) GetBet(ctx context.Context, id common.Hash) (*models.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bet, ok := s.bets[id]
	if !ok {
		return nil, fmt.Errorf("%w: bet %s", models.ErrNotFound, id.Hex())
	}
	return cloneBet(bet), nil
}

func (s *MemoryStore) SaveBet(ctx context.Context, bet *models.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bets[bet.ID] = cloneBet(bet)
	return nil
}

func (s *MemoryStore) GetBettor(ctx context.Context, betID common.Hash, bettor common.Address) (*models.BettorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.bettors[bettorKey(betID, bettor)]
	if !ok {
		return nil, fmt.Errorf("%w: bettor %s on bet %s", models.ErrNotFound, bettor.Hex(), betID.Hex())
	}
	cloned := *record
	return &cloned, nil
}

func (s *MemoryStore) SaveBettor(ctx context.Context, record *models.BettorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cloned := *record
	s.bettors[bettorKey(record.BetID, record.Bettor)] = &cloned
	return nil
}

func (s *MemoryStore) GetEscrowConfig(ctx context.Context) (*models.EscrowConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil, fmt.Errorf("%w: escrow config", models.ErrNotFound)
	}
	return s.config.Clone(), nil
}

func (s *MemoryStore) SaveEscrowConfig(ctx context.Context, cfg *models.EscrowConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg.Clone()
	return nil
}

func (s *MemoryStore) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, ok := s.balances[token.Hex()+":"+account.Hex()]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

func (s *MemoryStore) Transfer(ctx context.Context, token, from, to common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive", models.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	fromKey := token.Hex() + ":" + from.Hex()
	toKey := token.Hex() + ":" + to.Hex()

	fromBal, ok := s.balances[fromKey]
	if !ok || fromBal.Cmp(amount) < 0 {
		have := big.NewInt(0)
		if ok {
			have = fromBal
		}
		return fmt.Errorf("%w: have %s, need %s", models.ErrInsufficientFunds, have, amount)
	}

	toBal, ok := s.balances[toKey]
	if !ok {
		toBal = big.NewInt(0)
		s.balances[toKey] = toBal
	}
	fromBal.Sub(fromBal, amount)
	toBal.Add(toBal, amount)
	return nil
}

func (s *MemoryStore) Credit(ctx context.Context, token, account common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: credit amount must be positive", models.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := token.Hex() + ":" + account.Hex()
	balance, ok := s.balances[key]
	if !ok {
		balance = big.NewInt(0)
		s.balances[key] = balance
	}
	balance.Add(balance, amount)
	return nil
}

func cloneBet(bet *models.Bet) *models.Bet {
	cloned := *bet
	cloned.StakePerBettor = copyBig(bet.StakePerBettor)
	cloned.TotalPool = copyBig(bet.TotalPool)
	cloned.FeeCollected = copyBig(bet.FeeCollected)
	cloned.WinnerPool = copyBig(bet.WinnerPool)
	if bet.OutcomeTally != nil {
		cloned.OutcomeTally = make(map[uint32]uint64, len(bet.OutcomeTally))
		for outcome, count := range bet.OutcomeTally {
			cloned.OutcomeTally[outcome] = count
		}
	}
	return &cloned
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
