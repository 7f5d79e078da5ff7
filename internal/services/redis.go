package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"wager-escrow-backend/internal/config"
	"wager-escrow-backend/internal/models"
)

// RedisService implements Store and TokenLedger on a single Redis instance.
// Records are stored as JSON blobs, balances as decimal strings so amounts
// are never squeezed through float or int64.
type RedisService struct {
	client *redis.Client
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{client: client}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) CreateMatch(ctx context.Context, match *models.Match) error {
	return s.createJSON(ctx, fmt.Sprintf(KeyMatch, match.ID.Hex()), match)
}

func (s *RedisService) GetMatch(ctx context.Context, id common.Hash) (*models.Match, error) {
	var match models.Match
	if err := s.getJSON(ctx, fmt.Sprintf(KeyMatch, id.Hex()), &match); err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *RedisService) SaveMatch(ctx context.Context, match *models.Match) error {
	return s.setJSON(ctx, fmt.Sprintf(KeyMatch, match.ID.Hex()), match)
}

func (s *RedisService) CreateBet(ctx context.Context, bet *models.Bet) error {
	return s.createJSON(ctx, fmt.Sprintf(KeyBet, bet.ID.Hex()), bet)
}

func (s *RedisService) GetBet(ctx context.Context, id common.Hash) (*models.Bet, error) {
	var bet models.Bet
	if err := s.getJSON(ctx, fmt.Sprintf(KeyBet, id.Hex()), &bet); err != nil {
		return nil, err
	}
	return &bet, nil
}

func (s *RedisService) SaveBet(ctx context.Context, bet *models.Bet) error {
	return s.setJSON(ctx, fmt.Sprintf(KeyBet, bet.ID.Hex()), bet)
}

func (s *RedisService) GetBettor(ctx context.Context, betID common.Hash, bettor common.Address) (*models.BettorRecord, error) {
	var record models.BettorRecord
	if err := s.getJSON(ctx, fmt.Sprintf(KeyBettor, betID.Hex(), bettor.Hex()), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *RedisService) SaveBettor(ctx context.Context, record *models.BettorRecord) error {
	return s.setJSON(ctx, fmt.Sprintf(KeyBettor, record.BetID.Hex(), record.Bettor.Hex()), record)
}

func (s *RedisService) GetEscrowConfig(ctx context.Context) (*models.EscrowConfig, error) {
	var cfg models.EscrowConfig
	if err := s.getJSON(ctx, KeyEscrowConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *RedisService) SaveEscrowConfig(ctx context.Context, cfg *models.EscrowConfig) error {
	return s.setJSON(ctx, KeyEscrowConfig, cfg)
}

func (s *RedisService) createJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %v", err)
	}
	ok, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create record: %v", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrAlreadyExists, key)
	}
	return nil
}

func (s *RedisService) getJSON(ctx context.Context, key string, v interface{}) error {
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return fmt.Errorf("%w: %s", models.ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("failed to get record: %v", err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("failed to unmarshal record: %v", err)
	}
	return nil
}

func (s *RedisService) setJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %v", err)
	}
	return s.client.Set(ctx, key, data, 0).Err()
}

func balanceKey(token, account common.Address) string {
	return fmt.Sprintf(KeyBalance, token.Hex(), account.Hex())
}

func (s *RedisService) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	data, err := s.client.Get(ctx, balanceKey(token, account)).Result()
	if err == redis.Nil {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %v", err)
	}
	balance, ok := new(big.Int).SetString(data, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt balance value %q", data)
	}
	return balance, nil
}

// Transfer moves amount between two balance keys inside an optimistic WATCH
// transaction so a concurrent writer forces a retry instead of a lost update.
// Balances exceed int64 range, so the arithmetic happens client-side in
// big.Int rather than in a Lua script.
func (s *RedisService) Transfer(ctx context.Context, token, from, to common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive", models.ErrInvalidInput)
	}
	fromKey := balanceKey(token, from)
	toKey := balanceKey(token, to)

	txf := func(tx *redis.Tx) error {
		fromVal, err := tx.Get(ctx, fromKey).Result()
		if err == redis.Nil {
			fromVal = "0"
		} else if err != nil {
			return err
		}
		toVal, err := tx.Get(ctx, toKey).Result()
		if err == redis.Nil {
			toVal = "0"
		} else if err != nil {
			return err
		}

		fromBal, ok := new(big.Int).SetString(fromVal, 10)
		if !ok {
			return fmt.Errorf("corrupt balance value %q", fromVal)
		}
		toBal, ok := new(big.Int).SetString(toVal, 10)
		if !ok {
			return fmt.Errorf("corrupt balance value %q", toVal)
		}

		if fromBal.Cmp(amount) < 0 {
			return fmt.Errorf("%w: have %s, need %s", models.ErrInsufficientFunds, fromBal, amount)
		}
		fromBal.Sub(fromBal, amount)
		toBal.Add(toBal, amount)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, fromKey, fromBal.String(), 0)
			pipe.Set(ctx, toKey, toBal.String(), 0)
			return nil
		})
		return err
	}

	for i := 0; i < 5; i++ {
		err := s.client.Watch(ctx, txf, fromKey, toKey)
		if err != redis.TxFailedErr {
			return err
		}
	}
	return fmt.Errorf("transfer contention on %s, giving up", fromKey)
}

func (s *RedisService) Credit(ctx context.Context, token, account common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: credit amount must be positive", models.ErrInvalidInput)
	}
	key := balanceKey(token, account)

	txf := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			val = "0"
		} else if err != nil {
			return err
		}
		balance, ok := new(big.Int).SetString(val, 10)
		if !ok {
			return fmt.Errorf("corrupt balance value %q", val)
		}
		balance.Add(balance, amount)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, balance.String(), 0)
			return nil
		})
		return err
	}

	for i := 0; i < 5; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err != redis.TxFailedErr {
			return err
		}
	}
	return fmt.Errorf("credit contention on %s, giving up", key)
}

func (s *RedisService) CheckRateLimit(ctx context.Context, caller, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, caller, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// test helpers

func (s *RedisService) DeleteMatch(ctx context.Context, id common.Hash) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyMatch, id.Hex())).Err()
}

func (s *RedisService) DeleteBet(ctx context.Context, id common.Hash) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyBet, id.Hex())).Err()
}

func (s *RedisService) DeleteBalance(ctx context.Context, token, account common.Address) error {
	return s.client.Del(ctx, balanceKey(token, account)).Err()
}
