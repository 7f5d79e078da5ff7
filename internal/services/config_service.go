package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"wager-escrow-backend/internal/config"
	"wager-escrow-backend/internal/models"
)

// ConfigService owns the platform-mutable escrow configuration. It is the
// single writer: engines only ever read snapshots, handlers mutate through
// these methods, and every mutation is persisted and emits an audit event.
type ConfigService struct {
	mu    sync.RWMutex
	cfg   *models.EscrowConfig
	store Store
	sink  EventSink
	log   *logrus.Logger
}

func NewConfigService(ctx context.Context, store Store, sink EventSink, log *logrus.Logger, bootstrap *config.Config) (*ConfigService, error) {
	s := &ConfigService{store: store, sink: sink, log: log}

	cfg, err := store.GetEscrowConfig(ctx)
	if errors.Is(err, models.ErrNotFound) {
		cfg, err = seedConfig(bootstrap)
		if err != nil {
			return nil, err
		}
		if err := store.SaveEscrowConfig(ctx, cfg); err != nil {
			return nil, fmt.Errorf("persist bootstrap escrow config: %w", err)
		}
		log.WithField("fee_bps", cfg.FeeBps).Info("seeded escrow config from bootstrap values")
	} else if err != nil {
		return nil, err
	}

	s.cfg = cfg
	return s, nil
}

func seedConfig(bootstrap *config.Config) (*models.EscrowConfig, error) {
	minStake, ok := new(big.Int).SetString(bootstrap.Escrow.MinStake, 10)
	if !ok || minStake.Sign() < 0 {
		return nil, fmt.Errorf("escrow.min_stake %q is not a valid amount", bootstrap.Escrow.MinStake)
	}
	if bootstrap.Escrow.FeeBps > models.MaxFeeBps {
		return nil, fmt.Errorf("escrow.fee_bps %d exceeds the %d cap", bootstrap.Escrow.FeeBps, models.MaxFeeBps)
	}

	allowed := make(map[common.Address]bool, len(bootstrap.Escrow.AllowedTokens))
	for _, token := range bootstrap.Escrow.AllowedTokens {
		if !common.IsHexAddress(token) {
			return nil, fmt.Errorf("escrow.allowed_tokens entry %q is not an address", token)
		}
		allowed[common.HexToAddress(token)] = true
	}

	return &models.EscrowConfig{
		FeeBps:        bootstrap.Escrow.FeeBps,
		FeeRecipient:  common.HexToAddress(bootstrap.Escrow.FeeRecipient),
		ResultSigner:  common.HexToAddress(bootstrap.Escrow.ResultSigner),
		MinStake:      minStake,
		AllowedTokens: allowed,
		UpdatedAt:     time.Now().Unix(),
	}, nil
}

// Snapshot returns a deep copy safe to read without holding the lock.
func (s *ConfigService) Snapshot() *models.EscrowConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

func (s *ConfigService) SetFeeBps(ctx context.Context, feeBps uint32) error {
	if feeBps > models.MaxFeeBps {
		return fmt.Errorf("%w: fee %d bps exceeds the %d cap", models.ErrInvalidInput, feeBps, models.MaxFeeBps)
	}
	return s.update(ctx, models.EventConfigFeeUpdated, map[string]interface{}{"fee_bps": feeBps}, func(cfg *models.EscrowConfig) {
		cfg.FeeBps = feeBps
	})
}

func (s *ConfigService) SetFeeRecipient(ctx context.Context, recipient common.Address) error {
	if recipient == (common.Address{}) {
		return fmt.Errorf("%w: fee recipient must not be the zero address", models.ErrInvalidInput)
	}
	return s.update(ctx, models.EventConfigRecipientUpdated, map[string]interface{}{"fee_recipient": recipient.Hex()}, func(cfg *models.EscrowConfig) {
		cfg.FeeRecipient = recipient
	})
}

func (s *ConfigService) SetResultSigner(ctx context.Context, signer common.Address) error {
	if signer == (common.Address{}) {
		return fmt.Errorf("%w: result signer must not be the zero address", models.ErrInvalidInput)
	}
	return s.update(ctx, models.EventConfigSignerUpdated, map[string]interface{}{"result_signer": signer.Hex()}, func(cfg *models.EscrowConfig) {
		cfg.ResultSigner = signer
	})
}

func (s *ConfigService) AllowToken(ctx context.Context, token common.Address) error {
	if token == (common.Address{}) {
		return fmt.Errorf("%w: token must not be the zero address", models.ErrInvalidInput)
	}
	return s.update(ctx, models.EventConfigTokenAllowed, map[string]interface{}{"token": token.Hex()}, func(cfg *models.EscrowConfig) {
		cfg.AllowedTokens[token] = true
	})
}

func (s *ConfigService) RemoveToken(ctx context.Context, token common.Address) error {
	return s.update(ctx, models.EventConfigTokenRemoved, map[string]interface{}{"token": token.Hex()}, func(cfg *models.EscrowConfig) {
		delete(cfg.AllowedTokens, token)
	})
}

func (s *ConfigService) Pause(ctx context.Context) error {
	return s.update(ctx, models.EventConfigPaused, nil, func(cfg *models.EscrowConfig) {
		cfg.Paused = true
	})
}

func (s *ConfigService) Unpause(ctx context.Context) error {
	return s.update(ctx, models.EventConfigUnpaused, nil, func(cfg *models.EscrowConfig) {
		cfg.Paused = false
	})
}

func (s *ConfigService) update(ctx context.Context, eventType models.EventType, data map[string]interface{}, mutate func(*models.EscrowConfig)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg.Clone()
	mutate(next)
	next.UpdatedAt = time.Now().Unix()

	if err := s.store.SaveEscrowConfig(ctx, next); err != nil {
		return fmt.Errorf("persist escrow config: %w", err)
	}
	s.cfg = next

	s.log.WithField("event", eventType).Info("escrow config updated")
	s.sink.Publish(models.NewEvent(eventType, "", data))
	return nil
}
