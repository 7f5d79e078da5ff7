package services

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"wager-escrow-backend/internal/models"
)

// BetEngine is the N-party outcome-betting escrow. Settlement only moves the
// platform fee; winners pull their shares individually through ClaimWinnings,
// so the cost of settling stays flat no matter how many bettors joined and a
// single failing payout cannot block the rest.
type BetEngine struct {
	store      Store
	ledger     TokenLedger
	config     *ConfigService
	verifier   ResultVerifier
	sink       EventSink
	log        *logrus.Logger
	locks      *keyedMutex
	escrowAddr common.Address

	now func() time.Time
}

func NewBetEngine(store Store, ledger TokenLedger, config *ConfigService, verifier ResultVerifier, sink EventSink, log *logrus.Logger, escrowAddr common.Address) *BetEngine {
	return &BetEngine{
		store:      store,
		ledger:     ledger,
		config:     config,
		verifier:   verifier,
		sink:       sink,
		log:        log,
		locks:      newKeyedMutex(),
		escrowAddr: escrowAddr,
		now:        time.Now,
	}
}

// WithClock replaces the engine's time source; deadline behavior becomes
// deterministic under test.
func (e *BetEngine) WithClock(now func() time.Time) *BetEngine {
	e.now = now
	return e
}

func (e *BetEngine) CreateBet(ctx context.Context, caller common.Address, params *models.CreateBetParams) (*models.Bet, error) {
	cfg := e.config.Snapshot()
	if cfg.Paused {
		return nil, models.ErrPaused
	}

	if params.StakePerBettor.Cmp(cfg.MinStake) < 0 {
		return nil, fmt.Errorf("%w: stake %s is below the %s minimum", models.ErrStakeTooLow, params.StakePerBettor, cfg.MinStake)
	}
	if !cfg.TokenAllowed(params.Token) {
		return nil, fmt.Errorf("%w: %s", models.ErrTokenNotAllowed, params.Token.Hex())
	}

	now := e.now().Unix()
	if params.BettingDeadline <= now || params.SettleBy <= params.BettingDeadline {
		return nil, fmt.Errorf("%w: need now < betting_deadline < settle_by", models.ErrBadDeadlines)
	}

	bet := &models.Bet{
		ID:              params.ID,
		Creator:         caller,
		StakePerBettor:  params.StakePerBettor,
		Token:           params.Token,
		Status:          models.BetStatusOpen,
		BettingDeadline: params.BettingDeadline,
		SettleBy:        params.SettleBy,
		TotalPool:       big.NewInt(0),
		FeeCollected:    big.NewInt(0),
		WinnerPool:      big.NewInt(0),
		OutcomeTally:    make(map[uint32]uint64),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := e.store.CreateBet(ctx, bet); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"bet_id":  bet.ID.Hex(),
		"creator": caller.Hex(),
		"stake":   bet.StakePerBettor.String(),
	}).Info("bet created")

	e.emit(models.EventBetCreated, bet, nil)
	return bet, nil
}

// PlaceBet stakes the fixed amount on one outcome. The choice is immutable
// once recorded; there is no changing sides after staking.
func (e *BetEngine) PlaceBet(ctx context.Context, caller common.Address, id common.Hash, outcome uint32) (*models.Bet, error) {
	unlock := e.locks.lock(id.Hex())
	defer unlock()

	cfg := e.config.Snapshot()
	if cfg.Paused {
		return nil, models.ErrPaused
	}
	if outcome < 1 {
		return nil, fmt.Errorf("%w: outcomes are 1-indexed", models.ErrInvalidInput)
	}

	bet, err := e.store.GetBet(ctx, id)
	if err != nil {
		return nil, err
	}
	if !bet.Status.Accepting() {
		return nil, fmt.Errorf("%w: bet is %s, placing requires open", models.ErrWrongStatus, bet.Status)
	}
	if e.now().Unix() >= bet.BettingDeadline {
		return nil, fmt.Errorf("%w: betting window closed", models.ErrDeadlinePassed)
	}
	if _, err := e.store.GetBettor(ctx, id, caller); err == nil {
		return nil, fmt.Errorf("%w: outcome choice is immutable", models.ErrAlreadyPlaced)
	}

	if err := e.ledger.Transfer(ctx, bet.Token, caller, e.escrowAddr, bet.StakePerBettor); err != nil {
		return nil, err
	}

	prev := *bet
	bet.TotalPool = new(big.Int).Add(bet.TotalPool, bet.StakePerBettor)
	bet.BettorCount++
	bet.OutcomeTally[outcome]++
	bet.UpdatedAt = e.now().Unix()

	if err := e.store.SaveBet(ctx, bet); err != nil {
		e.rollbackStake(ctx, bet, caller)
		return nil, err
	}

	record := &models.BettorRecord{
		BetID:    id,
		Bettor:   caller,
		Outcome:  outcome,
		PlacedAt: bet.UpdatedAt,
	}
	if err := e.store.SaveBettor(ctx, record); err != nil {
		prev.OutcomeTally[outcome]-- // prev shares the tally map; undo the increment
		if restoreErr := e.store.SaveBet(ctx, &prev); restoreErr != nil {
			e.log.WithError(restoreErr).WithField("bet_id", id.Hex()).Error("bet restore failed after bettor write error")
		}
		e.rollbackStake(ctx, bet, caller)
		return nil, err
	}

	e.emit(models.EventBetPlaced, bet, map[string]interface{}{
		"bettor":  caller.Hex(),
		"outcome": outcome,
	})
	return bet, nil
}

// LockBet closes the betting window early. Administrative signal from the
// platform, not a deadline-derived transition.
func (e *BetEngine) LockBet(ctx context.Context, platform bool, id common.Hash) (*models.Bet, error) {
	unlock := e.locks.lock(id.Hex())
	defer unlock()

	cfg := e.config.Snapshot()
	if cfg.Paused {
		return nil, models.ErrPaused
	}
	if !platform {
		return nil, fmt.Errorf("%w: only the platform may lock a bet", models.ErrUnauthorized)
	}

	bet, err := e.store.GetBet(ctx, id)
	if err != nil {
		return nil, err
	}
	if bet.Status != models.BetStatusOpen {
		return nil, fmt.Errorf("%w: bet is %s, lock requires open", models.ErrWrongStatus, bet.Status)
	}

	bet.Status = models.BetStatusLocked
	bet.UpdatedAt = e.now().Unix()
	if err := e.store.SaveBet(ctx, bet); err != nil {
		return nil, err
	}

	e.emit(models.EventBetLocked, bet, nil)
	return bet, nil
}

// SettleBet records the authenticated outcome and collects the platform fee.
// If nobody backed the winning outcome the whole pool goes to the fee
// recipient; there is no one else to pay, and the recorded zero winner pool
// makes later claims find nothing payable.
func (e *BetEngine) SettleBet(ctx context.Context, caller common.Address, id common.Hash, result *models.BetResult) (*models.Bet, error) {
	unlock := e.locks.lock(id.Hex())
	defer unlock()

	cfg := e.config.Snapshot()
	if cfg.Paused {
		return nil, models.ErrPaused
	}
	if result.WinningOutcome < 1 {
		return nil, fmt.Errorf("%w: outcomes are 1-indexed", models.ErrInvalidInput)
	}

	bet, err := e.store.GetBet(ctx, id)
	if err != nil {
		return nil, err
	}
	if bet.Status != models.BetStatusOpen && bet.Status != models.BetStatusLocked {
		return nil, fmt.Errorf("%w: bet is %s, settle requires open or locked", models.ErrWrongStatus, bet.Status)
	}

	claim := &BetResultClaim{
		BetID:          bet.ID,
		WinningOutcome: result.WinningOutcome,
		TotalPool:      bet.TotalPool,
		Token:          bet.Token,
		Timestamp:      result.Timestamp,
	}
	if err := e.verifier.VerifyBetResult(claim, result.Signature, cfg.ResultSigner); err != nil {
		return nil, err
	}

	fee, winnerPool := SplitPool(bet.TotalPool, cfg.FeeBps)
	winnerCount := bet.OutcomeTally[result.WinningOutcome]
	if winnerCount == 0 {
		fee = new(big.Int).Set(bet.TotalPool)
		winnerPool = big.NewInt(0)
	}

	bet.Status = models.BetStatusSettled
	bet.WinningOutcome = result.WinningOutcome
	bet.FeeCollected = fee
	bet.WinnerPool = winnerPool
	bet.WinnerCount = winnerCount
	bet.UpdatedAt = e.now().Unix()

	if err := e.store.SaveBet(ctx, bet); err != nil {
		return nil, err
	}

	if fee.Sign() > 0 {
		if err := e.ledger.Transfer(ctx, bet.Token, e.escrowAddr, cfg.FeeRecipient, fee); err != nil {
			return nil, err
		}
	}

	e.log.WithFields(logrus.Fields{
		"bet_id":       bet.ID.Hex(),
		"outcome":      result.WinningOutcome,
		"fee":          fee.String(),
		"winner_pool":  winnerPool.String(),
		"winner_count": winnerCount,
	}).Info("bet settled")

	e.emit(models.EventBetSettled, bet, map[string]interface{}{
		"winning_outcome": result.WinningOutcome,
		"fee":             fee.String(),
		"winner_pool":     winnerPool.String(),
		"winner_count":    winnerCount,
		"settled_by":      caller.Hex(),
	})
	return bet, nil
}

// ClaimWinnings pays one winner their share of the winner pool. The claimed
// flag is written before the transfer so a re-entrant or repeated call finds
// the claim spent.
func (e *BetEngine) ClaimWinnings(ctx context.Context, caller common.Address, id common.Hash) (*big.Int, error) {
	unlock := e.locks.lock(id.Hex())
	defer unlock()

	cfg := e.config.Snapshot()
	if cfg.Paused {
		return nil, models.ErrPaused
	}

	bet, err := e.store.GetBet(ctx, id)
	if err != nil {
		return nil, err
	}
	if bet.Status != models.BetStatusSettled {
		return nil, fmt.Errorf("%w: bet is %s, claiming requires settled", models.ErrWrongStatus, bet.Status)
	}

	record, err := e.store.GetBettor(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if record.Outcome != bet.WinningOutcome {
		return nil, fmt.Errorf("%w: caller did not back the winning outcome", models.ErrUnauthorized)
	}
	if record.Claimed {
		return nil, fmt.Errorf("%w: winnings for %s already paid", models.ErrAlreadyClaimed, caller.Hex())
	}
	if bet.WinnerCount == 0 || bet.WinnerPool.Sign() == 0 {
		return nil, fmt.Errorf("%w: winner pool is empty", models.ErrNothingToClaim)
	}

	payout := WinnerShare(bet.WinnerPool, bet.WinnerCount)

	record.Claimed = true
	if err := e.store.SaveBettor(ctx, record); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(ctx, bet.Token, e.escrowAddr, caller, payout); err != nil {
		record.Claimed = false
		if restoreErr := e.store.SaveBettor(ctx, record); restoreErr != nil {
			e.log.WithError(restoreErr).WithField("bet_id", id.Hex()).Error("claim rollback failed")
		}
		return nil, err
	}

	e.emit(models.EventWinningsClaimed, bet, map[string]interface{}{
		"bettor": caller.Hex(),
		"payout": payout.String(),
	})
	return payout, nil
}

// CancelBet voids a pool without moving funds; refunds are pull-based via
// ClaimRefund.
func (e *BetEngine) CancelBet(ctx context.Context, caller common.Address, platform bool, id common.Hash) (*models.Bet, error) {
	unlock := e.locks.lock(id.Hex())
	defer unlock()

	cfg := e.config.Snapshot()
	if cfg.Paused {
		return nil, models.ErrPaused
	}

	bet, err := e.store.GetBet(ctx, id)
	if err != nil {
		return nil, err
	}
	if bet.Status != models.BetStatusOpen && bet.Status != models.BetStatusLocked {
		return nil, fmt.Errorf("%w: bet is %s, cancel requires open or locked", models.ErrWrongStatus, bet.Status)
	}

	now := e.now().Unix()
	var reason string
	switch {
	case platform:
		reason = models.CancelReasonPlatform
	case caller == bet.Creator && now < bet.BettingDeadline:
		reason = models.CancelReasonCreator
	case now > bet.SettleBy:
		reason = models.CancelReasonSettleTimeout
	default:
		return nil, fmt.Errorf("%w: only the creator before the betting deadline, the platform, or anyone after settle_by may cancel", models.ErrUnauthorized)
	}

	bet.Status = models.BetStatusCancelled
	bet.UpdatedAt = now
	if err := e.store.SaveBet(ctx, bet); err != nil {
		return nil, err
	}

	e.emit(models.EventBetCancelled, bet, map[string]interface{}{"reason": reason})
	return bet, nil
}

// ClaimRefund returns a bettor's original stake after cancellation or an
// emergency refund.
func (e *BetEngine) ClaimRefund(ctx context.Context, caller common.Address, id common.Hash) (*big.Int, error) {
	unlock := e.locks.lock(id.Hex())
	defer unlock()

	cfg := e.config.Snapshot()
	if cfg.Paused {
		return nil, models.ErrPaused
	}

	bet, err := e.store.GetBet(ctx, id)
	if err != nil {
		return nil, err
	}
	if bet.Status != models.BetStatusCancelled && bet.Status != models.BetStatusRefunded {
		return nil, fmt.Errorf("%w: bet is %s, refunds require cancelled or refunded", models.ErrWrongStatus, bet.Status)
	}

	record, err := e.store.GetBettor(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if record.Outcome == 0 {
		return nil, fmt.Errorf("%w: no stake recorded for %s", models.ErrNothingToClaim, caller.Hex())
	}
	if record.Claimed {
		return nil, fmt.Errorf("%w: refund for %s already paid", models.ErrAlreadyClaimed, caller.Hex())
	}

	record.Claimed = true
	if err := e.store.SaveBettor(ctx, record); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(ctx, bet.Token, e.escrowAddr, caller, bet.StakePerBettor); err != nil {
		record.Claimed = false
		if restoreErr := e.store.SaveBettor(ctx, record); restoreErr != nil {
			e.log.WithError(restoreErr).WithField("bet_id", id.Hex()).Error("refund rollback failed")
		}
		return nil, err
	}

	e.emit(models.EventRefundClaimed, bet, map[string]interface{}{
		"bettor": caller.Hex(),
		"amount": bet.StakePerBettor.String(),
	})
	return new(big.Int).Set(bet.StakePerBettor), nil
}

// EmergencyRefund flips a stuck pool to refunded so bettors can pull their
// stakes back. Deliberately no push-based mass transfer: per-call cost stays
// bounded regardless of participant count.
func (e *BetEngine) EmergencyRefund(ctx context.Context, caller common.Address, id common.Hash) (*models.Bet, error) {
	unlock := e.locks.lock(id.Hex())
	defer unlock()

	cfg := e.config.Snapshot()
	if cfg.Paused {
		return nil, models.ErrPaused
	}

	bet, err := e.store.GetBet(ctx, id)
	if err != nil {
		return nil, err
	}
	if bet.Status != models.BetStatusOpen && bet.Status != models.BetStatusLocked {
		return nil, fmt.Errorf("%w: bet is %s, emergency refund requires open or locked", models.ErrWrongStatus, bet.Status)
	}
	if e.now().Unix() <= bet.SettleBy {
		return nil, fmt.Errorf("%w: settlement window still open", models.ErrDeadlineNotReached)
	}

	bet.Status = models.BetStatusRefunded
	bet.UpdatedAt = e.now().Unix()
	if err := e.store.SaveBet(ctx, bet); err != nil {
		return nil, err
	}

	e.emit(models.EventBetRefunded, bet, map[string]interface{}{"triggered_by": caller.Hex()})
	return bet, nil
}

func (e *BetEngine) GetBet(ctx context.Context, id common.Hash) (*models.Bet, error) {
	return e.store.GetBet(ctx, id)
}

func (e *BetEngine) GetBettor(ctx context.Context, id common.Hash, bettor common.Address) (*models.BettorRecord, error) {
	return e.store.GetBettor(ctx, id, bettor)
}

func (e *BetEngine) rollbackStake(ctx context.Context, bet *models.Bet, caller common.Address) {
	if err := e.ledger.Transfer(ctx, bet.Token, e.escrowAddr, caller, bet.StakePerBettor); err != nil {
		e.log.WithError(err).WithField("bet_id", bet.ID.Hex()).Error("stake rollback failed")
	}
}

func (e *BetEngine) emit(eventType models.EventType, bet *models.Bet, extra map[string]interface{}) {
	data := map[string]interface{}{"bet": bet}
	for k, v := range extra {
		data[k] = v
	}
	e.sink.Publish(models.NewEvent(eventType, bet.ID.Hex(), data))
}
