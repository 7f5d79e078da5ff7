package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"wager-escrow-backend/internal/models"
)

// MatchEngine is the 1-v-1 escrow state machine. It is the exclusive
// custodian of deposited stakes for the lifetime of each match; every entry
// point validates caller, status and deadlines before any effect, and a
// per-match guard keeps state-changing calls from interleaving.
type MatchEngine struct {
	store      Store
	ledger     TokenLedger
	config     *ConfigService
	verifier   ResultVerifier
	sink       EventSink
	log        *logrus.Logger
	locks      *keyedMutex
	escrowAddr common.Address

	// now is swapped out by tests to drive deadline transitions.
	now func() time.Time
}

func NewMatchEngine(store Store, ledger TokenLedger, config *ConfigService, verifier ResultVerifier, sink EventSink, log *logrus.Logger, escrowAddr common.Address) *MatchEngine {
	return &MatchEngine{
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
func (e *MatchEngine) WithClock(now func() time.Time) *MatchEngine {
	e.now = now
	return e
}

func (e *MatchEngine) CreateMatch(ctx context.Context, caller common.Address, params *models.CreateMatchParams) (*models.Match, error) {
	cfg := e.config.Snapshot()
	if cfg.Paused {
		return nil, models.ErrPaused
	}

	if params.Opponent == (common.Address{}) {
		return nil, fmt.Errorf("%w: opponent must not be the zero address", models.ErrInvalidInput)
	}
	if params.Opponent == caller {
		return nil, fmt.Errorf("%w: cannot open a match against yourself", models.ErrInvalidInput)
	}
	if params.Stake.Cmp(cfg.MinStake) < 0 {
		return nil, fmt.Errorf("%w: stake %s is below the %s minimum", models.ErrStakeTooLow, params.Stake, cfg.MinStake)
	}
	if !cfg.TokenAllowed(params.Token) {
		return nil, fmt.Errorf("%w: %s", models.ErrTokenNotAllowed, params.Token.Hex())
	}

	now := e.now().Unix()
	if params.AcceptBy <= now || params.DepositBy <= params.AcceptBy || params.SettleBy <= params.DepositBy {
		return nil, fmt.Errorf("%w: need now < accept_by < deposit_by < settle_by", models.ErrBadDeadlines)
	}

	match := &models.Match{
		ID:        params.ID,
		GameID:    params.GameID,
		PlayerA:   caller,
		PlayerB:   params.Opponent,
		Stake:     params.Stake,
		Token:     params.Token,
		Status:    models.MatchStatusCreated,
		AcceptBy:  params.AcceptBy,
		DepositBy: params.DepositBy,
		SettleBy:  params.SettleBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.store.CreateMatch(ctx, match); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"match_id": match.ID.Hex(),
		"player_a": match.PlayerA.Hex(),
		"player_b": match.PlayerB.Hex(),
		"stake":    match.Stake.String(),
	}).Info("match created")

	e.emit(models.EventMatchCreated, match, nil)
	return match, nil
}

func (e *MatchEngine) AcceptMatch(ctx context.Context, caller common.Address, id common.Hash) (*models.Match, error) {
	unlock := e.locks.lock(id.Hex())
	defer unlock()

	cfg := e.config.Snapshot()
	if cfg.Paused {
		return nil, models.ErrPaused
	}

	match, err := e.store.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusCreated {
		return nil, fmt.Errorf("%w: match is %s, accept requires created", models.ErrWrongStatus, match.Status)
	}
	if caller != match.PlayerB {
		return nil, fmt.Errorf("%w: only the invited opponent may accept", models.ErrUnauthorized)
	}
	if e.now().Unix() >= match.AcceptBy {
		return nil, fmt.Errorf("%w: accept window closed, the match can be cancelled", models.ErrDeadlinePassed)
	}

	match.Status = models.MatchStatusAccepted
	match.UpdatedAt = e.now().Unix()
	if err := e.store.SaveMatch(ctx, match); err != nil {
		return nil, err
	}

	e.emit(models.EventMatchAccepted, match, nil)
	return match, nil
}

// Deposit moves the caller's stake into escrow custody. While the match is
// still in created, only playerA may pre-fund.
//
// TODO: decide whether playerB should also be allowed to fund before
// accepting; today the invitee must accept first, which mirrors the original
// behavior but is an odd asymmetry.
func (e *MatchEngine) Deposit(ctx context.Context, caller common.Address, id common.Hash) (*models.Match, error) {
	unlock := e.locks.lock(id.Hex())
	defer unlock()

	cfg := e.config.Snapshot()
	if cfg.Paused {
		return nil, models.ErrPaused
	}

	match, err := e.store.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !match.IsPlayer(caller) {
		return nil, fmt.Errorf("%w: only match players may deposit", models.ErrUnauthorized)
	}

	switch match.Status {
	case models.MatchStatusAccepted:
	case models.MatchStatusCreated:
		if caller != match.PlayerA {
			return nil, fmt.Errorf("%w: opponent must accept before depositing", models.ErrWrongStatus)
		}
	default:
		return nil, fmt.Errorf("%w: match is %s, deposit requires created or accepted", models.ErrWrongStatus, match.Status)
	}

	if e.now().Unix() >= match.DepositBy {
		return nil, fmt.Errorf("%w: deposit window closed, request a refund instead", models.ErrDeadlinePassed)
	}

	if (caller == match.PlayerA && match.PlayerADeposited) || (caller == match.PlayerB && match.PlayerBDeposited) {
		return nil, fmt.Errorf("%w: stake for %s is already in escrow", models.ErrAlreadyDeposited, caller.Hex())
	}

	if err := e.ledger.Transfer(ctx, match.Token, caller, e.escrowAddr, match.Stake); err != nil {
		return nil, err
	}

	if caller == match.PlayerA {
		match.PlayerADeposited = true
	} else {
		match.PlayerBDeposited = true
	}
	if match.PlayerADeposited && match.PlayerBDeposited {
		match.Status = models.MatchStatusDeposited
	}
	match.UpdatedAt = e.now().Unix()

	if err := e.store.SaveMatch(ctx, match); err != nil {
		// hand the stake back rather than strand it in custody
		if refundErr := e.ledger.Transfer(ctx, match.Token, e.escrowAddr, caller, match.Stake); refundErr != nil {
			e.log.WithError(refundErr).WithField("match_id", id.Hex()).Error("deposit rollback failed")
		}
		return nil, err
	}

	e.emit(models.EventMatchDeposit, match, map[string]interface{}{"depositor": caller.Hex()})
	return match, nil
}

// CancelMatch is the escape hatch for unilateral abandonment: the creator can
// withdraw before acceptance, and anyone can sweep a match whose accept or
// deposit window expired. Already-escrowed stakes go back to their
// depositors.
func (e *MatchEngine) CancelMatch(ctx context.Context, caller common.Address, id common.Hash) (*models.Match, error) {
	unlock := e.locks.lock(id.Hex())
	defer unlock()

	cfg := e.config.Snapshot()
	if cfg.Paused {
		return nil, models.ErrPaused
	}

	match, err := e.store.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	now := e.now().Unix()
	var reason string
	switch match.Status {
	case models.MatchStatusCreated:
		switch {
		case caller == match.PlayerA:
			reason = models.CancelReasonCreator
		case now > match.AcceptBy:
			reason = models.CancelReasonAcceptTimeout
		default:
			return nil, fmt.Errorf("%w: accept window still open", models.ErrDeadlineNotReached)
		}
	case models.MatchStatusAccepted:
		if now <= match.DepositBy {
			return nil, fmt.Errorf("%w: deposit window still open", models.ErrDeadlineNotReached)
		}
		reason = models.CancelReasonDepositTimeout
	default:
		return nil, fmt.Errorf("%w: match is %s, cancel requires created or accepted", models.ErrWrongStatus, match.Status)
	}

	match.Status = models.MatchStatusCancelled
	match.UpdatedAt = now
	if err := e.store.SaveMatch(ctx, match); err != nil {
		return nil, err
	}

	if err := e.refundDeposits(ctx, match); err != nil {
		return nil, err
	}

	e.emit(models.EventMatchCancelled, match, map[string]interface{}{"reason": reason})
	return match, nil
}

// Settle pays out a decided match. Anyone may deliver the result; trust comes
// from the authority signature, not the caller.
func (e *MatchEngine) Settle(ctx context.Context, caller common.Address, id common.Hash, result *models.MatchResult) (*models.Match, error) {
	unlock := e.locks.lock(id.Hex())
	defer unlock()

	cfg := e.config.Snapshot()
	if cfg.Paused {
		return nil, models.ErrPaused
	}

	match, err := e.store.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusDeposited {
		return nil, fmt.Errorf("%w: match is %s, settle requires deposited", models.ErrWrongStatus, match.Status)
	}
	if !match.IsPlayer(result.Winner) {
		return nil, fmt.Errorf("%w: winner must be one of the two players", models.ErrInvalidInput)
	}

	claim := &MatchResultClaim{
		MatchID:   match.ID,
		Winner:    result.Winner,
		PlayerA:   match.PlayerA,
		PlayerB:   match.PlayerB,
		Stake:     match.Stake,
		Token:     match.Token,
		ScoreHash: result.ScoreHash,
		Timestamp: result.Timestamp,
	}
	if err := e.verifier.VerifyMatchResult(claim, result.Signature, cfg.ResultSigner); err != nil {
		return nil, err
	}

	pool := match.Pool()
	fee, payout := SplitPool(pool, cfg.FeeBps)

	match.Status = models.MatchStatusSettled
	match.UpdatedAt = e.now().Unix()
	if err := e.store.SaveMatch(ctx, match); err != nil {
		return nil, err
	}

	if fee.Sign() > 0 {
		if err := e.ledger.Transfer(ctx, match.Token, e.escrowAddr, cfg.FeeRecipient, fee); err != nil {
			return nil, err
		}
	}
	if err := e.ledger.Transfer(ctx, match.Token, e.escrowAddr, result.Winner, payout); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"match_id": match.ID.Hex(),
		"winner":   result.Winner.Hex(),
		"fee":      fee.String(),
		"payout":   payout.String(),
	}).Info("match settled")

	e.emit(models.EventMatchSettled, match, map[string]interface{}{
		"winner":     result.Winner.Hex(),
		"score_hash": claim.ScoreHash.Hex(),
		"pool":       pool.String(),
		"fee":        fee.String(),
		"payout":     payout.String(),
		"settled_by": caller.Hex(),
	})
	return match, nil
}

// SettleDraw returns both stakes untouched. Draws are fee-free: no value was
// created to tax.
func (e *MatchEngine) SettleDraw(ctx context.Context, caller common.Address, id common.Hash, result *models.MatchResult) (*models.Match, error) {
	unlock := e.locks.lock(id.Hex())
	defer unlock()

	cfg := e.config.Snapshot()
	if cfg.Paused {
		return nil, models.ErrPaused
	}

	match, err := e.store.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusDeposited {
		return nil, fmt.Errorf("%w: match is %s, settle requires deposited", models.ErrWrongStatus, match.Status)
	}

	claim := &MatchResultClaim{
		MatchID:   match.ID,
		Winner:    DrawWinner,
		PlayerA:   match.PlayerA,
		PlayerB:   match.PlayerB,
		Stake:     match.Stake,
		Token:     match.Token,
		ScoreHash: result.ScoreHash,
		Timestamp: result.Timestamp,
	}
	if err := e.verifier.VerifyMatchResult(claim, result.Signature, cfg.ResultSigner); err != nil {
		return nil, err
	}

	match.Status = models.MatchStatusSettled
	match.UpdatedAt = e.now().Unix()
	if err := e.store.SaveMatch(ctx, match); err != nil {
		return nil, err
	}

	if err := e.refundDeposits(ctx, match); err != nil {
		return nil, err
	}

	e.emit(models.EventMatchDraw, match, map[string]interface{}{
		"score_hash": claim.ScoreHash.Hex(),
		"settled_by": caller.Hex(),
	})
	return match, nil
}

// EmergencyRefund unsticks a fully funded match whose authority never
// produced a signed result: once settleBy passes, anyone can trigger a full
// refund of both stakes.
func (e *MatchEngine) EmergencyRefund(ctx context.Context, caller common.Address, id common.Hash) (*models.Match, error) {
	unlock := e.locks.lock(id.Hex())
	defer unlock()

	cfg := e.config.Snapshot()
	if cfg.Paused {
		return nil, models.ErrPaused
	}

	match, err := e.store.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusDeposited {
		return nil, fmt.Errorf("%w: match is %s, emergency refund requires deposited", models.ErrWrongStatus, match.Status)
	}
	if e.now().Unix() <= match.SettleBy {
		return nil, fmt.Errorf("%w: settlement window still open", models.ErrDeadlineNotReached)
	}

	match.Status = models.MatchStatusRefunded
	match.UpdatedAt = e.now().Unix()
	if err := e.store.SaveMatch(ctx, match); err != nil {
		return nil, err
	}

	if err := e.refundDeposits(ctx, match); err != nil {
		return nil, err
	}

	e.emit(models.EventMatchRefunded, match, map[string]interface{}{"triggered_by": caller.Hex()})
	return match, nil
}

func (e *MatchEngine) GetMatch(ctx context.Context, id common.Hash) (*models.Match, error) {
	return e.store.GetMatch(ctx, id)
}

// refundDeposits returns every escrowed stake to its depositor.
func (e *MatchEngine) refundDeposits(ctx context.Context, match *models.Match) error {
	if match.PlayerADeposited {
		if err := e.ledger.Transfer(ctx, match.Token, e.escrowAddr, match.PlayerA, match.Stake); err != nil {
			return err
		}
	}
	if match.PlayerBDeposited {
		if err := e.ledger.Transfer(ctx, match.Token, e.escrowAddr, match.PlayerB, match.Stake); err != nil {
			return err
		}
	}
	return nil
}

func (e *MatchEngine) emit(eventType models.EventType, match *models.Match, extra map[string]interface{}) {
	data := map[string]interface{}{"match": match}
	for k, v := range extra {
		data[k] = v
	}
	e.sink.Publish(models.NewEvent(eventType, match.ID.Hex(), data))
}
