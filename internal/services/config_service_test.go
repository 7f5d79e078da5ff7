package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"wager-escrow-backend/internal/models"
)

func TestConfigServiceBootstrap(t *testing.T) {
	env := newTestEnv(t)

	cfg := env.configSvc.Snapshot()
	if cfg.FeeBps != testFeeBps {
		t.Errorf("fee = %d bps, want %d", cfg.FeeBps, testFeeBps)
	}
	if cfg.FeeRecipient != feeWallet {
		t.Errorf("fee recipient = %s, want %s", cfg.FeeRecipient.Hex(), feeWallet.Hex())
	}
	if !cfg.TokenAllowed(testToken) {
		t.Error("bootstrap token not on allow list")
	}
	if cfg.Paused {
		t.Error("bootstrap config is paused")
	}
}

func TestSetFeeBpsCap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.configSvc.SetFeeBps(ctx, models.MaxFeeBps); err != nil {
		t.Fatalf("set fee at cap: %v", err)
	}
	if got := env.configSvc.Snapshot().FeeBps; got != models.MaxFeeBps {
		t.Errorf("fee = %d, want %d", got, models.MaxFeeBps)
	}

	err := env.configSvc.SetFeeBps(ctx, models.MaxFeeBps+1)
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	if got := env.configSvc.Snapshot().FeeBps; got != models.MaxFeeBps {
		t.Errorf("rejected update changed fee to %d", got)
	}
}

func TestConfigZeroAddressRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.configSvc.SetFeeRecipient(ctx, common.Address{}); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("zero fee recipient: err = %v, want ErrInvalidInput", err)
	}
	if err := env.configSvc.SetResultSigner(ctx, common.Address{}); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("zero signer: err = %v, want ErrInvalidInput", err)
	}
	if err := env.configSvc.AllowToken(ctx, common.Address{}); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("zero token: err = %v, want ErrInvalidInput", err)
	}
}

func TestTokenAllowList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	newToken := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	if err := env.configSvc.AllowToken(ctx, newToken); err != nil {
		t.Fatalf("allow token: %v", err)
	}
	if !env.configSvc.Snapshot().TokenAllowed(newToken) {
		t.Error("allowed token missing from snapshot")
	}

	if err := env.configSvc.RemoveToken(ctx, newToken); err != nil {
		t.Fatalf("remove token: %v", err)
	}
	if env.configSvc.Snapshot().TokenAllowed(newToken) {
		t.Error("removed token still allowed")
	}
}

func TestConfigAuditEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.configSvc.SetFeeBps(ctx, 100); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	if err := env.configSvc.Pause(ctx); err != nil {
		t.Fatalf("pause: %v", err)
	}

	if n := env.sink.countOf(models.EventConfigFeeUpdated); n != 1 {
		t.Errorf("fee events = %d, want 1", n)
	}
	if n := env.sink.countOf(models.EventConfigPaused); n != 1 {
		t.Errorf("pause events = %d, want 1", n)
	}

	event := env.sink.lastOf(models.EventConfigFeeUpdated)
	if got := event.Data["fee_bps"]; got != uint32(100) {
		t.Errorf("event fee_bps = %v, want 100", got)
	}
}

func TestConfigSnapshotIsolation(t *testing.T) {
	// mutating a snapshot must not leak into the live config
	env := newTestEnv(t)

	snapshot := env.configSvc.Snapshot()
	snapshot.FeeBps = 0
	snapshot.AllowedTokens[outsider] = true

	fresh := env.configSvc.Snapshot()
	if fresh.FeeBps != testFeeBps {
		t.Errorf("fee = %d, want %d", fresh.FeeBps, testFeeBps)
	}
	if fresh.TokenAllowed(outsider) {
		t.Error("snapshot mutation leaked into live config")
	}
}
