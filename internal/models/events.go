package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventMatchCreated   EventType = "MATCH_CREATED"
	EventMatchAccepted  EventType = "MATCH_ACCEPTED"
	EventMatchDeposit   EventType = "MATCH_DEPOSIT"
	EventMatchSettled   EventType = "MATCH_SETTLED"
	EventMatchDraw      EventType = "MATCH_DRAW"
	EventMatchCancelled EventType = "MATCH_CANCELLED"
	EventMatchRefunded  EventType = "MATCH_REFUNDED"

	EventBetCreated      EventType = "BET_CREATED"
	EventBetPlaced       EventType = "BET_PLACED"
	EventBetLocked       EventType = "BET_LOCKED"
	EventBetSettled      EventType = "BET_SETTLED"
	EventBetCancelled    EventType = "BET_CANCELLED"
	EventBetRefunded     EventType = "BET_REFUNDED"
	EventWinningsClaimed EventType = "WINNINGS_CLAIMED"
	EventRefundClaimed   EventType = "REFUND_CLAIMED"

	EventConfigFeeUpdated       EventType = "CONFIG_FEE_UPDATED"
	EventConfigRecipientUpdated EventType = "CONFIG_FEE_RECIPIENT_UPDATED"
	EventConfigSignerUpdated    EventType = "CONFIG_SIGNER_UPDATED"
	EventConfigTokenAllowed     EventType = "CONFIG_TOKEN_ALLOWED"
	EventConfigTokenRemoved     EventType = "CONFIG_TOKEN_REMOVED"
	EventConfigPaused           EventType = "CONFIG_PAUSED"
	EventConfigUnpaused         EventType = "CONFIG_UNPAUSED"
)

// Cancellation reason tags carried on MATCH_CANCELLED / BET_CANCELLED events.
const (
	CancelReasonCreator        = "creator_withdrawal"
	CancelReasonAcceptTimeout  = "accept_timeout"
	CancelReasonDepositTimeout = "deposit_timeout"
	CancelReasonPlatform       = "platform"
	CancelReasonSettleTimeout  = "settle_timeout"
)

// Event is one state transition, carrying enough data to reconstruct the new
// state without re-reading storage. RefID is the match/bet id (empty for
// config changes).
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	RefID     string                 `json:"ref_id,omitempty"`
	Data      map[string]interface{} `json:"data"`
	CreatedAt int64                  `json:"created_at"`
}

func NewEvent(eventType EventType, refID string, data map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		RefID:     refID,
		Data:      data,
		CreatedAt: time.Now().Unix(),
	}
}
