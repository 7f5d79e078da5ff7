package models

// Wire request bodies for the HTTP entry points. Ids are 0x-prefixed 32-byte
// hex, addresses 0x-prefixed 20-byte hex, amounts decimal strings in token
// base units, timestamps unix seconds, signatures 0x-prefixed 65-byte hex.

type CreateMatchRequest struct {
	ID        string `json:"id" binding:"required"`
	GameID    string `json:"game_id" binding:"required"`
	Opponent  string `json:"opponent" binding:"required"`
	Stake     string `json:"stake" binding:"required"`
	Token     string `json:"token" binding:"required"`
	AcceptBy  int64  `json:"accept_by" binding:"required"`
	DepositBy int64  `json:"deposit_by" binding:"required"`
	SettleBy  int64  `json:"settle_by" binding:"required"`
}

func (r *CreateMatchRequest) ToParams() (*CreateMatchParams, error) {
	id, err := ParseID(r.ID)
	if err != nil {
		return nil, err
	}
	opponent, err := ParseAddress(r.Opponent)
	if err != nil {
		return nil, err
	}
	stake, err := ParseAmount(r.Stake)
	if err != nil {
		return nil, err
	}
	token, err := ParseAddress(r.Token)
	if err != nil {
		return nil, err
	}
	return &CreateMatchParams{
		ID:        id,
		GameID:    r.GameID,
		Opponent:  opponent,
		Stake:     stake,
		Token:     token,
		AcceptBy:  r.AcceptBy,
		DepositBy: r.DepositBy,
		SettleBy:  r.SettleBy,
	}, nil
}

type SettleMatchRequest struct {
	Winner    string `json:"winner" binding:"required"`
	ScoreHash string `json:"score_hash" binding:"required"`
	Timestamp int64  `json:"timestamp" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type SettleDrawRequest struct {
	ScoreHash string `json:"score_hash" binding:"required"`
	Timestamp int64  `json:"timestamp" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type CreateBetRequest struct {
	ID              string `json:"id" binding:"required"`
	StakePerBettor  string `json:"stake_per_bettor" binding:"required"`
	Token           string `json:"token" binding:"required"`
	BettingDeadline int64  `json:"betting_deadline" binding:"required"`
	SettleBy        int64  `json:"settle_by" binding:"required"`
}

func (r *CreateBetRequest) ToParams() (*CreateBetParams, error) {
	id, err := ParseID(r.ID)
	if err != nil {
		return nil, err
	}
	stake, err := ParseAmount(r.StakePerBettor)
	if err != nil {
		return nil, err
	}
	token, err := ParseAddress(r.Token)
	if err != nil {
		return nil, err
	}
	return &CreateBetParams{
		ID:              id,
		StakePerBettor:  stake,
		Token:           token,
		BettingDeadline: r.BettingDeadline,
		SettleBy:        r.SettleBy,
	}, nil
}

type PlaceBetRequest struct {
	Outcome uint32 `json:"outcome" binding:"required,min=1"`
}

type SettleBetRequest struct {
	WinningOutcome uint32 `json:"winning_outcome" binding:"required,min=1"`
	Timestamp      int64  `json:"timestamp" binding:"required"`
	Signature      string `json:"signature" binding:"required"`
}

type CreditRequest struct {
	Account string `json:"account" binding:"required"`
	Token   string `json:"token" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

type SetFeeRequest struct {
	FeeBps uint32 `json:"fee_bps"`
}

type SetAddressRequest struct {
	Address string `json:"address" binding:"required"`
}
