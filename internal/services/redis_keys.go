package services

const (
	KeyMatch        = "escrow:match:%s"
	KeyBet          = "escrow:bet:%s"
	KeyBettor       = "escrow:bet:%s:bettor:%s"
	KeyEscrowConfig = "escrow:config"
	KeyBalance      = "escrow:balance:%s:%s" // token, account
	KeyRateLimit    = "escrow:ratelimit:%s:%s"
)
