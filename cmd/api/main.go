package main

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"wager-escrow-backend/internal/config"
	"wager-escrow-backend/internal/handlers"
	"wager-escrow-backend/internal/journal"
	"wager-escrow-backend/internal/middleware"
	"wager-escrow-backend/internal/services"
)

func main() {
	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)
	wsHandler := handlers.NewWebSocketHandler(log)

	sinks := services.MultiSink{wsHandler}
	if cfg.Postgres.DSN != "" {
		eventJournal, err := journal.Open(cfg.Postgres.DSN, log)
		if err != nil {
			log.Fatalf("Failed to open event journal: %v", err)
		}
		sinks = append(sinks, eventJournal)
		log.Info("event journal enabled")
	}

	ctx := context.Background()
	configService, err := services.NewConfigService(ctx, redisService, sinks, log, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize escrow config: %v", err)
	}

	engineAddr := common.HexToAddress(cfg.Chain.EngineAddress)
	verifier := services.NewEthVerifier(cfg.Chain.ChainID, engineAddr)

	matchEngine := services.NewMatchEngine(redisService, redisService, configService, verifier, sinks, log, engineAddr)
	betEngine := services.NewBetEngine(redisService, redisService, configService, verifier, sinks, log, engineAddr)

	matchHandler := handlers.NewMatchHandler(matchEngine)
	betHandler := handlers.NewBetHandler(betEngine)
	adminHandler := handlers.NewAdminHandler(configService, redisService)

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(jwtService))
	api.Use(middleware.RateLimitMiddleware(redisService))
	{
		api.GET("/ws", wsHandler.HandleWebSocket)
		api.GET("/balance", adminHandler.GetBalance)

		matches := api.Group("/matches")
		{
			matches.POST("", matchHandler.CreateMatch)
			matches.GET("/:id", matchHandler.GetMatch)
			matches.POST("/:id/accept", matchHandler.AcceptMatch)
			matches.POST("/:id/deposit", matchHandler.Deposit)
			matches.POST("/:id/cancel", matchHandler.CancelMatch)
			matches.POST("/:id/settle", matchHandler.Settle)
			matches.POST("/:id/settle-draw", matchHandler.SettleDraw)
			matches.POST("/:id/refund", matchHandler.EmergencyRefund)
		}

		bets := api.Group("/bets")
		{
			bets.POST("", betHandler.CreateBet)
			bets.GET("/:id", betHandler.GetBet)
			bets.GET("/:id/bettors/:address", betHandler.GetBettor)
			bets.POST("/:id/place", betHandler.PlaceBet)
			bets.POST("/:id/lock", betHandler.LockBet)
			bets.POST("/:id/settle", betHandler.SettleBet)
			bets.POST("/:id/cancel", betHandler.CancelBet)
			bets.POST("/:id/claim", betHandler.ClaimWinnings)
			bets.POST("/:id/claim-refund", betHandler.ClaimRefund)
			bets.POST("/:id/refund", betHandler.EmergencyRefund)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.PlatformOnly())
		{
			admin.GET("/config", adminHandler.GetConfig)
			admin.POST("/fee", adminHandler.SetFee)
			admin.POST("/fee-recipient", adminHandler.SetFeeRecipient)
			admin.POST("/signer", adminHandler.SetResultSigner)
			admin.POST("/tokens", adminHandler.AllowToken)
			admin.DELETE("/tokens/:address", adminHandler.RemoveToken)
			admin.POST("/pause", adminHandler.Pause)
			admin.POST("/unpause", adminHandler.Unpause)
			admin.POST("/credit", adminHandler.Credit)
		}
	}

	log.Infof("Server starting on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
