package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework
	"github.com/shopspring/decimal"

	"github.com/pratyushn/auction-house/internal/auction"
	"github.com/pratyushn/auction-house/internal/config"
	"github.com/pratyushn/auction-house/internal/database"
	"github.com/pratyushn/auction-house/internal/handler"
	"github.com/pratyushn/auction-house/internal/middleware"
	"github.com/pratyushn/auction-house/internal/payment"
	"github.com/pratyushn/auction-house/internal/queue"
	"github.com/pratyushn/auction-house/internal/repository"
	"github.com/pratyushn/auction-house/internal/router"
	queue_publisher "github.com/pratyushn/auction-house/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	payCfg := config.LoadPaymentConfig()
	auctCfg := config.LoadAuctionConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	items := repository.NewItemRepo(db)
	slips := repository.NewSlipRepo(db)

	var gateway payment.Gateway
	if payCfg.Mode == "live" {
		gateway = payment.NewClient(payCfg.BaseURL, payCfg.SecretKey)
	} else {
		fake := payment.NewFake()
		fake.AutoSucceed = true
		gateway = fake
		log.Printf("payment: running with the fake gateway (PAYMENT_MODE=%s)", payCfg.Mode)
	}

	engCfg := auction.DefaultConfig()
	engCfg.DepositRate = mustDecimal("AUCTION_DEPOSIT_RATE", auctCfg.DepositRate)
	engCfg.MinStep = mustDecimal("AUCTION_MIN_STEP", auctCfg.MinStep)
	engCfg.MaxStep = mustDecimal("AUCTION_MAX_STEP", auctCfg.MaxStep)
	engCfg.Currency = payCfg.Currency
	engCfg.BidRetries = auctCfg.BidRetries

	engine := auction.New(items, users, slips, gateway, queue_publisher.NewBroker(), engCfg)

	e := echo.New()
	e.Validator = handler.NewValidator()

	// Redis backs the rate limiter and the response cache; when it is
	// unreachable both degrade to pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis: unavailable, rate limiting and response cache disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterAuction(e,
		handler.NewItemHandler(items),
		handler.NewBidHandler(engine),
		handler.NewSettlementHandler(engine),
		cfg.JWTSecret, cache)

	// Receipt and refund notifications drain in the background.
	go queue.StartNotificationConsumer()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// mustDecimal parses a configured amount, halting startup on garbage
// the same way config.Load does for missing variables.
func mustDecimal(name, value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		log.Fatalf("invalid decimal for %s: %q", name, value)
	}
	return d
}
