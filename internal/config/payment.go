package config

// PaymentConfig selects and configures the payment processor.  The
// engine charges token deposits and settlement steps through it.  In
// "fake" mode an in-process gateway auto-approves every intent, which
// keeps local development and CI off the network.
type PaymentConfig struct {
	Mode      string // "live" or "fake"
	BaseURL   string // processor API base URL (live mode)
	SecretKey string // processor API secret (live mode)
	Currency  string // ISO currency code sent with every intent
}

// LoadPaymentConfig reads the payment environment variables.  The
// secret key is only required in live mode.
func LoadPaymentConfig() PaymentConfig {
	cfg := PaymentConfig{
		Mode:      getenv("PAYMENT_MODE", "fake"),
		BaseURL:   getenv("PAYMENT_BASE_URL", "https://api.stripe.com"),
		SecretKey: getenv("PAYMENT_SECRET_KEY", ""),
		Currency:  getenv("PAYMENT_CURRENCY", "inr"),
	}
	if cfg.Mode == "live" {
		cfg.SecretKey = must("PAYMENT_SECRET_KEY")
	}
	return cfg
}

// AuctionConfig carries the settlement tuning knobs.  Amounts are kept
// as strings here and parsed into decimals at wiring time so this
// package stays free of domain dependencies.
type AuctionConfig struct {
	DepositRate string // fraction of base price held as token deposit
	MinStep     string // smallest settlement charge
	MaxStep     string // largest settlement charge (processor cap)
	BidRetries  int    // attempts before a contended bid gives up
}

// LoadAuctionConfig reads the auction environment variables with the
// production defaults.
func LoadAuctionConfig() AuctionConfig {
	return AuctionConfig{
		DepositRate: getenv("AUCTION_DEPOSIT_RATE", "0.1"),
		MinStep:     getenv("AUCTION_MIN_STEP", "0.5"),
		MaxStep:     getenv("AUCTION_MAX_STEP", "1999999"),
		BidRetries:  envInt("AUCTION_BID_RETRIES", 3),
	}
}
