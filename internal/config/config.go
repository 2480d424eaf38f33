package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"grid-broker/internal/types"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	AuthBasic = "basic"
	AuthJWT   = "jwt"
)

type Config struct {
	ApplicationID string
	AccountID     string
	Token         string
	AuthMode      string
	ClientID      string
	SharedKey     string
	Environment   string
	APIURL        string

	Instrument    string
	Grid          decimal.Decimal
	Quantity      decimal.Decimal
	OrderDuration types.OrderDuration

	PollInterval    time.Duration
	FeedBackoff     time.Duration
	FeedReadTimeout time.Duration

	LogLevel string
	LogFile  string

	StatusAddr      string
	StatusTokenHash string
	WebSocketOrigin string
	DBDSN           string
	DryRun          bool
}

// Load reads the environment, after merging ENV_FILE (or ./.env) into it.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	if path := os.Getenv("ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	} else {
		_ = godotenv.Load()
	}

	var c Config
	var missing []string
	required := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	c.ApplicationID = required("APPLICATION_ID")
	c.AccountID = required("ACCOUNT_ID")
	c.AuthMode = strings.ToLower(envOr("AUTH_MODE", AuthBasic))
	switch c.AuthMode {
	case AuthBasic:
		c.Token = required("TOKEN")
	case AuthJWT:
		c.ClientID = required("CLIENT_ID")
		c.SharedKey = required("SHARED_KEY")
	default:
		return c, errors.New("invalid AUTH_MODE: use basic or jwt")
	}
	c.Environment = envOr("ENVIRONMENT", "demo")
	c.APIURL = strings.TrimRight(os.Getenv("API_URL"), "/")
	if c.APIURL == "" {
		c.APIURL = "https://api-" + c.Environment + ".exante.eu"
	}

	c.Instrument = envOr("INSTRUMENT", "EUR/USD.E.FX")
	var err error
	if c.Grid, err = positiveDecimal("GRID", "0.01"); err != nil {
		return c, err
	}
	if c.Quantity, err = positiveDecimal("QUANTITY", "1"); err != nil {
		return c, err
	}
	d, ok := types.ParseOrderDuration(envOr("ORDER_DURATION", string(types.DurationGoodTillCancel)))
	if !ok {
		return c, errors.New("invalid ORDER_DURATION")
	}
	c.OrderDuration = d

	if c.PollInterval, err = duration("POLL_INTERVAL", 10*time.Second); err != nil {
		return c, err
	}
	if c.FeedBackoff, err = duration("FEED_BACKOFF", 60*time.Second); err != nil {
		return c, err
	}
	if c.FeedReadTimeout, err = duration("FEED_READ_TIMEOUT", 60*time.Second); err != nil {
		return c, err
	}

	c.LogLevel = envOr("LOG_LEVEL", "warning")
	c.LogFile = os.Getenv("LOG_FILE")
	c.StatusAddr = os.Getenv("STATUS_ADDR")
	c.StatusTokenHash = os.Getenv("STATUS_TOKEN_HASH")
	c.WebSocketOrigin = envOr("WS_ORIGIN", "*")
	c.DBDSN = os.Getenv("DB_DSN")
	if raw := os.Getenv("DRY_RUN"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return c, errors.New("invalid DRY_RUN")
		}
		c.DryRun = b
	}

	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func positiveDecimal(key, def string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(envOr(key, def))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid %s: must be positive", key)
	}
	return v, nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
