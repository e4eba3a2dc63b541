package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations.
type Config struct {
	Env                 string // application environment (e.g. "dev", "prod")
	Port                string // HTTP port to listen on
	DBUser              string // database username
	DBPass              string // database password (optional)
	DBHost              string // database host address
	DBPort              string // database port number
	DBName              string // database name
	DBMaxOpen           int    // connection pool ceiling
	DBMaxIdle           int    // idle connections kept in the pool
	DBConnLifetimeMin   int    // connection recycle interval in minutes
	StaffJWTSecret      string // secret verifying externally issued staff tokens
	ReservationTTLMin   int    // hold window in minutes, fixed at reservation creation
	PaymentWindowMin    int    // payment window in minutes, fixed at claim time
	ReapBatch           int    // max reservations reclaimed per reaper sweep
	MockChannelSecret   string // shared secret signing mock channel callbacks
	StripeSecretKey     string // stripe API key (stripe channel disabled when empty)
	StripeWebhookSecret string // stripe webhook signing secret
	PaymentCurrency     string // ISO currency code for provider transactions
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:                 must("APP_ENV"),                    // environment (dev/test/prod)
		Port:                must("APP_PORT"),                   // port to bind the HTTP server
		DBUser:              must("DB_USER"),                    // database user
		DBPass:              os.Getenv("DB_PASS"),               // database password (empty allowed)
		DBHost:              must("DB_HOST"),                    // database host
		DBPort:              must("DB_PORT"),                    // database port
		DBName:              must("DB_NAME"),                    // database name
		DBMaxOpen:           envIntDefault("DB_MAX_OPEN", 25),   // pool ceiling
		DBMaxIdle:           envIntDefault("DB_MAX_IDLE", 25),   // idle pool size
		DBConnLifetimeMin:   envIntDefault("DB_CONN_LIFETIME_MIN", 30),
		StaffJWTSecret:      must("STAFF_JWT_SECRET"),           // staff token verification secret
		ReservationTTLMin:   mustInt("RESERVATION_TTL_MIN"),     // hold window in minutes
		PaymentWindowMin:    mustInt("PAYMENT_WINDOW_MIN"),      // payment window in minutes
		ReapBatch:           envIntDefault("REAP_BATCH", 100),   // reaper sweep batch size
		MockChannelSecret:   must("MOCK_CHANNEL_SECRET"),        // mock channel callback secret
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),     // stripe API key (optional)
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"), // stripe webhook secret (optional)
		PaymentCurrency:     envStr("PAYMENT_CURRENCY", "usd"),  // provider transaction currency
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// envIntDefault reads an optional integer variable, falling back to a
// default when unset or malformed.
func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
