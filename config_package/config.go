package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff"

	database_methods "fin-ledger/database_methods_package"
)

// EnvPrefix is prepended to every flag name to form its environment
// variable, e.g. -secret-key is read from FINTRANS_SECRET_KEY.
const EnvPrefix = "FINTRANS"

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	// HTTPAddr serves the HTTP API and the gRPC health service.
	HTTPAddr string

	Store    string
	Postgres database_methods.ConnPostgres
	// SeedBanks are inserted at startup when missing.
	SeedBanks []string

	SecretKey        string
	SigningAlgorithm string
	TokenTTL         time.Duration
	LoginTokenTTL    time.Duration
	BcryptCost       int
	SecureCookies    bool

	AMQPURL   string
	AMQPQueue string

	// RedisAddr enables the bank lookup cache when set.
	RedisAddr    string
	BankCacheTTL time.Duration

	LogLevel  slog.Level
	LogFormat string
}

// Load reads an optional .env file, then parses args with environment and
// config-file fallbacks. Flags win over the environment, which wins over
// the config file.
func Load(args []string, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	flags := flag.NewFlagSet("fintrans", flag.ContinueOnError)
	var (
		httpAddr   = flags.String("http-addr", ":8080", "address for the HTTP API and gRPC health")
		store      = flags.String("store", StorePostgres, "storage backend: postgres or memory")
		dbURL      = flags.String("database-url", "", "postgres connection string; overrides the db-* flags")
		dbHost     = flags.String("db-host", "localhost", "postgres host")
		dbPort     = flags.String("db-port", "5432", "postgres port")
		dbUser     = flags.String("db-user", "postgres", "postgres user")
		dbPassword = flags.String("db-password", "", "postgres password")
		dbName     = flags.String("db-name", "fintrans", "postgres database name")
		dbSSLMode  = flags.String("db-sslmode", "disable", "postgres sslmode")
		seedBanks  = flags.String("seed-banks", "", "comma separated bank names to create at startup")
		secret     = flags.String("secret-key", "", "HMAC secret used to sign access tokens")
		alg        = flags.String("signing-algorithm", "HS256", "token signing algorithm: HS256, HS384 or HS512")
		tokenTTL   = flags.Duration("token-ttl", 30*time.Minute, "default access token lifetime")
		loginTTL   = flags.Duration("login-token-ttl", 30*time.Minute, "lifetime of tokens issued by /login")
		cost       = flags.Int("bcrypt-cost", 10, "bcrypt work factor, at least 10")
		secure     = flags.Bool("secure-cookies", false, "mark the access_token cookie Secure")
		amqpURL    = flags.String("amqp-url", "", "rabbitmq URL; empty disables publishing")
		amqpQueue  = flags.String("amqp-queue", "transactions", "queue for posted transactions")
		redisAddr  = flags.String("redis-addr", "", "redis address for the bank cache; empty disables it")
		cacheTTL   = flags.Duration("bank-cache-ttl", 10*time.Minute, "lifetime of cached bank rows")
		logLevel   = flags.String("log-level", "info", "debug, info, warn or error")
		logFormat  = flags.String("log-format", "text", "text or json")
		_          = flags.String("config", "", "path to a config file of 'flag value' lines")
	)

	err := ff.Parse(flags, args,
		ff.WithEnvVarPrefix(EnvPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr: *httpAddr,
		Store:    *store,
		Postgres: database_methods.ConnPostgres{
			Host:     *dbHost,
			User:     *dbUser,
			Password: *dbPassword,
			DbName:   *dbName,
			Port:     *dbPort,
			SslMode:  *dbSSLMode,
			URL:      *dbURL,
		},
		SeedBanks:        splitList(*seedBanks),
		SecretKey:        *secret,
		SigningAlgorithm: *alg,
		TokenTTL:         *tokenTTL,
		LoginTokenTTL:    *loginTTL,
		BcryptCost:       *cost,
		SecureCookies:    *secure,
		AMQPURL:          *amqpURL,
		AMQPQueue:        *amqpQueue,
		RedisAddr:        *redisAddr,
		BankCacheTTL:     *cacheTTL,
		LogFormat:        *logFormat,
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(*logLevel)); err != nil {
		return nil, fmt.Errorf("log-level: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.SecretKey == "":
		return errors.New("secret-key is required")
	case c.Store != StorePostgres && c.Store != StoreMemory:
		return fmt.Errorf("unknown store %q", c.Store)
	case c.TokenTTL <= 0 || c.LoginTokenTTL <= 0:
		return errors.New("token lifetimes must be positive")
	case c.BankCacheTTL <= 0:
		return errors.New("bank-cache-ttl must be positive")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
