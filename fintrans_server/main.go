package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	auth "fin-ledger/auth_service"
	config "fin-ledger/config_package"
	database_methods "fin-ledger/database_methods_package"
	gateway "fin-ledger/http_gateway"
	models "fin-ledger/models_package"
	"fin-ledger/redis_cache"
	trhr "fin-ledger/transactions_service/transactions_handler"
	"fin-ledger/transactions_service/transactions_sender"
)

// stores bundles one backend behind every interface the handlers need.
type stores struct {
	users        models.UserStore
	banks        models.BankStore
	transactions models.TransactionStore
	history      models.TransactionHistory
	pinger       gateway.Pinger
	close        func() error
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "fintrans:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args, ".env")
	if err != nil {
		return err
	}
	log := newLogger(os.Stderr, cfg)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	if cfg.RedisAddr != "" {
		rdb, err := redis_cache.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		cache := redis_cache.NewBankCache(rdb, st.banks, cfg.BankCacheTTL, log)
		if err := cache.Warm(ctx, cfg.SeedBanks); err != nil {
			return err
		}
		st.banks = cache
		log.Info("caching banks in redis", "addr", cfg.RedisAddr)
	}

	tokens, err := auth.NewTokenService([]byte(cfg.SecretKey), cfg.SigningAlgorithm, cfg.TokenTTL)
	if err != nil {
		return err
	}

	var publisher trhr.Publisher
	if cfg.AMQPURL != "" {
		p, err := transactions_sender.Dial(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
		log.Info("publishing transactions", "queue", cfg.AMQPQueue)
	}

	server := gateway.NewServer(&gateway.Config{
		Auth: auth.NewGateway(st.users, auth.NewBcryptHasher(cfg.BcryptCost), tokens, cfg.LoginTokenTTL, log),
		Transfers: trhr.New(&trhr.Config{
			Tokens:       tokens,
			Users:        st.users,
			Banks:        st.banks,
			Transactions: st.transactions,
			History:      st.history,
			Publisher:    publisher,
			Log:          log,
		}),
		Storage:       st.pinger,
		SecureCookies: cfg.SecureCookies,
		Log:           log,
	})

	agent, err := gateway.NewAgent(gateway.AgentConfig{
		Addr:    cfg.HTTPAddr,
		Server:  server,
		Storage: st.pinger,
		Log:     log,
	})
	if err != nil {
		return err
	}
	log.Info("fintrans listening", "addr", agent.Addr().String(), "store", cfg.Store)

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-agent.Err():
		log.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := agent.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = serr
	}
	return err
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		mem := database_methods.NewMemoryStore(cfg.SeedBanks...)
		log.Warn("using the in-memory store; data is lost on exit")
		return &stores{
			users: mem, banks: mem, transactions: mem, history: mem, pinger: mem,
			close: func() error { return nil },
		}, nil
	}

	db, err := cfg.Postgres.DbConnector(ctx)
	if err != nil {
		return nil, err
	}
	gdb, err := database_methods.SetupGormDatabase(db, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := database_methods.EnsureSchema(ctx, gdb); err != nil {
		db.Close()
		return nil, err
	}
	if err := database_methods.SeedBanks(ctx, gdb, cfg.SeedBanks); err != nil {
		db.Close()
		return nil, err
	}

	gorm := database_methods.NewGormStore(gdb)
	return &stores{
		users:        gorm,
		banks:        gorm,
		transactions: gorm,
		history:      database_methods.NewHistoryRepo(db),
		pinger:       gorm,
		close:        db.Close,
	}, nil
}
