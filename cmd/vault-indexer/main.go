package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/core-coin/vault-indexer/internal/blockchain"
	"github.com/core-coin/vault-indexer/internal/config"
	"github.com/core-coin/vault-indexer/internal/http_api"
	"github.com/core-coin/vault-indexer/internal/metrics"
	"github.com/core-coin/vault-indexer/internal/models"
	"github.com/core-coin/vault-indexer/internal/notificator"
	"github.com/core-coin/vault-indexer/internal/repository"
	"github.com/core-coin/vault-indexer/internal/scanner"
	"github.com/core-coin/vault-indexer/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "vault-indexer",
		Usage: "Indexes ERC-20 deposits into a vault address",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "rpc-url", Aliases: []string{"r"}, Usage: "Chain JSON-RPC HTTP URL"},
			&cli.StringFlag{Name: "vault-address", Usage: "Vault address to watch"},
			&cli.StringFlag{Name: "token-address", Aliases: []string{"k"}, Usage: "ERC-20 token contract address"},
			&cli.Uint64Flag{Name: "start-block", Aliases: []string{"s"}, Usage: "Block to start from when no checkpoint exists"},
			&cli.StringFlag{Name: "db-driver", Usage: "Database driver (postgres or sqlite)"},
			&cli.StringFlag{Name: "sqlite-path", Usage: "SQLite database file"},
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.IntFlag{Name: "api-port", Aliases: []string{"a"}, Usage: "HTTP API port"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
			&cli.BoolFlag{Name: "disable-watcher", Usage: "Serve the API without indexing"},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

// applyFlags overrides environment configuration with flags that were set
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("rpc-url") {
		cfg.RPCURL = c.String("rpc-url")
	}
	if c.IsSet("vault-address") {
		cfg.VaultAddress = c.String("vault-address")
	}
	if c.IsSet("token-address") {
		cfg.TokenAddress = c.String("token-address")
	}
	if c.IsSet("start-block") {
		cfg.SetStartBlock(c.Uint64("start-block"))
	}
	if c.IsSet("db-driver") {
		cfg.DBDriver = c.String("db-driver")
	}
	if c.IsSet("sqlite-path") {
		cfg.SQLitePath = c.String("sqlite-path")
	}
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}
	if c.IsSet("disable-watcher") && c.Bool("disable-watcher") {
		cfg.WatcherEnabled = false
	}
}

func run(c *cli.Context) error {
	// Load configuration from environment variables
	cfg := config.LoadConfig()
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := openDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	apiOpts := http_api.Options{
		Port:     cfg.APIPort,
		Source:   cfg.WatcherSource,
		Token:    models.TokenMetadata{Symbol: cfg.TokenSymbol, Decimals: cfg.TokenDecimals},
		Gatherer: registry,
	}

	var (
		tokens models.TokenService
		state  http_api.StateReporter
		scan   *scanner.Scanner
	)

	err = cfg.ValidateWatcher()
	switch {
	case errors.Is(err, config.ErrWatcherDisabled):
		log.Info("Vault watcher disabled, serving API only")
	case err != nil:
		return fmt.Errorf("invalid watcher config: %w", err)
	default:
		vault := common.HexToAddress(cfg.VaultAddress)
		token := common.HexToAddress(cfg.TokenAddress)

		// Initialize blockchain service
		client := blockchain.NewClient(cfg.RPCURL, token, cfg.RPCTimeout, cfg.RPCRateLimit, m, log)
		if err := client.Run(ctx); err != nil {
			return err
		}
		defer client.Close()

		meta := tokenMetadata(ctx, client, cfg, log)

		scan, err = scanner.New(scanner.Config{
			Source:        cfg.WatcherSource,
			VaultAddress:  vault,
			TokenAddress:  token,
			StartBlock:    cfg.StartBlock,
			MaxBlockSpan:  cfg.MaxBlockSpan,
			PollInterval:  cfg.PollInterval,
			Lookback:      cfg.Lookback,
			Confirmations: cfg.Confirmations,
			LockTTL:       cfg.LockTTL,
			Currency:      meta.Symbol,
			Decimals:      meta.Decimals,
		}, client, db, db, db, newNotificator(ctx, cfg, db, log), m, log)
		if err != nil {
			return fmt.Errorf("failed to create scanner: %w", err)
		}

		apiOpts.Vault = vault
		apiOpts.Token = meta
		tokens, state = client, scan
	}

	// Initialize API server
	apiServer := http_api.NewHTTPServer(apiOpts, db, tokens, state, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(apiServer.Start)
	g.Go(func() error {
		<-gctx.Done()
		return apiServer.Shutdown()
	})
	if scan != nil {
		g.Go(func() error {
			return scan.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Vault indexer stopped")
	return nil
}

func openDatabase(cfg *config.Config, log *logger.Logger) (*repository.PostgresDB, error) {
	if cfg.DBDriver == config.DBDriverSQLite {
		return repository.NewSQLiteDB(cfg.SQLitePath, log)
	}
	return repository.NewPostgresDB(cfg.PostgresDSN(), log)
}

// tokenMetadata reads symbol and decimals from the token contract, falling back
// to the configured values when the call fails.
func tokenMetadata(ctx context.Context, tokens models.TokenService, cfg *config.Config, log *logger.Logger) models.TokenMetadata {
	fallback := models.TokenMetadata{Symbol: cfg.TokenSymbol, Decimals: cfg.TokenDecimals}

	meta, err := tokens.TokenMetadata(ctx)
	if err != nil {
		log.Warn("Failed to read token metadata, using configured values", "error", err, "symbol", fallback.Symbol, "decimals", fallback.Decimals)
		return fallback
	}
	log.Info("Token metadata loaded", "symbol", meta.Symbol, "decimals", meta.Decimals)
	return *meta
}

func newNotificator(ctx context.Context, cfg *config.Config, checkpoints models.CheckpointStore, log *logger.Logger) *notificator.Notificator {
	if cfg.TelegramBotToken == "" {
		return notificator.NewNotificator(log, "", nil)
	}

	telegram, err := notificator.NewTelegramNotificator(ctx, log, cfg.TelegramBotToken, cfg.WatcherSource, checkpoints)
	if err != nil {
		log.Error("Telegram notifications disabled", "error", err)
		return notificator.NewNotificator(log, "", nil)
	}
	if cfg.TelegramChatID == "" {
		log.Warn("TELEGRAM_CHAT_ID is not set, send /start to the bot to get it")
	}
	return notificator.NewNotificator(log, cfg.TelegramChatID, telegram)
}
