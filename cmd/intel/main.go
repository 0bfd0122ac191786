package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app_service "onchain-intel/internal/application/service"
	"onchain-intel/internal/domain/repository"
	domain_service "onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/blockchain"
	"onchain-intel/internal/infrastructure/config"
	"onchain-intel/internal/infrastructure/database"
	"onchain-intel/internal/infrastructure/httpapi"
	"onchain-intel/internal/infrastructure/logger"
	"onchain-intel/internal/infrastructure/memory"
	"onchain-intel/internal/infrastructure/messaging"
	"onchain-intel/internal/infrastructure/postgres"
	"onchain-intel/internal/infrastructure/seed"
	"onchain-intel/internal/infrastructure/sources"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const memoryCacheEntries = 4096

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.NewLogger(cfg.App.LogLevel, cfg.App.Env)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		fx.Supply(cfg),
		fx.Supply(log),
		fx.Supply(&cfg.NATS),
		fx.Supply(&cfg.Neo4J),
		fx.Supply(&cfg.Sources),
		fx.Supply(&cfg.Ledger),
		fx.Provide(func() *zap.Logger { return log.Logger }),

		// Infrastructure providers
		fx.Provide(
			newAddressStore,
			newHTTPClient,
			newEthereumClient,
			newTagSource,
			newStatsSource,
			newTransferSource,
			newLedger,
			newSummaryCache,
			newGraphRepository,
			newAuthenticator,
			database.NewNeo4JClient,
			messaging.NewNATSConsumer,
		),

		// Application providers
		fx.Provide(
			app_service.NewAddressService,
			app_service.NewDetailService,
			app_service.NewGraphService,
			app_service.NewTaggingService,
			newSummaryService,
			newTagLookup,
			newPaginator,
			newAPIServer,
		),

		// Lifecycle hooks
		fx.Invoke(loadSeed),
		fx.Invoke(startFragmentConsumer),
		fx.Invoke(startHTTPServer),

		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Error("Failed to start application", zap.Error(err))
		os.Exit(1)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down application...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Error("Failed to stop application gracefully", zap.Error(err))
		log.Flush()
		os.Exit(1)
	}

	log.Info("Application stopped successfully")
	log.Flush()
}

func newAddressStore(log *logger.Logger) repository.AddressRepository {
	return memory.NewAddressStore(log)
}

func newHTTPClient(cfg *config.SourcesConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}

// newEthereumClient dials the ledger RPC endpoint; nil when no endpoint is configured
func newEthereumClient(lc fx.Lifecycle, cfg *config.LedgerConfig, log *logger.Logger) (*blockchain.EthereumClient, error) {
	if cfg.RPCURL == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := blockchain.NewEthereumClient(ctx, cfg.RPCURL, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			client.Close()
			return nil
		},
	})
	return client, nil
}

func newTagSource(cfg *config.SourcesConfig, hc *http.Client, log *logger.Logger) domain_service.TagSource {
	return sources.NewTagClient(cfg, hc, log)
}

// newStatsSource combines the market statistics API with on-chain balances when an RPC endpoint exists
func newStatsSource(cfg *config.SourcesConfig, hc *http.Client, eth *blockchain.EthereumClient, log *logger.Logger) domain_service.StatsSource {
	market := sources.NewStatsClient(cfg, hc, log)
	if eth == nil {
		return market
	}
	return sources.NewMultiStatsSource(log, market, blockchain.NewChainStatsSource(eth, cfg.Chain, log))
}

func newTransferSource(cfg *config.SourcesConfig, hc *http.Client, log *logger.Logger) domain_service.TransferSource {
	if cfg.Simulated || cfg.TransferKey == "" {
		log.Info("Using simulated transfer history")
		return sources.NewSimulatedTransfers(time.Now())
	}
	return sources.NewTransferClient(cfg, hc, log)
}

func newLedger(cfg *config.LedgerConfig, eth *blockchain.EthereumClient, log *logger.Logger) (domain_service.Ledger, error) {
	if !cfg.Enabled {
		return blockchain.NewNoopLedger(log), nil
	}
	if eth == nil {
		return nil, fmt.Errorf("ledger is enabled but ledger.rpc_url is empty")
	}
	ledger, err := blockchain.NewTagRegistryLedger(eth.Client, cfg, log)
	if err != nil {
		return nil, err
	}
	return ledger, nil
}

// newSummaryCache selects the cache driver; the postgres driver also purges expired rows hourly
func newSummaryCache(lc fx.Lifecycle, cfg *config.Config, log *logger.Logger) (repository.SummaryCache, error) {
	if cfg.Cache.Driver != "postgres" {
		return memory.NewSummaryCache(memoryCacheEntries, cfg.Cache.TTL, cfg.Cache.KeyPrefix), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Cache.PostgresDSN)
	if err != nil {
		return nil, err
	}
	cache, err := postgres.NewSummaryCache(ctx, pool, cfg.Cache.TTL, cfg.Cache.KeyPrefix, log)
	if err != nil {
		pool.Close()
		return nil, err
	}

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go purgeSummaries(purgeCtx, cache, time.Hour, log)
			return nil
		},
		OnStop: func(context.Context) error {
			stopPurge()
			pool.Close()
			return nil
		},
	})
	return cache, nil
}

func purgeSummaries(ctx context.Context, cache *postgres.SummaryCache, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := cache.Purge(ctx)
			if err != nil {
				log.Warn("Failed to purge summary cache", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("Purged expired summaries", zap.Int64("count", n))
			}
		}
	}
}

// newGraphRepository connects to Neo4J when enabled; nil disables graph persistence
func newGraphRepository(lc fx.Lifecycle, cfg *config.Neo4JConfig, client *database.Neo4JClient, log *logger.Logger) repository.GraphRepository {
	if !cfg.Enabled {
		log.Info("Neo4J disabled, interaction graphs will not be persisted")
		return nil
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Connecting to Neo4J database", zap.String("uri", cfg.URI))
			if err := client.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect to Neo4J: %w", err)
			}
			log.Info("Successfully connected to Neo4J database")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := client.Close(ctx); err != nil {
				log.Error("Failed to close Neo4J connection", zap.Error(err))
			}
			return nil
		},
	})
	return database.NewNeo4JGraphRepository(client, log)
}

func newAuthenticator(cfg *config.Config) domain_service.Authenticator {
	return blockchain.NewSignatureAuthenticator(cfg.Auth.SignMessage, cfg.Auth.SignatureTTL)
}

func newSummaryService(store repository.AddressRepository, cache repository.SummaryCache, log *logger.Logger) *app_service.SummaryService {
	return app_service.NewSummaryService(store, app_service.TemplateSummarizer{}, cache, log)
}

func newTagLookup(source domain_service.TagSource, cfg *config.SourcesConfig) *app_service.TagLookup {
	return app_service.NewTagLookup(source, cfg.Timeout)
}

func newPaginator(source domain_service.TransferSource, cfg *config.Config, log *logger.Logger) *app_service.TransferPaginator {
	return app_service.NewTransferPaginator(source, cfg.App.PageSize, log)
}

func newAPIServer(
	cfg *config.Config,
	addresses *app_service.AddressService,
	details *app_service.DetailService,
	paginator *app_service.TransferPaginator,
	graphs *app_service.GraphService,
	tagging *app_service.TaggingService,
	summaries *app_service.SummaryService,
	lookup *app_service.TagLookup,
	auth domain_service.Authenticator,
	neo4jClient *database.Neo4JClient,
	consumer *messaging.NATSConsumer,
	log *logger.Logger,
) *httpapi.Server {
	checks := make(map[string]func(context.Context) bool)
	if cfg.Neo4J.Enabled {
		checks["neo4j"] = neo4jClient.IsConnected
	}
	if cfg.NATS.Enabled {
		checks["nats"] = func(context.Context) bool { return consumer.IsConnected() }
	}

	return httpapi.NewServer(httpapi.Dependencies{
		Addresses:     addresses,
		Details:       details,
		Paginator:     paginator,
		Graphs:        graphs,
		Tagging:       tagging,
		Summaries:     summaries,
		Lookup:        lookup,
		Authenticator: auth,
		Debounce:      cfg.App.SearchDebounce,
		Checks:        checks,
	}, log)
}

// loadSeed fills the address store before the server accepts requests
func loadSeed(cfg *config.Config, store repository.AddressRepository, log *logger.Logger) error {
	n, err := seed.NewLoader(store, log).Load(cfg.App.SeedFile)
	if err != nil {
		return fmt.Errorf("failed to load seed dataset: %w", err)
	}
	log.Info("Address store ready", zap.Int("record_count", n))
	return nil
}

// startFragmentConsumer connects to NATS and applies pushed statistics fragments
func startFragmentConsumer(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	consumer *messaging.NATSConsumer,
	addresses *app_service.AddressService,
	log *logger.Logger,
) {
	if !cfg.NATS.Enabled {
		log.Info("NATS disabled, statistics fragments will not be consumed")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lifecycle.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			log.Info("NATS Configuration",
				zap.String("url", cfg.NATS.URL),
				zap.String("stream_name", cfg.NATS.StreamName),
				zap.String("subject", consumer.Subject()),
			)
			if err := consumer.Connect(startCtx); err != nil {
				cancel()
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}

			go func() {
				defer close(done)
				processFragments(ctx, consumer.GetMessageChannel(), consumer.Done(), addresses, cfg.App.WorkerPoolSize, log)
			}()

			log.Info("Fragment consumer started successfully")
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			log.Info("Stopping fragment consumer...")
			cancel()
			err := consumer.Disconnect()
			select {
			case <-done:
			case <-stopCtx.Done():
				log.Warn("Fragment workers did not stop in time")
			}
			return err
		},
	})
}

// startHTTPServer serves the API until shutdown
func startHTTPServer(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	api *httpapi.Server,
	log *logger.Logger,
) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting HTTP server...", zap.Int("port", cfg.App.HTTPPort))

			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server error", zap.Error(err))
				}
			}()

			log.Info("HTTP server started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}
