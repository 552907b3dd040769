// Package main runs the trading agent engine: the execution worker and the
// monitoring worker on independent schedules, sharing one set of stores and
// chain clients, with a Prometheus metrics endpoint on the side.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-agent-engine/internal/config"
	"solana-agent-engine/internal/decision"
	"solana-agent-engine/internal/executor"
	"solana-agent-engine/internal/logging"
	"solana-agent-engine/internal/monitor"
	"solana-agent-engine/internal/observability"
	"solana-agent-engine/internal/orders"
	"solana-agent-engine/internal/price"
	"solana-agent-engine/internal/social"
	"solana-agent-engine/internal/solana"
	"solana-agent-engine/internal/storage"
	chstore "solana-agent-engine/internal/storage/clickhouse"
	"solana-agent-engine/internal/storage/migrations"
	pgstore "solana-agent-engine/internal/storage/postgres"
	"solana-agent-engine/internal/swap"
	"solana-agent-engine/internal/wallet"
)

const externalCallTimeout = 30 * time.Second

// engineStores groups the persistent stores both workers share.
type engineStores struct {
	agents     storage.AgentStore
	positions  storage.PositionStore
	trades     storage.TradeStore
	candidates storage.CandidateStore
	reviews    storage.ReviewStore
	snapshots  storage.PriceSnapshotStore // nil without ClickHouse
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	once := flag.Bool("once", false, "Run a single pass of each worker and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New("engine", cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logging: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *once); err != nil && ctx.Err() == nil {
		logger.Error("engine failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, once bool) error {
	stores, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	vault, err := wallet.NewVault(cfg.WalletSecret)
	if err != nil {
		return fmt.Errorf("initialize wallet vault: %w", err)
	}

	rpc := solana.NewHTTPClient(cfg.Solana.RPCURL)
	var ws solana.WSClient
	if cfg.Solana.WSURL != "" {
		ws = solana.NewWSClient(cfg.Solana.WSURL, nil)
	}

	var relay *swap.RelayClient
	if len(cfg.Swap.RelayEndpoints) > 0 {
		relay = swap.NewRelayClient(cfg.Swap.RelayEndpoints, externalCallTimeout)
	}
	pipeline, err := swap.NewPipeline(swap.PipelineOptions{
		Aggregator: swap.NewAggregatorClient(cfg.Swap.AggregatorURL, externalCallTimeout),
		Relay:      relay,
		RPC:        rpc,
		WS:         ws,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("build swap pipeline: %w", err)
	}

	var orderManager *orders.Manager
	if cfg.Services.OrderServiceURL != "" {
		orderService := orders.NewServiceClient(cfg.Services.OrderServiceURL, externalCallTimeout)
		orderManager = orders.NewManager(orderService, rpc, logger)
	}

	decider := decision.NewClient(cfg.Services.DecisionServiceURL, externalCallTimeout)

	var publisher *social.Client
	if cfg.Services.SocialServiceURL != "" {
		publisher = social.NewClient(cfg.Services.SocialServiceURL, cfg.Services.SocialCommunityID, externalCallTimeout, logger)
	}

	tokenChain := buildTokenChain(cfg, rpc, logger)

	execWorker, err := executor.NewWorker(executor.Options{
		Agents:         stores.agents,
		Positions:      stores.positions,
		Trades:         stores.trades,
		Candidates:     stores.candidates,
		RPC:            rpc,
		Vault:          vault,
		Swaps:          pipeline,
		Orders:         orderManagerOrNil(orderManager),
		Decider:        decider,
		Social:         publisherOrNil(publisher),
		SlippageBps:    cfg.Swap.SlippageBps,
		CandidateLimit: cfg.Engine.CandidateLimit,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("build execution worker: %w", err)
	}

	monitorWorker, err := monitor.NewWorker(monitor.Options{
		Agents:      stores.agents,
		Positions:   stores.positions,
		Trades:      stores.trades,
		Reviews:     stores.reviews,
		Snapshots:   stores.snapshots,
		RPC:         rpc,
		Vault:       vault,
		Swaps:       pipeline,
		Orders:      orderCheckerOrNil(orderManager),
		Prices:      tokenChain,
		Explainer:   decider,
		Social:      publisherOrNil(publisher),
		Candidates:  stores.candidates,
		SlippageBps: cfg.Swap.SlippageBps,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("build monitoring worker: %w", err)
	}

	if once {
		execWorker.Run(ctx)
		monitorWorker.Run(ctx)
		return nil
	}

	go serveMetrics(ctx, cfg.Engine.MetricsAddr, logger)

	logger.Info("engine started",
		"execution_interval", cfg.Engine.ExecutionInterval,
		"monitor_interval", cfg.Engine.MonitorInterval,
		"order_service", cfg.Services.OrderServiceURL != "",
		"relay_endpoints", len(cfg.Swap.RelayEndpoints),
		"snapshots", stores.snapshots != nil)

	go runOnSchedule(ctx, cfg.Engine.ExecutionInterval, func(ctx context.Context) {
		execWorker.Run(ctx)
	})
	go runOnSchedule(ctx, cfg.Engine.MonitorInterval, func(ctx context.Context) {
		monitorWorker.Run(ctx)
	})
	go refreshFiatPrice(ctx, buildFiatChain(cfg, rpc, logger), logger)

	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}

// buildStores connects Postgres, runs migrations, and optionally connects
// ClickHouse for price snapshots. The returned cleanup closes both.
func buildStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engineStores, func(), error) {
	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	stores := &engineStores{
		agents:     pgstore.NewAgentStore(pool),
		positions:  pgstore.NewPositionStore(pool),
		trades:     pgstore.NewTradeStore(pool),
		candidates: pgstore.NewCandidateStore(pool),
		reviews:    pgstore.NewReviewStore(pool),
	}
	cleanup := func() { pool.Close() }

	if cfg.ClickHouse.DSN == "" {
		logger.Info("clickhouse not configured, price snapshots disabled")
		return stores, cleanup, nil
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}
	stores.snapshots = chstore.NewSnapshotStore(chConn)
	cleanup = func() {
		_ = chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// buildTokenChain assembles the token price fallback chain in priority
// order: aggregator, DEX analytics, bonding curve.
func buildTokenChain(cfg *config.Config, rpc solana.RPCClient, logger *slog.Logger) *price.TokenChain {
	var sources []price.TokenSource
	if cfg.Price.AggregatorURL != "" {
		sources = append(sources, price.NewAggregatorSource(cfg.Price.AggregatorURL, externalCallTimeout))
	}
	if cfg.Price.DexAnalyticsURL != "" {
		sources = append(sources, price.NewDexAnalyticsSource(cfg.Price.DexAnalyticsURL, externalCallTimeout))
	}
	sources = append(sources, price.NewBondingCurveSource(rpc))
	return price.NewTokenChain(logger, sources...)
}

// buildFiatChain assembles the SOL/USD fallback chain: aggregator, two
// market mirrors, then the on-chain oracle account.
func buildFiatChain(cfg *config.Config, rpc solana.RPCClient, logger *slog.Logger) *price.FiatChain {
	var sources []price.FiatSource
	if cfg.Price.AggregatorURL != "" {
		sources = append(sources, price.NewAggregatorSource(cfg.Price.AggregatorURL, externalCallTimeout))
	}
	if cfg.Price.CoingeckoURL != "" {
		sources = append(sources, price.NewCoingeckoMirror(cfg.Price.CoingeckoURL, externalCallTimeout))
	}
	if cfg.Price.ExchangeURL != "" {
		sources = append(sources, price.NewExchangeMirror(cfg.Price.ExchangeURL, externalCallTimeout))
	}
	if cfg.Solana.OracleAccount != "" {
		sources = append(sources, price.NewOracleSource(rpc, cfg.Solana.OracleAccount))
	}
	return price.NewFiatChain(logger, sources...)
}

// refreshFiatPrice keeps the SOL/USD gauge current for dashboards. The rate
// never gates trading, so resolution failures only log.
func refreshFiatPrice(ctx context.Context, chain *price.FiatChain, logger *slog.Logger) {
	const interval = time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		rate, err := chain.Resolve(ctx)
		if err != nil {
			logger.Warn("SOL/USD unavailable", "error", err)
		} else {
			observability.DefaultMetrics.SOLPriceUSD.Set(rate)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runOnSchedule fires pass immediately and then on every interval tick until
// the context is cancelled. Each pass gets the full interval as its deadline
// so an overrunning pass cannot pile up behind the ticker.
func runOnSchedule(ctx context.Context, interval time.Duration, pass func(context.Context)) {
	runPass := func() {
		passCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		pass(passCtx)
	}

	runPass()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runPass()
		}
	}
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", "error", err)
	}
}

// orderManagerOrNil keeps the worker's optional interface nil when no order
// service is configured. A typed nil inside a non-nil interface would defeat
// the worker's nil checks.
func orderManagerOrNil(m *orders.Manager) executor.OrderPlacer {
	if m == nil {
		return nil
	}
	return m
}

func orderCheckerOrNil(m *orders.Manager) monitor.OrderChecker {
	if m == nil {
		return nil
	}
	return m
}

func publisherOrNil(c *social.Client) executor.Publisher {
	if c == nil {
		return nil
	}
	return c
}
