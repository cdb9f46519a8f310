// decider runs the trading decision service: the decision pipeline
// behind a REST API, with optional Redis caching, PostgreSQL audit
// logging, NATS event publishing and Prometheus metrics.
package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/quantforge/decider/internal/ai"
	"github.com/quantforge/decider/internal/api"
	"github.com/quantforge/decider/internal/config"
	"github.com/quantforge/decider/internal/engine"
	"github.com/quantforge/decider/internal/events"
	"github.com/quantforge/decider/internal/market"
	"github.com/quantforge/decider/internal/metrics"
	"github.com/quantforge/decider/internal/risk"
	"github.com/quantforge/decider/internal/signal"
	"github.com/quantforge/decider/internal/store"
	"github.com/quantforge/decider/internal/strategy"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	log.Info().Str("environment", cfg.App.Environment).Msg("Starting decider")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Market data provider, optionally wrapped in the Redis cache.
	var provider market.DataProvider = market.NewHTTPProvider(market.HTTPProviderConfig{
		Endpoint:   cfg.Market.Endpoint,
		APIKey:     cfg.Market.APIKey,
		Timeout:    cfg.Market.Timeout,
		MaxRetries: cfg.Market.MaxRetries,
	})
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, continuing without market cache")
		} else {
			provider = market.NewCachedProvider(provider, redisClient, cfg.Redis.QuoteTTL)
			defer redisClient.Close()
		}
	}

	// AI services are optional; without them the analyzer runs without
	// sentiment and the engine uses the aggregation synthesizer.
	var (
		sentiment   market.SentimentAnalyzer
		synthesizer engine.Synthesizer
	)
	if cfg.AI.Enabled {
		aiClient := ai.NewClient(ai.ClientConfig{
			Endpoint:    cfg.AI.Endpoint,
			APIKey:      cfg.AI.APIKey,
			Timeout:     cfg.AI.Timeout,
			MaxRetries:  cfg.AI.MaxRetries,
			BreakerOpen: cfg.AI.BreakerOpen,
		})
		sentiment = aiClient
		synthesizer = engine.NewAISynthesizer(aiClient)
	}

	analyzer := market.NewAnalyzer(provider, sentiment)
	evaluator := risk.NewEvaluator(provider, risk.Options{
		BenchmarkSymbol:   cfg.Risk.BenchmarkSymbol,
		BenchmarkCacheTTL: cfg.Risk.BenchmarkCacheTTL,
		RiskFreeRate:      cfg.Risk.RiskFreeRate,
	})
	aggregator := signal.NewAggregator()

	registry := strategy.NewRegistry()
	for _, s := range []strategy.Strategy{strategy.NewMomentum(), strategy.NewMeanReversion()} {
		if err := registry.Register(s); err != nil {
			log.Fatal().Err(err).Msg("Failed to register strategy")
		}
	}

	opts := engine.Options{
		MaxConcurrentDecisions: cfg.Engine.MaxConcurrentDecisions,
		DecisionTimeout:        cfg.Engine.DecisionTimeout,
		MaxPositionSize:        cfg.Engine.MaxPositionSize,
		MinTradeAmount:         decimal.NewFromFloat(cfg.Engine.MinTradeAmount),
		Synthesizer:            synthesizer,
	}

	var decisionStore *store.Store
	if cfg.Database.Enabled {
		st, pool, err := store.Connect(ctx, cfg.Database.DSN())
		if err != nil {
			log.Warn().Err(err).Msg("Database unreachable, continuing without audit log")
		} else {
			defer pool.Close()
			if err := st.EnsureSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to ensure decisions schema")
			}
			decisionStore = st
			opts.Recorder = st
		}
	}

	if cfg.NATS.Enabled {
		publisher, err := events.NewPublisher(events.PublisherConfig{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
		})
		if err != nil {
			log.Warn().Err(err).Msg("NATS unreachable, continuing without event publishing")
		} else {
			defer publisher.Close()
			opts.Publisher = publisher
		}
	}

	eng := engine.NewEngine(provider, analyzer, evaluator, aggregator, registry, opts)

	errs := make(chan error, 2)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		go func() { errs <- metricsServer.Start() }()
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiCfg := api.Config{
			Host:   cfg.API.Host,
			Port:   cfg.API.Port,
			Engine: eng,
		}
		if decisionStore != nil {
			apiCfg.History = decisionStore
		}
		apiServer = api.NewServer(apiCfg)
		go func() { errs <- apiServer.Start() }()
	}

	sigChan := make(chan os.Signal, 1)
	ossignal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		if err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if apiServer != nil {
		if err := apiServer.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to stop API server gracefully")
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to stop metrics server gracefully")
		}
	}

	log.Info().Msg("decider stopped")
}
