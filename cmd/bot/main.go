package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"perpbot/config"
	"perpbot/internal/api"
	"perpbot/internal/cooldown"
	"perpbot/internal/engine"
	"perpbot/internal/exchange"
	"perpbot/internal/logger"
	"perpbot/internal/marketdata"
	"perpbot/internal/metrics"
	"perpbot/internal/model"
	"perpbot/internal/notification"
	"perpbot/internal/store"
	"perpbot/internal/threshold"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[bot] starting...")

	logger.Init("perpbot", slog.LevelInfo)
	cfg := config.Load()
	symbols := cfg.ParseSymbols()
	log.Printf("[bot] trading %v (confirm=%s trigger=%s, dryRun=%v)",
		symbols, cfg.ConfirmTF, cfg.TriggerTF, cfg.DryRun)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Candle cache: Redis when configured, in-memory otherwise ----
	var cache marketdata.Cache
	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			log.Printf("[bot] redis unavailable (%v), falling back to memory cache", err)
			rdb = nil
		} else {
			cache = marketdata.NewRedisCache(rdb)
			log.Printf("[bot] candle cache: redis at %s", cfg.RedisAddr)
		}
	}
	if cache == nil {
		cache = marketdata.NewMemoryCache()
		log.Printf("[bot] candle cache: in-memory")
	}

	fetcher := marketdata.NewFetcher(cfg.BinanceREST)
	source := marketdata.NewCachedSource(fetcher, cache)

	// ---- Persistence ----
	positions, err := store.OpenPositions(cfg.PositionsDB)
	if err != nil {
		log.Fatalf("[bot] position store: %v", err)
	}
	defer positions.Close()

	journal, err := store.OpenJournal(cfg.JournalDB)
	if err != nil {
		log.Fatalf("[bot] trade journal: %v", err)
	}
	defer journal.Close()

	thresholds := threshold.NewStore(cfg.ThresholdFile, func(symbol string, regime model.Regime) {
		// Regeneration runs out-of-process; the engine only signals demand.
		log.Printf("[bot] threshold regeneration requested for %s/%s", symbol, regime)
	})

	// ---- Execution ----
	var executor exchange.Executor = exchange.NewPaper()
	if cfg.DryRun {
		log.Printf("[bot] executor: paper (dry run)")
	} else {
		log.Printf("[bot] executor: paper (no live venue configured, DRY_RUN=false ignored)")
	}

	// ---- Notifications ----
	var notifier notification.Notifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		notifier = notification.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		log.Printf("[bot] notifier: telegram")
	} else {
		notifier = notification.NewLogNotifier()
	}

	// ---- Metrics & health ----
	prom := metrics.New()
	health := metrics.NewHealthStatus()
	health.StartLivenessChecker(ctx, rdb, positions.DB(), 15*time.Second)
	metricsServer := metrics.NewServer(cfg.MetricsAddr, health)
	metricsServer.Start()

	// ---- Live mark prices ----
	stream := marketdata.NewPriceStream(cfg.BinanceWS, symbols)
	go stream.Run(ctx)

	// ---- Session ----
	session := engine.NewSession(cfg, engine.Deps{
		Source:     source,
		Stream:     stream,
		Thresholds: thresholds,
		Cooldowns:  cooldown.NewManager(),
		Positions:  positions,
		Journal:    journal,
		Executor:   executor,
		Notifier:   notifier,
		Prom:       prom,
		Health:     health,
	})

	apiServer := api.NewServer(cfg.APIAddr, session, positions, cfg.TOTPSecret)
	apiServer.Start()

	go session.Loop(ctx)
	notification.Fire(notifier, notification.Alert{
		Level:   notification.AlertInfo,
		Title:   "Bot started",
		Message: "symbols: " + cfg.Symbols,
	})

	// ---- Graceful shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("[bot] received %s, shutting down...", sig)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	apiServer.Stop(shutdownCtx)
	metricsServer.Stop(shutdownCtx)
	if rdb != nil {
		rdb.Close()
	}
	log.Println("[bot] shutdown complete")
}
