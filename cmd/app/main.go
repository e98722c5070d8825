// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"catering-platform/internal/config"
	"catering-platform/internal/domain/ports/adapter"
	pg "catering-platform/internal/infra/db/postgres"
	"catering-platform/internal/infra/intent"
	"catering-platform/internal/infra/logging"
	"catering-platform/internal/infra/notify"
	"catering-platform/internal/infra/providers"
	red "catering-platform/internal/infra/redis"
	tele "catering-platform/internal/infra/telegram"
	"catering-platform/internal/infra/web"
	"catering-platform/internal/infra/worker"
	"catering-platform/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (rule-based intent, relaxed validation)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	txm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	taskQueue := red.NewTaskQueue(redisClient)
	locker := red.NewLocker(redisClient)
	tracking := red.NewTrackingCache(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	orderRepo := pg.NewOrderRepo(pool)
	ledger := pg.NewIdempotencyLedger(pool)
	sessionRepo := pg.NewChatSessionRepo(pool)
	dishRepo := pg.NewDishRepo(pool)
	userRepo := pg.NewUserRepo(pool)

	// ---- Provider adapters ----
	provs, err := buildProviders(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("providers")
	}
	registry := providers.NewRegistry(provs...)
	logger.Info().Strs("providers", registry.Names()).Msg("provider registry ready")

	// ---- Notifier ----
	var notifier adapter.Notifier = notify.NoopNotifier{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout, logger)
	}

	// ---- Intent extractor (LLM unless dev mode or no key) ----
	var extractor adapter.IntentExtractor
	switch {
	case cfg.Runtime.Dev || cfg.AI.APIKey == "":
		extractor = intent.NewRuleExtractor()
		logger.Info().Msg("intent extractor: rule-based")
	case cfg.AI.Backend == "gemini":
		extractor, err = intent.NewGeminiExtractor(ctx, cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
		if err != nil {
			logger.Fatal().Err(err).Msg("intent extractor")
		}
		logger.Info().Str("model", cfg.AI.Model).Msg("intent extractor: gemini")
	default:
		extractor, err = intent.NewLLMExtractor(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
		if err != nil {
			logger.Fatal().Err(err).Msg("intent extractor")
		}
		logger.Info().Str("base", cfg.AI.BaseURL).Str("model", cfg.AI.Model).Msg("intent extractor: llm")
	}

	// ---- Use cases ----
	orderUC := usecase.NewOrderUseCase(orderRepo, dishRepo, taskQueue, registry, txm, logger)
	chatUC := usecase.NewChatUseCase(sessionRepo, userRepo, dishRepo, locker, extractor, orderUC, logger)

	// ---- Dispatch workers ----
	policy := worker.Policy{
		MaxAttempts:  cfg.Dispatch.MaxAttempts,
		TransientCap: cfg.Dispatch.TransientCap,
		BackoffBase:  cfg.Dispatch.BackoffBase,
		BackoffMax:   cfg.Dispatch.BackoffMax,
	}
	dispatcher := worker.NewDispatcher(orderRepo, ledger, taskQueue, registry, notifier, tracking, policy, logger)
	dispatchPool := worker.NewPool(cfg.Dispatch.Workers, taskQueue, dispatcher, logger)
	dispatchPool.Start(ctx)

	poller := worker.NewStatusPoller(orderRepo, registry, notifier, tracking, cfg.Dispatch.PollInterval, logger)
	go poller.Run(ctx)

	// Retry timers do not survive a restart; the sweeper re-enqueues orders
	// stranded in dispatch_pending longer than any backoff could hold them.
	rescuer := worker.NewRescueSweeper(orderRepo, ledger, taskQueue, 2*policy.BackoffMax, policy.BackoffMax, logger)
	go rescuer.Run(ctx)

	// ---- Telegram ----
	if cfg.Bot.Token != "" {
		bot, err := tele.NewBot(cfg.Bot.Token, userRepo, chatUC, cfg.Bot.Workers, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		go func() {
			if err := bot.StartPolling(ctx); err != nil {
				logger.Warn().Err(err).Msg("telegram polling stopped")
			}
		}()
	}

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.HTTP.JWTSecret, cfg.HTTP.JWTTTL)
	server := web.NewServer(chatUC, orderUC, tracking, auth, logger)
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: server.Router(),
	}
	go func() {
		logger.Info().Int("port", cfg.HTTP.Port).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	if err := taskQueue.Close(); err != nil {
		logger.Warn().Err(err).Msg("queue close")
	}
	dispatchPool.Wait()
	logger.Info().Msg("bye")
}

// buildProviders wires every configured provider adapter. Unknown names are
// rejected so a typo in config fails fast instead of silently dropping a
// provider.
func buildProviders(cfg *config.Config) ([]adapter.OrderProvider, error) {
	provs := make([]adapter.OrderProvider, 0, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		switch name {
		case "silpo":
			provs = append(provs, providers.NewSilpo(pc.BaseURL, pc.Timeout))
		case "kfc":
			provs = append(provs, providers.NewKFC(pc.BaseURL, pc.Timeout))
		case "uklon":
			provs = append(provs, providers.NewUklon(pc.BaseURL, pc.Pickup, pc.Timeout))
		case "uber":
			provs = append(provs, providers.NewUber(pc.BaseURL, pc.Pickup, pc.Timeout))
		default:
			return nil, fmt.Errorf("unknown provider %q in config", name)
		}
	}
	return provs, nil
}
