package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-digital-shop/internal/application"
	"telegram-digital-shop/internal/config"
	payAdapters "telegram-digital-shop/internal/infra/adapters/payment"
	tele "telegram-digital-shop/internal/infra/adapters/telegram"
	"telegram-digital-shop/internal/infra/api"
	"telegram-digital-shop/internal/infra/api/apiv1"
	pg "telegram-digital-shop/internal/infra/db/postgres"
	"telegram-digital-shop/internal/infra/i18n"
	"telegram-digital-shop/internal/infra/logging"
	"telegram-digital-shop/internal/infra/metrics"
	red "telegram-digital-shop/internal/infra/redis"
	"telegram-digital-shop/internal/infra/scenarios"
	"telegram-digital-shop/internal/infra/sched"
	"telegram-digital-shop/internal/infra/worker"
	"telegram-digital-shop/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted data)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fallback := zerolog.New(os.Stderr).With().Timestamp().Logger()
		fallback.Fatal().Err(err).Str("path", *cfgPath).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second, logger)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)
	sessions := red.NewSessionRepo(redisClient, cfg.Session.TTL, logger)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	userRepo := pg.NewPostgresUserRepo(pool)
	itemRepo := pg.NewItemRepoCacheDecorator(pg.NewItemRepo(pool), redisClient, cfg.Redis.TTL, logger)
	orderRepo := pg.NewOrderRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)

	// ---- Scenarios & locale ----
	scenarioSet, err := scenarios.LoadFS(os.DirFS(cfg.Scenarios.Dir), logger)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Scenarios.Dir).Msg("scenarios")
	}
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "ru")
	if err != nil {
		logger.Fatal().Err(err).Msg("locale")
	}
	if missing := tr.Missing(i18n.CoreKeys...); len(missing) > 0 {
		logger.Fatal().Strs("keys", missing).Str("lang", tr.Lang()).Msg("locale incomplete")
	}

	// ---- Payment provider ----
	anyPay, err := payAdapters.NewAnyPay(
		cfg.Payment.AnyPay.MerchantID,
		cfg.Payment.AnyPay.Secret,
		cfg.Payment.AnyPay.BaseURL,
		cfg.Payment.AnyPay.Currency,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("anypay")
	}

	// ---- Telegram API & renderer ----
	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram")
	}
	bot.Debug = cfg.Runtime.Dev
	renderer := tele.NewRenderer(bot)

	// ---- Use cases ----
	userUC := usecase.NewUserUseCase(userRepo, tm, logger)
	orderUC := usecase.NewOrderUseCase(orderRepo, itemRepo, userRepo, tm, logger)
	sellUC := usecase.NewSellUseCase(scenarioSet, sessions, itemRepo, userRepo, orderUC, renderer, locker, tr, logger)
	paymentUC := usecase.NewPaymentUseCase(payRepo, anyPay, renderer, tr, cfg.Payment.Card.Number, logger)
	settlementUC := usecase.NewSettlementUseCase(paymentUC, payRepo, userRepo, anyPay, renderer, tm, tr, logger)

	// ---- Facade ----
	facade := application.NewBotFacade(userUC, sellUC, paymentUC, settlementUC, application.NewCatalog(itemRepo), tr, logger)

	// ---- Telegram polling ----
	updates := worker.NewPool(cfg.Bot.Workers, logger)
	updates.Start(ctx)
	defer updates.Stop()

	botAdapter, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, bot, renderer, facade, tr, rateLimiter, updates, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram adapter")
	}
	go func() {
		if err := botAdapter.StartPolling(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- HTTP: settlement gateway + admin API ----
	var admin api.AdminRoutes
	var auth *api.AuthManager
	if cfg.Admin.JWTSecret != "" {
		auth, err = api.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("admin auth")
		}
		admin = apiv1.NewServer(orderUC, paymentUC, settlementUC, logger)
	} else {
		logger.Warn().Msg("admin.jwt_secret not set; admin API disabled")
	}
	server, err := api.NewServer(&cfg.API, settlementUC, admin, auth, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("http server")
	}
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Stale order sweeper ----
	sweeper := sched.NewOrderSweeper(cfg.Orders.SweepInterval, cfg.Orders.ExpireAfter, orderUC, logger)
	go func() { _ = sweeper.Run(ctx) }()

	logger.Info().Str("version", version).Strs("scenarios", scenarioSet.Names()).Msg("shop started")

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	botAdapter.StopPolling()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	cancel()
}
