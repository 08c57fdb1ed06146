package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/antihype/morpheus-gateway/internal/ai"
	"github.com/antihype/morpheus-gateway/internal/chat"
	"github.com/antihype/morpheus-gateway/internal/config"
	"github.com/antihype/morpheus-gateway/internal/httpapi"
	"github.com/antihype/morpheus-gateway/internal/identity"
	"github.com/antihype/morpheus-gateway/internal/middleware"
	"github.com/antihype/morpheus-gateway/internal/quota"
	"github.com/antihype/morpheus-gateway/internal/telegrambot"
	"github.com/antihype/morpheus-gateway/internal/ws"
	"github.com/antihype/morpheus-gateway/store"
)

func main() {
	_ = config.LoadEnvFile("config.env")
	cfg := config.FromEnv()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	pgStore, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()

	sessionCache := store.NewSessionCache(rdb, cfg.CacheTTLMinutes)
	dialogStore := store.NewDialogStore(rdb, cfg.DialogTTLHours)

	aiClient := ai.NewClient(cfg.AIServiceURL)
	resolver := identity.NewResolver(pgStore, sessionCache)
	quotaManager := quota.NewManager(pgStore, sessionCache)
	chatService := chat.NewService(pgStore, pgStore, quotaManager, sessionCache, aiClient)
	hub := ws.NewHub()

	var tgBot *bot.Bot
	if cfg.BotToken != "" {
		httpClient := &http.Client{
			Timeout: 10 * time.Minute,
		}
		pollTimeout := 50 * time.Second

		tgBot, err = bot.New(
			cfg.BotToken,
			bot.WithHTTPClient(pollTimeout, httpClient),
		)
		if err != nil {
			log.Fatalf("Failed to create bot: %v", err)
		}

		h := telegrambot.NewHandlers(pgStore, resolver, chatService, quotaManager, dialogStore, telegrambot.Config{
			WebAppURL:        cfg.WebAppURL,
			PremiumPriceXTR:  cfg.PremiumPriceXTR,
			SubscribePayload: cfg.SubscribePayload,
		})

		handlerChain := middleware.AnalyzeMessageMiddleware(h.MainHandler)

		tgBot.RegisterHandlerMatchFunc(func(update *models.Update) bool {
			return update.Message != nil
		}, handlerChain)

		tgBot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, handlerChain)

		tgBot.RegisterHandlerMatchFunc(func(update *models.Update) bool {
			return update.PreCheckoutQuery != nil
		}, handlerChain)
	} else {
		log.Println("BOT_TOKEN is not set, Telegram channel disabled")
	}

	var sendTelegram httpapi.TelegramSender
	if tgBot != nil {
		sendTelegram = func(ctx context.Context, telegramID int64, text string) {
			if err := telegrambot.SendText(ctx, tgBot, telegramID, text); err != nil {
				log.Printf("Error sending telegram message to %d: %v", telegramID, err)
			}
		}
	}

	api := httpapi.NewServer(
		chatService,
		resolver,
		quotaManager,
		pgStore,
		hub,
		hub,
		sendTelegram,
		cfg.CookieSecret,
		cfg.InternalSecret,
	)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("HTTP API listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	if tgBot != nil {
		go func() {
			log.Println("Telegram bot started")
			tgBot.Start(ctx)
		}()
	}

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
}
