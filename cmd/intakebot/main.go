package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/gratefultolord/loan_intake_bot/internal/app"
	"github.com/gratefultolord/loan_intake_bot/internal/backend"
	"github.com/gratefultolord/loan_intake_bot/internal/bot"
	"github.com/gratefultolord/loan_intake_bot/internal/config"
	"github.com/gratefultolord/loan_intake_bot/internal/files"
	"github.com/gratefultolord/loan_intake_bot/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	if err := cfg.RequireBotToken(); err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}

	application, err := app.New(cfg, zl)
	if err != nil {
		zl.Fatal("cannot initialise application", zap.Error(err))
	}
	defer application.Close()

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		zl.Fatal("cannot create telegram bot", zap.Error(err))
	}

	fileService := files.NewFileService(botAPI, backend.NewHTTPClient(cfg.BackendTimeout))
	botService := bot.New(botAPI, fileService, application.NewSession, zl,
		bot.WithIdleTimeout(cfg.SessionIdleTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botAPI.GetUpdatesChan(u)

	zl.Info("bot started", zap.String("username", botAPI.Self.UserName))

	botService.Start(ctx, updates)
	botAPI.StopReceivingUpdates()
}
