package main

import (
	"fmt"

	"github.com/gratefultolord/loan_intake_bot/internal/app"
	"github.com/gratefultolord/loan_intake_bot/internal/config"
	"github.com/gratefultolord/loan_intake_bot/internal/logger"
)

func loadApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	a, err := app.New(cfg, zl)
	if err != nil {
		return nil, fmt.Errorf("cannot initialise application: %w", err)
	}

	return a, nil
}
