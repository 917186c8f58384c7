// Package app wires configuration into the collaborators a session needs.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gratefultolord/loan_intake_bot/internal/backend"
	"github.com/gratefultolord/loan_intake_bot/internal/config"
	"github.com/gratefultolord/loan_intake_bot/internal/customer"
	"github.com/gratefultolord/loan_intake_bot/internal/db"
	"github.com/gratefultolord/loan_intake_bot/internal/otp"
	"github.com/gratefultolord/loan_intake_bot/internal/session"
)

type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Backend   *backend.Client
	Directory customer.Directory
	OTP       otp.Client

	database *db.DB
}

func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	client := backend.New(cfg.BackendURL, backend.NewHTTPClient(cfg.BackendTimeout), logger)

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Backend: client,
		OTP:     client,
	}

	if cfg.OTPMode == config.OTPModeLocal {
		a.OTP = otp.NewService(cfg.OTPTTL, cfg.ExposeDemoOTP)
		logger.Info("using local otp issuer", zap.Bool("expose_demo", cfg.ExposeDemoOTP))
	}

	if cfg.UseDatabase() {
		database, err := db.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("app.New: %w", err)
		}

		if err := db.ApplyMigrations(database.Conn); err != nil {
			database.Close()
			return nil, fmt.Errorf("app.New: %w", err)
		}

		a.database = database
		a.Directory = db.NewCustomerRepository(database.Conn)
	} else {
		a.Directory = customer.NewFileDirectory(cfg.CustomersFile)
	}

	return a, nil
}

// Customers returns the postgres repository when a database is configured.
func (a *App) Customers() (*db.CustomerRepository, bool) {
	repo, ok := a.Directory.(*db.CustomerRepository)
	return repo, ok
}

// NewSession loads the directory snapshot and opens a conversation.
func (a *App) NewSession(ctx context.Context) (*session.Session, error) {
	return a.NewSessionFor(ctx, "")
}

// NewSessionFor opens a conversation already bound to customerID. An empty
// id starts the onboarding flow.
func (a *App) NewSessionFor(ctx context.Context, customerID string) (*session.Session, error) {
	customers, err := a.Directory.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("app.NewSession: %w", err)
	}

	return session.New(session.Options{
		Backend:    a.Backend,
		OTP:        a.OTP,
		Customers:  customers,
		Logger:     a.Logger,
		FallbackID: a.Config.FallbackCustomerID,
		CustomerID: customerID,
	}), nil
}

func (a *App) Close() error {
	_ = a.Logger.Sync()

	if a.database != nil {
		return a.database.Close()
	}

	return nil
}
