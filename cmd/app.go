package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/apiclient"
	"github.com/frahmantamala/employee-portal/internal/core/events"
	"github.com/frahmantamala/employee-portal/internal/employee"
	"github.com/frahmantamala/employee-portal/internal/order"
	"github.com/frahmantamala/employee-portal/internal/product"
	"github.com/frahmantamala/employee-portal/internal/session"
	"github.com/frahmantamala/employee-portal/internal/session/sqlstore"
	"github.com/frahmantamala/employee-portal/internal/wallet"
	"github.com/frahmantamala/employee-portal/pkg/logger"

	"github.com/google/uuid"
)

// Dependencies is the wired client: one session store shared by every
// service, with the caches reset on session events.
type Dependencies struct {
	Config    *internal.Config
	Logger    *slog.Logger
	DB        *sqlstore.DB
	Client    *apiclient.Client
	Bus       *events.EventBus
	Sessions  *session.Store
	Employees *employee.Service
	Products  *product.Service
	Orders    *order.Service
	Wallet    *wallet.Service
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	log := logger.LoggerWrapper()

	db, err := sqlstore.Open(ctx, config.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	client := apiclient.NewClient(apiclient.Config{
		Endpoint: config.API.Endpoint(),
		Timeout:  config.API.Timeout,
		Headers:  config.API.Headers,
	}, log)

	bus := events.NewEventBus(log)
	sessions := session.NewStore(client, sqlstore.NewRepository(db.Gorm), session.NewSealer(config.Storage.Passphrase), bus, log)
	client.SetTokenSource(sessions)

	employees := employee.NewService(client, log)
	employees.RegisterEventHandlers(bus)
	products := product.NewService(client, log)
	products.RegisterEventHandlers(bus)
	walletService := wallet.NewService(client, sessions, log)
	walletService.RegisterEventHandlers(bus)

	deps := &Dependencies{
		Config:    config,
		Logger:    log,
		DB:        db,
		Client:    client,
		Bus:       bus,
		Sessions:  sessions,
		Employees: employees,
		Products:  products,
		Orders:    order.NewService(products, sessions, log),
		Wallet:    walletService,
	}

	if _, err := sessions.Restore(ctx); err != nil {
		deps.Close()
		return nil, err
	}
	return deps, nil
}

func (d *Dependencies) Close() {
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("storage close error", "error", err)
	}
}

// withDeps runs fn against freshly wired dependencies.
func withDeps(ctx context.Context, fn func(ctx context.Context, deps *Dependencies) error) error {
	deps, err := initializeDependencies(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	traceID := uuid.NewString()
	ctx = internal.ContextWithTraceID(ctx, traceID)
	ctx = logger.With(logger.WithLogger(ctx, deps.Logger), "traceID", traceID)

	return fn(ctx, deps)
}
