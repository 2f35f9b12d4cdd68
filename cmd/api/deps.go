package main

import (
	"log"

	simplefinsync "finsync/internal/domain/simplefin"
	"finsync/internal/infrastructure/postgres"
	sfclient "finsync/internal/infrastructure/simplefin"
	httphandlers "finsync/internal/interfaces/http"
	"finsync/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	SyncHandler    *httphandlers.SyncHandler
	AccountHandler *httphandlers.AccountHandler

	// Sync engine (for the scheduler)
	SyncService *simplefinsync.SyncService
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	if err := postgres.RunMigrations(db, cfg.Database.MigrationsPath); err != nil {
		db.Close()
		return nil, err
	}

	// Repositories for the read endpoints
	accountRepo := postgres.NewAccountRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	balanceRepo := postgres.NewBalanceRepository(db)

	// SimpleFIN client and sync engine. A malformed access URL fails
	// startup here, before anything else runs.
	client, err := sfclient.NewClient(cfg.Simplefin.AccessURL)
	if err != nil {
		db.Close()
		return nil, err
	}
	syncService := simplefinsync.NewSyncService(client, postgres.NewSyncStore(db))

	return &Dependencies{
		DB:             db,
		SyncHandler:    httphandlers.NewSyncHandler(syncService),
		AccountHandler: httphandlers.NewAccountHandler(accountRepo, transactionRepo, balanceRepo),
		SyncService:    syncService,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
