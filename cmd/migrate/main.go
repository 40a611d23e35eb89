// Command migrate creates or updates the MySQL ledger schema and can seed
// a small demo data set for local development.
package main

import (
	"context"
	"flag"
	"os"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/cardcycle/internal/config"
	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/ledger"
	"github.com/dvloznov/cardcycle/internal/ledger/mysqlstore"
	"github.com/dvloznov/cardcycle/internal/logger"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("CONFIG_PATH"), "Path to the YAML config file (or set CONFIG_PATH env)")
		seed       = flag.Bool("seed", false, "Insert demo accounts, customers and transactions after migrating")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := mysqlstore.Open(cfg.Store.MySQL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MySQL")
	}

	if err := mysqlstore.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	log.Info().Str("db", cfg.Store.MySQL.DBName).Msg("Schema is up to date")

	if !*seed {
		return
	}

	store := mysqlstore.NewStore(db)
	if err := seedDemoData(context.Background(), store); err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}
	log.Info().Msg("Demo data seeded")
}

func seedDemoData(ctx context.Context, store ledger.Store) error {
	customer := &domain.Customer{
		CustomerID: 1,
		FirstName:  "Ada",
		LastName:   "Hopper",
		Address:    "1 Relay St",
		FICOScore:  720,
	}
	if err := store.UpsertCustomer(ctx, customer); err != nil {
		return err
	}

	account := &domain.Account{
		AccountID:     1001,
		CustomerID:    1,
		CreditLimit:   500000,
		AnnualRateBPS: 1999,
		ActiveStatus:  true,
		OpenDate:      civil.Date{Year: 2024, Month: 1, Day: 15},
		ExpiryDate:    civil.Date{Year: 2029, Month: 1, Day: 31},
	}
	if err := store.UpsertAccount(ctx, account); err != nil {
		return err
	}

	card := &domain.Card{
		CardNumber:   "4111111111111111",
		AccountID:    1001,
		CustomerID:   1,
		EmbossedName: "ADA HOPPER",
		ActiveStatus: true,
		ExpiryDate:   civil.Date{Year: 2029, Month: 1, Day: 31},
	}
	if err := store.UpsertCard(ctx, card); err != nil {
		return err
	}

	txs := []*domain.Transaction{
		{
			TransactionID: "SEED0000000000000000000001",
			AccountID:     1001,
			CardNumber:    card.CardNumber,
			Amount:        -10000,
			Type:          domain.TypePurchase,
			Description:   "Hardware store",
			Date:          civil.Date{Year: 2025, Month: 8, Day: 3},
		},
		{
			TransactionID: "SEED0000000000000000000002",
			AccountID:     1001,
			CardNumber:    card.CardNumber,
			Amount:        2500,
			Type:          domain.TypePayment,
			Description:   "Payment received",
			Date:          civil.Date{Year: 2025, Month: 8, Day: 20},
		},
	}
	for _, tx := range txs {
		if err := store.UpsertTransaction(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}
