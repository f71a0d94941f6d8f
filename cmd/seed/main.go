package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-reconciliation/internal/config"
	"ms-reconciliation/internal/models"
	"ms-reconciliation/internal/platform/localstore"
)

// Seeds the local payment store with a payment-ready aggregate so local
// webhook calls have something to reconcile against.
func main() {
	merchantReference := flag.String("merchant-reference", "M1", "key the seeded payment is created under")
	reset := flag.Bool("reset", false, "drop and recreate the payment tables first")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, using environment variables")
	}
	cfg := config.Load()

	ctx := context.Background()
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)

	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqldb.Close()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	store := localstore.NewStore(db, nil)

	if *reset {
		log.Println("Resetting payment tables...")
		if err := store.ResetSchema(ctx); err != nil {
			log.Fatalf("Failed to reset schema: %v", err)
		}
	}

	payment, err := store.CreatePayment(ctx, &models.Payment{
		Key: *merchantReference,
		Custom: &models.CustomFields{Fields: map[string]interface{}{
			models.FieldMakePaymentRequest:  `{"reference":"` + *merchantReference + `"}`,
			models.FieldMakePaymentResponse: `{"resultCode":"Pending"}`,
		}},
	})
	if err != nil {
		log.Fatalf("Failed to seed payment: %v", err)
	}

	log.Printf("Seeded payment-ready aggregate %s with key %q at version %d", payment.ID, payment.Key, payment.Version)
}
