package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/noah-isme/commerce-pricing/internal/currency"
	"github.com/noah-isme/commerce-pricing/internal/promotion"
	"github.com/noah-isme/commerce-pricing/internal/store"
	"github.com/noah-isme/commerce-pricing/internal/tax"
)

// Seeds a development database: the ISO currency table, a default store, a
// Wisconsin tax zone with its VAT type and a sample promotion.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedCurrencies(ctx, pool)
	seedStores(ctx, pool)
	zoneID := seedTaxZones(ctx, pool)
	seedTaxTypes(ctx, pool, zoneID)
	seedPromotions(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedCurrencies(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("Seeding Currencies...")
	repo := currency.PGRepository{Pool: pool}
	for _, c := range currency.ISO4217 {
		if err := repo.Upsert(ctx, c); err != nil {
			log.Printf("Failed to seed currency %s: %v", c.Code, err)
		}
	}
}

func seedStores(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("Seeding Stores...")
	repo := store.PGRepository{Pool: pool}
	defaultStore := store.Store{
		ID:              uuid.NewSHA1(uuid.NameSpaceURL, []byte("store/default")),
		Name:            "Default Store",
		DefaultCurrency: "USD",
		CountryCode:     "US",
		IsDefault:       true,
	}
	if err := repo.Upsert(ctx, defaultStore); err != nil {
		log.Printf("Failed to seed default store: %v", err)
	}
}

func seedTaxZones(ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	log.Println("Seeding Tax Zones...")
	repo := tax.PGZoneRepository{Pool: pool}
	zone := tax.Zone{
		ID:    uuid.NewSHA1(uuid.NameSpaceURL, []byte("tax-zone/us-wi")),
		Label: "US - Wisconsin",
		Territories: []tax.Territory{
			{CountryCode: "US", AdministrativeArea: "WI"},
		},
		Rates: []tax.Rate{
			{
				ID:      "default",
				Label:   "VAT",
				Default: true,
				Percentages: []tax.Percentage{
					{Number: "0.2"},
				},
			},
		},
	}
	if err := repo.Upsert(ctx, zone); err != nil {
		log.Printf("Failed to seed tax zone %s: %v", zone.Label, err)
	}
	return zone.ID
}

func seedTaxTypes(ctx context.Context, pool *pgxpool.Pool, zoneID uuid.UUID) {
	log.Println("Seeding Tax Types...")
	repo := tax.PGTypeRepository{Pool: pool}
	vat := tax.Type{
		ID:               uuid.NewSHA1(uuid.NameSpaceURL, []byte("tax-type/us-wi-vat")),
		Label:            "US - WI Sales Tax",
		ZoneID:           zoneID,
		DisplayInclusive: true,
		Enabled:          true,
	}
	if err := repo.Upsert(ctx, vat); err != nil {
		log.Printf("Failed to seed tax type %s: %v", vat.Label, err)
	}
}

func seedPromotions(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("Seeding Promotions...")
	repo := promotion.PGRepository{Pool: pool}
	halfOff := promotion.Promotion{
		ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte("promotion/half-off")),
		Label:     "50% off everything",
		Enabled:   true,
		Stackable: true,
		Offer: promotion.OfferDefinition{
			ID:     promotion.IDOrderItemPercentageOff,
			Config: map[string]any{"percentage": "0.5"},
		},
	}
	if err := repo.Upsert(ctx, halfOff); err != nil {
		log.Printf("Failed to seed promotion %s: %v", halfOff.Label, err)
	}
}
