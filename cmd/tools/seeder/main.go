package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/noah-isme/promoquoter/internal/catalog"
	"github.com/noah-isme/promoquoter/internal/db"
	"github.com/noah-isme/promoquoter/internal/promo"
	"github.com/noah-isme/promoquoter/internal/repo"
)

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

	if err := db.RunMigrations(dbURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	stores := repo.NewStores(pool)
	products := seedProducts(ctx, stores.Products)
	seedPromotions(ctx, stores.Promotions, products)

	log.Println("Seeding completed successfully!")
}

func seedProducts(ctx context.Context, store *repo.ProductStore) map[string]catalog.Product {
	demo := []catalog.Product{
		{Name: "Wireless Mouse", Category: catalog.CategoryElectronics, Price: 2999, Stock: 120},
		{Name: "Mechanical Keyboard", Category: catalog.CategoryElectronics, Price: 8999, Stock: 60},
		{Name: "27\" Monitor", Category: catalog.CategoryElectronics, Price: 24999, Stock: 25},
		{Name: "Cotton T-Shirt", Category: catalog.CategoryFashion, Price: 1499, Stock: 200},
		{Name: "Denim Jacket", Category: catalog.CategoryFashion, Price: 5999, Stock: 80},
		{Name: "Organic Coffee Beans 1kg", Category: catalog.CategoryGrocery, Price: 1899, Stock: 150},
		{Name: "Olive Oil 500ml", Category: catalog.CategoryGrocery, Price: 1299, Stock: 90},
		{Name: "The Pragmatic Programmer", Category: catalog.CategoryBooks, Price: 3999, Stock: 40},
		{Name: "Desk Lamp", Category: catalog.CategoryHome, Price: 2599, Stock: 70},
	}

	log.Println("Seeding Products...")
	created := make(map[string]catalog.Product, len(demo))
	for _, p := range demo {
		stored, err := store.Create(ctx, p)
		if err != nil {
			log.Fatalf("Failed to insert product %q: %v", p.Name, err)
		}
		created[stored.Name] = stored
	}
	return created
}

func seedPromotions(ctx context.Context, store *repo.PromotionStore, products map[string]catalog.Product) {
	log.Println("Seeding Promotions...")

	electronics := string(catalog.CategoryElectronics)
	tenPercent := int32(1000)
	if _, err := store.Create(ctx, promo.Promotion{
		Name:       "10% off electronics",
		Kind:       promo.KindPercentOffCategory,
		Category:   &electronics,
		PercentBps: &tenPercent,
		Priority:   10,
		Active:     true,
	}); err != nil {
		log.Fatalf("Failed to insert percent promotion: %v", err)
	}

	mouse, ok := products["Wireless Mouse"]
	if !ok {
		log.Fatal("Seed product for promotion missing")
	}
	buy := int32(2)
	get := int32(1)
	if _, err := store.Create(ctx, promo.Promotion{
		Name:      "Buy 2 Get 1 Free - Wireless Mouse",
		Kind:      promo.KindBuyXGetY,
		ProductID: &mouse.ID,
		BuyQty:    &buy,
		GetQty:    &get,
		Priority:  20,
		Active:    true,
	}); err != nil {
		log.Fatalf("Failed to insert buy-x-get-y promotion: %v", err)
	}
}
