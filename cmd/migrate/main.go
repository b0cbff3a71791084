package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-realtime-auctions/internal/config"
	"github.com/ariefcatur/go-realtime-auctions/internal/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	m, err := postgres.NewMigrator(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	defer m.Close()

	n, err := m.Run(ctx)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Printf("applied %d migration(s)", n)
}
