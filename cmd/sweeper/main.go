package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-realtime-auctions/internal/auction"
	"github.com/ariefcatur/go-realtime-auctions/internal/config"
	kafkax "github.com/ariefcatur/go-realtime-auctions/internal/kafka"
	"github.com/ariefcatur/go-realtime-auctions/internal/notify"
	"github.com/ariefcatur/go-realtime-auctions/internal/obs"
	"github.com/ariefcatur/go-realtime-auctions/internal/orders"
	"github.com/ariefcatur/go-realtime-auctions/internal/postgres"
	"github.com/ariefcatur/go-realtime-auctions/internal/redisx"
	"github.com/ariefcatur/go-realtime-auctions/internal/scheduler"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	obs.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producers: settlement summary & orders (two topics)
	pSettled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicAuctionSettled, 1024)
	pSettled.Start(ctx)
	pOrders := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pOrders.Start(ctx)

	svc := auction.NewService(&auction.Repo{DB: db}, nil)
	events := &notify.SettlementPublisher{
		Settled:     pSettled,
		Orders:      pOrders,
		ServiceName: cfg.ServiceName + "-sweeper",
	}

	jobs := []scheduler.Job{
		{
			Name:     "activation",
			Interval: cfg.ActivationInterval,
			Run: func(ctx context.Context) error {
				_, err := svc.ActivateDue(ctx, time.Now().UTC())
				return err
			},
		},
		{
			Name:     "settlement",
			Interval: cfg.SettlementInterval,
			Run: func(ctx context.Context) error {
				s, err := svc.SettleDue(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				events.Publish(s)
				return nil
			},
		},
	}

	// metrics only; the sweeper serves no API
	metrics := &http.Server{Addr: cfg.MetricsAddr, Handler: obs.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics listen: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(j scheduler.Job) {
			defer wg.Done()
			scheduler.Every(ctx, scheduler.Locked(rdb, cfg.SweepLockTTL, j))
		}(job)
	}

	<-ctx.Done()
	log.Println("shutting down sweeper...")
	wg.Wait()

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metrics.Shutdown(sctx)

	pSettled.Close()
	pOrders.Close()
	pSettled.WaitClosed()
	pOrders.WaitClosed()
}
