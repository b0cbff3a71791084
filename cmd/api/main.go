package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-realtime-auctions/internal/auction"
	"github.com/ariefcatur/go-realtime-auctions/internal/authn"
	"github.com/ariefcatur/go-realtime-auctions/internal/config"
	"github.com/ariefcatur/go-realtime-auctions/internal/fanout"
	"github.com/ariefcatur/go-realtime-auctions/internal/httpx"
	kafkax "github.com/ariefcatur/go-realtime-auctions/internal/kafka"
	"github.com/ariefcatur/go-realtime-auctions/internal/notify"
	"github.com/ariefcatur/go-realtime-auctions/internal/obs"
	"github.com/ariefcatur/go-realtime-auctions/internal/orders"
	"github.com/ariefcatur/go-realtime-auctions/internal/postgres"
	"github.com/ariefcatur/go-realtime-auctions/internal/redisx"
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

	if cfg.MigrateOnStart {
		if err := migrate(ctx, cfg.PostgresDSN); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	broker, closeBroker, err := newBroker(cfg, rdb)
	if err != nil {
		log.Fatalf("fanout broker: %v", err)
	}
	defer closeBroker()

	hub := fanout.NewHub()
	notifier := &fanout.Notifier{Broker: broker}
	verifier := authn.NewVerifier(cfg.JWTSecret)
	svc := auction.NewService(&auction.Repo{DB: db}, notifier)

	router := httpx.NewRouter(httpx.Deps{
		Auctions:   svc,
		Verifier:   verifier,
		BidLimiter: httpx.NewRateLimiter(cfg.BidRatePerSecond, cfg.BidRateBurst),
		DB:         db,
		WS:         &fanout.Handler{Hub: hub, Verifier: verifier},
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	settled := &notify.Service{Redis: rdb, Notifier: notifier, ServiceName: cfg.ServiceName}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroup, orders.TopicAuctionSettled, cfg.KafkaWorkers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return fanout.Relay(gctx, broker, hub)
	})
	g.Go(func() error {
		log.Printf("settlement consumer started: group=%s topic=%s workers=%d", cfg.KafkaGroup, orders.TopicAuctionSettled, cfg.KafkaWorkers)
		if err := cons.Start(gctx, settled.HandleAuctionSettled); err != nil {
			return fmt.Errorf("consumer: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("exit: %v", err)
	}
}

func newBroker(cfg config.Config, rdb *redis.Client) (fanout.Broker, func(), error) {
	switch cfg.FanoutBroker {
	case "nats":
		nc, err := nats.Connect(cfg.NatsURL, nats.Name(cfg.ServiceName))
		if err != nil {
			return nil, nil, err
		}
		return fanout.NewNATSBroker(nc), nc.Close, nil
	case "local":
		return fanout.NewLocal(), func() {}, nil
	default:
		return fanout.NewRedisBroker(rdb), func() {}, nil
	}
}

func migrate(ctx context.Context, dsn string) error {
	m, err := postgres.NewMigrator(ctx, dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	n, err := m.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("applied %d migration(s)", n)
	return nil
}
