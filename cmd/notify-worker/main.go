package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/config"
	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/notify"
	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.Load()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	st := postgres.NewStore(pool)
	var provider notify.Provider = notify.LogProvider{}
	if cfg.NotifyWebhookURL != "" {
		provider = notify.NewWebhookProvider(cfg.NotifyWebhookURL)
	}
	w := notify.New(st, notify.Config{
		BatchSize: cfg.NotifyBatchSize,
		Provider:  provider,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go notify.Start(ctx, cfg.NotifyPollInterval, w)

	log.Printf("notify-worker polling every %s", cfg.NotifyPollInterval)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
}
