package main

import (
	"context"
	"log"
	"time"

	"github.com/doughsido/bakeshop/internal/auth"
	"github.com/doughsido/bakeshop/internal/config"
	"github.com/doughsido/bakeshop/internal/order"
	"github.com/doughsido/bakeshop/internal/postgres"
	"github.com/doughsido/bakeshop/internal/product"
	"github.com/doughsido/bakeshop/internal/redisx"
	"github.com/doughsido/bakeshop/internal/storage"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("[admin] postgres: %v", err)
	}
	defer pool.Close()

	rdb := redisx.New(cfg.RedisAddr)
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Fatalf("[admin] redis: %v", err)
	}

	gate, err := auth.NewAdmin(cfg.AdminUsername, cfg.AdminPassword, rdb)
	if err != nil {
		log.Fatalf("[admin] auth: %v", err)
	}
	if cfg.AdminPassword == "" {
		log.Printf("[admin] ADMIN_PASSWORD not set, login disabled")
	}

	a := &admin{
		auth:     gate,
		products: product.NewPGRepo(pool),
		orders:   order.NewPGRepo(pool),
		images:   storage.NewHTTPStore(cfg.StorageBaseURL, cfg.StorageBucket, cfg.StorageToken),
	}

	r := newRouter(a)
	log.Printf("admin-service listening on %s", cfg.AdminAddr)
	log.Fatal(r.Run(cfg.AdminAddr))
}
