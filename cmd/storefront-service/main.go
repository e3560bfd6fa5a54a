package main

import (
	"context"
	"log"
	"time"

	"github.com/doughsido/bakeshop/internal/checkout"
	"github.com/doughsido/bakeshop/internal/config"
	"github.com/doughsido/bakeshop/internal/order"
	"github.com/doughsido/bakeshop/internal/payment"
	"github.com/doughsido/bakeshop/internal/postgres"
	"github.com/doughsido/bakeshop/internal/product"
	"github.com/doughsido/bakeshop/internal/redisx"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("[storefront] postgres: %v", err)
	}
	defer pool.Close()

	rdb := redisx.New(cfg.RedisAddr)
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Fatalf("[storefront] redis: %v", err)
	}

	gateway := payment.NewPayPal(cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalSecret,
		cfg.PayPalCurrency, cfg.PayPalIntent)
	if !gateway.Ready() {
		log.Printf("[storefront] paypal credentials missing, checkout disabled until configured")
	}

	s := &storefront{
		products: product.NewPGRepo(pool),
		sessions: checkout.NewRedisStore(rdb, sessionMaxAge),
		flow: &checkout.Orchestrator{
			Gateway: gateway,
			Orders:  order.NewPGRepo(pool),
		},
		payCfg: map[string]any{
			"client_id":       cfg.PayPalClientID,
			"currency":        cfg.PayPalCurrency,
			"intent":          cfg.PayPalIntent,
			"enable_funding":  cfg.PayPalEnable,
			"disable_funding": cfg.PayPalDisable,
		},
	}

	r := newRouter(s)
	log.Printf("storefront-service listening on %s", cfg.StorefrontAddr)
	log.Fatal(r.Run(cfg.StorefrontAddr))
}
