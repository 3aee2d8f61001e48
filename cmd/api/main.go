package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-surprise-bags/internal/config"
	"github.com/ariefcatur/go-surprise-bags/internal/events"
	"github.com/ariefcatur/go-surprise-bags/internal/httpx"
	kafkax "github.com/ariefcatur/go-surprise-bags/internal/kafka"
	"github.com/ariefcatur/go-surprise-bags/internal/logger"
	"github.com/ariefcatur/go-surprise-bags/internal/memstore"
	"github.com/ariefcatur/go-surprise-bags/internal/postgres"
	"github.com/ariefcatur/go-surprise-bags/internal/redisx"
	"github.com/ariefcatur/go-surprise-bags/internal/reservation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := &httpx.OrdersHandler{Log: log}
	var (
		store reservation.Store
		sink  reservation.EventSink
		prod  *kafkax.Producer
	)

	switch cfg.StoreDriver {
	case "memory":
		// local runs: no redis, no kafka
		store = demoStore(cfg.LockTimeout)
		log.Warn("using in-memory store, data is lost on exit")
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, 16)
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		if cfg.Migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				log.Fatal("db migrate", zap.Error(err))
			}
		}
		store = &postgres.Store{DB: db, LockTimeout: cfg.LockTimeout}

		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		handler.Cache = &redisx.OrderCache{RDB: rdb}

		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
		prod.Start(ctx)
		sink = &events.Sink{Publisher: prod, Producer: cfg.ServiceName, Log: log}
	}

	handler.Service = reservation.NewService(store, reservation.PickupCodes{}, sink, log, cfg.CancelGrace)
	router := httpx.NewRouter()
	handler.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(sctx)
		if prod != nil {
			prod.Close()      // flush queued events
			prod.WaitClosed() // drain
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("api exited", zap.Error(err))
	}
}

func demoStore(lockTimeout time.Duration) *memstore.Store {
	s := memstore.New()
	s.LockTimeout = lockTimeout

	start := time.Now().UTC().Truncate(time.Hour).Add(6 * time.Hour)
	s.PutCustomer(reservation.Customer{ID: "demo-customer", Email: "demo@example.com", Name: "Demo"})
	s.PutBag(reservation.Bag{
		ID: "demo-bakery-bag", StoreID: "demo-bakery", Name: "Bakery Surprise",
		Description: "Bread and pastries from today", OriginalValue: 15, DiscountedPrice: 4.99,
		Quantity: 3, Status: reservation.BagAvailable,
		PickupStart: start, PickupEnd: start.Add(time.Hour),
	})
	s.PutBag(reservation.Bag{
		ID: "demo-grocer-bag", StoreID: "demo-grocer", Name: "Produce Box",
		OriginalValue: 20, DiscountedPrice: 6.5,
		Quantity: 1, Status: reservation.BagAvailable,
		PickupStart: start.Add(2 * time.Hour), PickupEnd: start.Add(3 * time.Hour),
	})
	return s
}
