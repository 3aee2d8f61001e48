package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-surprise-bags/internal/config"
	"github.com/ariefcatur/go-surprise-bags/internal/events"
	kafkax "github.com/ariefcatur/go-surprise-bags/internal/kafka"
	"github.com/ariefcatur/go-surprise-bags/internal/logger"
	"github.com/ariefcatur/go-surprise-bags/internal/notify"
	"github.com/ariefcatur/go-surprise-bags/internal/redisx"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{
		Dedup:  &redisx.Dedup{RDB: rdb, Service: "notifier"},
		Mailer: notify.LogMailer{Log: log},
		Log:    log,
	}

	topics := events.AllTopics()
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, topics, cfg.NotifierWorkers, log)

	log.Info("notifier consumer started",
		zap.String("group", cfg.NotifierGroup),
		zap.Strings("topics", topics),
		zap.Int("workers", cfg.NotifierWorkers),
	)
	if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
		log.Error("consumer exit", zap.Error(err))
	}
	log.Info("notifier stopped")
}
