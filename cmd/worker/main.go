package main

import (
	"context"
	"encoding/json"
	"flag"
	"os/signal"
	"syscall"

	"github.com/joripage/matching-engine/config"
	postgres_wrapper "github.com/joripage/matching-engine/pkg/infra/postgres"
	"github.com/joripage/matching-engine/pkg/tradebus"
	"github.com/joripage/matching-engine/pkg/tradestore"
	"go.uber.org/zap"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.TradeDB == nil {
		zap.S().Fatal("trade_db is not configured")
	}
	db, err := postgres_wrapper.InitPostgresWithBackoff(cfg.TradeDB)
	if err != nil {
		zap.S().Fatalf("init db fail with err: %v", err)
	}

	cg := tradebus.NewConsumerGroup(tradebus.ConsumerConfig{
		Brokers:    cfg.Kafka.Brokers,
		GroupID:    cfg.Kafka.GroupID,
		Topic:      cfg.Kafka.Topic,
		MaxRetries: 5,
		DLQTopic:   cfg.Kafka.Topic + ".dlq",
	})
	defer cg.Close() // nolint

	w := tradestore.NewWorker(tradestore.NewRepo(db))
	zap.S().Infof("consuming %s as %s", cfg.Kafka.Topic, cfg.Kafka.GroupID)
	if err := w.StartConsumer(ctx, cg); err != nil && ctx.Err() == nil {
		zap.S().Errorf("consumer stopped: %v", err)
	}
}
