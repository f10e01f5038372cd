package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/joripage/matching-engine/config"
	"github.com/joripage/matching-engine/pkg/api"
	"github.com/joripage/matching-engine/pkg/exchange"
	"github.com/joripage/matching-engine/pkg/fixgateway"
	redis_wrapper "github.com/joripage/matching-engine/pkg/infra/redis"
	"github.com/joripage/matching-engine/pkg/logging"
	"github.com/joripage/matching-engine/pkg/marketdata"
	"github.com/joripage/matching-engine/pkg/tradebus"
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

	logger := logging.New(cfg.Logging).With(zap.String("service", cfg.ServiceName))
	logger.SetDefault()
	defer logger.Sync() // nolint

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	x := exchange.New(exchange.Config{
		BaseAsset:  cfg.Instrument.Ticker,
		QuoteAsset: cfg.Instrument.QuoteAsset,
		Accounts:   seedAccounts(cfg),
		Rules:      riskRules(cfg),
		Logger:     logger,
	})

	if len(cfg.Kafka.Brokers) > 0 {
		producer := tradebus.NewProducer(tradebus.ProducerConfig{
			Brokers: cfg.Kafka.Brokers,
			Async:   true,
		})
		defer producer.Close() // nolint
		x.RegisterTradeSink(tradebus.NewPublisher(producer, cfg.Kafka.Topic))
		logger.Info(ctx, "publishing trades to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	if cfg.Redis != nil && cfg.Redis.ConnectionURL != "" {
		client, err := redis_wrapper.InitRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal(ctx, "init redis failed", zap.Error(err))
		}
		defer client.Close() // nolint
		cache := marketdata.NewCache(client, cfg.Redis.KeyPrefix)
		x.RegisterTradeSink(cache)
		x.RegisterDepthSink(cache)
	}

	if cfg.Fix.Enabled {
		gw := fixgateway.NewGateway(fixgateway.Config{
			SettingsFile: cfg.Fix.SettingsFile,
			Ticker:       x.Ticker(),
			App: fixgateway.AppConfig{
				EnableShardQueue: cfg.Fix.ShardCount > 0,
				EnableQueue:      cfg.Fix.ShardCount == 0,
				NumShards:        cfg.Fix.ShardCount,
				QueueSize:        cfg.Fix.ShardSize,
			},
		}, x, logger)
		if err := gw.Start(); err != nil {
			logger.Fatal(ctx, "start fix gateway failed", zap.Error(err))
		}
		defer gw.Stop()
		logger.Info(ctx, "fix gateway started", zap.String("settings", cfg.Fix.SettingsFile))
	}

	srv := api.NewServer(x, api.Config{Addr: cfg.HTTP.Addr, CORSOrigins: cfg.HTTP.CORSOrigins}, logger)
	x.RegisterTradeSink(srv.Hub())
	x.RegisterDepthSink(srv.Hub())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "http shutdown", zap.Error(err))
	}
}
