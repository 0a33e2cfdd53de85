package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/takipteyim/patrolbox/config"
	"github.com/takipteyim/patrolbox/internal/api/patrolapi"
	"github.com/takipteyim/patrolbox/internal/broker/kafka"
	"github.com/takipteyim/patrolbox/internal/cache/rediscache"
	"github.com/takipteyim/patrolbox/internal/services/ingest"
	"github.com/takipteyim/patrolbox/internal/services/report"
	"github.com/takipteyim/patrolbox/internal/services/seeder"
	"github.com/takipteyim/patrolbox/internal/storage/pgpatrol"
)

type patrolAPIApp struct {
	ctx       context.Context
	cancel    context.CancelFunc
	opts      patrolAPIOpts
	api       *patrolapi.API
	ingestSvc *ingest.Service
	consumer  *kafka.Consumer
	producer  *kafka.Producer
	closeDB   func()
}

func mustBootstrapPatrolAPI() *patrolAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config, %v", err))
	}

	httpAddr := cfg.Patrol.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.Patrol.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "patrol-api"
	}
	pingTopic := cfg.Kafka.PingTopicName
	if pingTopic == "" {
		pingTopic = "device.pings"
	}
	visitTopic := cfg.Kafka.VisitCreatedTopicName
	if visitTopic == "" {
		visitTopic = "visit.created"
	}

	policy, err := ingest.ParseAttachPolicy(cfg.Patrol.AttachPolicy)
	if err != nil {
		panic(err)
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rl := rediscache.NewRateLimiter(redisAddr)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)
	consumer := kafka.NewConsumer(brokers, pingTopic, consumerGroup)

	ingestSvc := ingest.New(st, producer, ingest.Config{
		Topic:           visitTopic,
		Aliases:         cfg.Patrol.DeviceAliases,
		Policy:          policy,
		ThresholdMeters: cfg.Patrol.MatchThresholdMeters,
	})
	reportSvc := report.New(st)
	seedSvc := seeder.New(st, seeder.Config{
		WindowHours:          cfg.Patrol.SeedWindowHours,
		ViolationProbability: cfg.Patrol.SeedViolationProbability,
	}, nil)

	api := patrolapi.New(ingestSvc, reportSvc, seedSvc, rl, patrolapi.Options{
		AllowedIPs:         cfg.Patrol.IngestAllowedIPs,
		RateLimitPerMinute: int64(cfg.Patrol.IngestRateLimitPerMinute),
		ReportWindow:       time.Duration(cfg.Patrol.ReportWindowHours) * time.Hour,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &patrolAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: patrolAPIOpts{
			httpAddr:      httpAddr,
			swaggerPath:   swaggerPath,
			topic:         pingTopic,
			consumerGroup: consumerGroup,
		},
		api:       api,
		ingestSvc: ingestSvc,
		consumer:  consumer,
		producer:  producer,
		closeDB:   st.Close,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgpatrol.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgpatrol.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *patrolAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.producer != nil {
		_ = a.producer.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *patrolAPIApp) Run() error {
	return runPatrolAPI(a.ctx, a.opts, a.api, a.ingestSvc, a.consumer)
}
