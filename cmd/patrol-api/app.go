package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/takipteyim/patrolbox/internal/api/patrolapi"
	"github.com/takipteyim/patrolbox/internal/services/ingest"
)

type patrolAPIOpts struct {
	httpAddr    string
	swaggerPath string

	topic         string
	consumerGroup string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

func runPatrolAPI(ctx context.Context, opts patrolAPIOpts, api *patrolapi.API, svc *ingest.Service, consumer kafkaConsumer) error {
	if opts.swaggerPath == "" {
		return fmt.Errorf("swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
	}

	httpLis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}

	if opts.onListen != nil {
		opts.onListen(httpLis.Addr().String())
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runHTTPServer(ctx, httpLis, api, opts.swaggerPath)
	}()

	go runPingConsumer(ctx, opts, svc, consumer)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	}
}

func runHTTPServer(ctx context.Context, lis net.Listener, api *patrolapi.API, swaggerPath string) error {
	r := chi.NewRouter()
	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, swaggerPath)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger.json"),
	))
	r.Mount("/", api.Router())

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	return srv.Serve(lis)
}

// runPingConsumer feeds bus pings from Kafka into the ingest service. Pings
// that cannot be parsed or ingested are logged and skipped so one bad message
// never wedges the partition; the consume loop itself is restarted with a
// short backoff after broker errors.
func runPingConsumer(ctx context.Context, opts patrolAPIOpts, svc *ingest.Service, consumer kafkaConsumer) {
	slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
	for {
		err := consumer.Consume(ctx, func(_ []byte, value []byte) error {
			p, err := ingest.ParseBusPing(string(value))
			if err != nil {
				slog.Warn("skipping malformed bus ping", "err", err, "raw", string(value))
				return nil
			}
			if p.Status != "0" {
				return nil
			}
			if _, err := svc.Ingest(ctx, p); err != nil {
				slog.Error("bus ping ingest failed", "err", err, "device_code", p.DeviceCode)
				return nil
			}
			return nil
		})
		if ctx.Err() != nil {
			return
		}
		slog.Error("kafka consume failed, restarting", "err", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(1 * time.Second):
		}
	}
}
