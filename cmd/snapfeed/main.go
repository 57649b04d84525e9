// Command snapfeed runs the client state container and its local surface.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snapfeed/internal/bootstrap"
	"snapfeed/internal/config"
	"snapfeed/internal/observability"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level := "info"
	if !cfg.IsProduction() {
		level = "debug"
	}
	observability.SetGlobalLogger(observability.NewLogger(os.Stdout, level))

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "snapfeed",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   1.0,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create runtime: %v", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, cfg.GatewayTimeout())
	rt.Start(startCtx)
	cancel()

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := rt.Shutdown(ctx); err != nil {
			log.Printf("Runtime shutdown error: %v", err)
		}
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	log.Printf("snapfeed listening on port %s (storage: %s, backend: %s)", cfg.Port, rt.Driver(), cfg.APIURL)
	if err := rt.Server.Start(); err != nil {
		log.Fatal(err)
	}
	// Listen returns as soon as shutdown begins; wait for the final flush.
	<-stopped
}
