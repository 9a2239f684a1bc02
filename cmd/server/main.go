package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/remitflow/remitflow-backend/internal/adapter/events"
	grpcadapter "github.com/remitflow/remitflow-backend/internal/adapter/grpc"
	"github.com/remitflow/remitflow-backend/internal/adapter/httpapi"
	"github.com/remitflow/remitflow-backend/internal/adapter/scheduler"
	"github.com/remitflow/remitflow-backend/internal/app"
	"github.com/remitflow/remitflow-backend/internal/config"
)

func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Event publisher (no-op when RabbitMQ is not configured)
	publisher := events.Connect(cfg.RabbitMQURL, cfg.EventsExchange)
	defer publisher.Close()

	// 3. Initialize the core
	core, err := app.NewCore(cfg, publisher)
	if err != nil {
		log.Fatalf("Failed to initialize remittance core: %v", err)
	}

	// Warm the rate cache so the first request does not pay for the fetch
	warmCtx, cancel := context.WithTimeout(context.Background(), cfg.RatesFetchTimeout)
	if err := core.Rates.Refresh(warmCtx); err != nil {
		log.Printf("Initial rate fetch failed, continuing with fallback rates: %v", err)
	}
	cancel()

	// 4. Scheduled jobs
	jobs := scheduler.NewScheduler(&scheduler.Jobs{
		Sessions:    core.Service,
		Rates:       core.Rates,
		WarmTimeout: cfg.RatesFetchTimeout,
	}, scheduler.Schedules{
		VaultSweep: cfg.VaultSweepSchedule,
		RateWarmup: cfg.RateWarmupSchedule,
	})
	if err := jobs.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// 5. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.UnaryInterceptor(grpcadapter.AuthInterceptor(cfg.APIToken)),
	)
	grpcadapter.RegisterRemittanceServer(grpcServer, grpcadapter.NewServer(core.Service))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.GRPCPort, err)
	}

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve gRPC server: %v", err)
		}
	}()

	// 6. Start HTTP Server
	httpServer := &http.Server{
		Addr:              cfg.HTTPPort,
		Handler:           httpapi.Routes(httpapi.NewHandlers(core.Service), cfg.APIToken),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve HTTP server: %v", err)
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, httpServer, jobs)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the servers
func waitForShutdown(grpcServer *grpclib.Server, httpServer *http.Server, jobs *scheduler.Scheduler) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal: %v. Shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Println("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Println("gRPC server stopped")

	<-jobs.Stop().Done()
	log.Println("Scheduler stopped")
}
