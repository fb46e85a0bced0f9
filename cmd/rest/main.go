package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"coach-membership-be/internal/bootstrap"
	"coach-membership-be/internal/config"
	"coach-membership-be/internal/server"
	"coach-membership-be/internal/tracer"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		log.Panicf("Unable to bootstrap application: %v", err)
	}

	// 3. Start Background Services (bus consumer + reconciliation scheduler)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := container.Start(ctx); err != nil {
		log.Panicf("Unable to start background services: %v", err)
	}

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// 6. Wait for shutdown signal, then drain in order: HTTP first so no new
	// work arrives, then the scheduler and bus.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	if err := srv.Shutdown(); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	cancel()
	container.Shutdown()
	log.Println("Shutdown complete")
}
