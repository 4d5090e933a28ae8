package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edusignal/edusignal/internal/app"
	"github.com/edusignal/edusignal/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Could not bring up the priority service: %v", err)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: application.Router(),
		// Recompute over a whole term's feedback can take a while
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	log.Printf("Feedback priority service listening on :%s", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	case sig := <-quit:
		log.Printf("Received %s, draining in-flight requests", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server forced to close: %v", err)
	}

	if err := application.Shutdown(ctx); err != nil {
		log.Printf("Cleanup error during shutdown: %v", err)
	}

	log.Println("Priority service stopped")
}
