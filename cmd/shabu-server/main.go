package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"shabu-order/internal/audit"
	"shabu-order/internal/auth"
	"shabu-order/internal/blob"
	"shabu-order/internal/config"
	"shabu-order/internal/menu"
	"shabu-order/internal/order"
	"shabu-order/internal/realtime"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres connect error: %v", err)
	}
	defer pool.Close()
	repo := menu.NewPGRepo(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("menu schema error: %v", err)
	}

	hub := realtime.NewHub()
	go hub.Run()

	// the sales log is best-effort: a missing broker disables it but never
	// stops the server
	var sink audit.Sink = audit.Discard{}
	if conn, err := amqp.Dial(cfg.AMQPURL); err != nil {
		log.Printf("[audit] amqp dial failed, sales logging disabled: %v", err)
	} else {
		defer conn.Close()
		if s, err := audit.NewAMQPSink(conn, cfg.SalesQueue); err != nil {
			log.Printf("[audit] queue setup failed, sales logging disabled: %v", err)
		} else {
			sink = s
		}
	}
	trail := audit.NewLogger(sink, repo, 64)
	go trail.Run()
	defer trail.Close()

	var images menu.ImageStore = blob.Disabled{}
	if cfg.BlobBaseURL != "" {
		images = blob.NewClient(cfg.BlobBaseURL, cfg.BlobAPIKey, cfg.BlobAPISecret, cfg.BlobFolder)
	}

	ledger := order.NewLedger(repo, hub, trail)
	menuSvc := menu.NewService(repo, images, hub, ledger)
	gate := auth.New(cfg.SessionSecret, cfg.AdminUser, cfg.AdminPassHash)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: newRouter(menuSvc, ledger, gate, hub),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()
	log.Printf("[server] listening on %s", cfg.Addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("[server] shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] shutdown error: %v", err)
	}
}
