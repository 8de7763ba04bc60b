package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/Arpita31/alfred/internal/audit"
	"github.com/Arpita31/alfred/internal/behavior"
	"github.com/Arpita31/alfred/internal/config"
	"github.com/Arpita31/alfred/internal/gate"
	"github.com/Arpita31/alfred/internal/genclient"
	"github.com/Arpita31/alfred/internal/httpapi"
	"github.com/Arpita31/alfred/internal/intervention"
	"github.com/Arpita31/alfred/internal/notify"
	"github.com/Arpita31/alfred/internal/pipeline"
	"github.com/Arpita31/alfred/internal/schedule"
	"github.com/Arpita31/alfred/internal/signal"
	"github.com/Arpita31/alfred/internal/storage"
	"github.com/Arpita31/alfred/internal/userpref"
)

// #region main

func main() {
	cfg := config.Load()

	ctx, cancel := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	users, err := userpref.NewStore(db)
	if err != nil {
		log.Fatalf("failed to init user store: %v", err)
	}
	behaviorStore, err := behavior.NewStore(db)
	if err != nil {
		log.Fatalf("failed to init behavior store: %v", err)
	}
	interventions, err := intervention.NewStore(db)
	if err != nil {
		log.Fatalf("failed to init intervention store: %v", err)
	}
	auditLog, err := audit.NewLog(db)
	if err != nil {
		log.Fatalf("failed to init decision log: %v", err)
	}

	genConfig := genclient.DefaultConfig()
	generator, err := genclient.NewGeminiGenerator(ctx, cfg.Generation.APIKey, cfg.Generation.Model, genConfig)
	if err != nil {
		log.Fatalf("failed to init generation client: %v", err)
	}
	client := genclient.NewClient(generator, genConfig)

	evaluator := pipeline.NewEvaluator(
		users,
		behaviorStore,
		interventions,
		client,
		signal.NewDetector(signal.DefaultDetectorConfig()),
		gate.NewGate(),
		auditLog,
		pipeline.DefaultConfig(),
	)

	var notifier schedule.Notifier
	if cfg.Telegram.BotToken != "" {
		notifier = notify.NewTelegram(cfg.Telegram.BotToken)
	} else {
		log.Println("[AGENT] telegram token not set, delivery disabled")
	}

	runner := schedule.NewRunner(users, interventions, evaluator, notifier,
		cfg.Scheduler.Interval(), cfg.Scheduler.Parallelism, nil)
	runner.Start(ctx)
	defer runner.Stop()

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: httpapi.New(evaluator, interventions).Handler(),
	}

	go func() {
		log.Printf("[AGENT] listening on %s (db=%s, sweep every %s)",
			cfg.Server.Addr, cfg.Database.Path, cfg.Scheduler.Interval())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[AGENT] shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[AGENT] shutdown error: %v", err)
		os.Exit(1)
	}
}

// #endregion main
