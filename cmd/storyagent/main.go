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

	"github.com/storyagent/storyagent-go/internal/api"
	"github.com/storyagent/storyagent-go/internal/classify"
	"github.com/storyagent/storyagent-go/internal/config"
	"github.com/storyagent/storyagent-go/internal/export"
	"github.com/storyagent/storyagent-go/internal/generate"
	"github.com/storyagent/storyagent-go/internal/storage"
	"github.com/storyagent/storyagent-go/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		log.Fatalf("failed to create data directory: %v", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer store.Close()

	classifier := newClassifier(cfg)

	var watcher *classify.Watcher
	if cfg.WatchRules && cfg.RulesPath != "" {
		watcher = classify.NewWatcher(classifier, cfg.RulesPath, time.Duration(cfg.WatchDebounce)*time.Millisecond)
		if err := watcher.Start(); err != nil {
			log.Printf("rules watcher disabled: %v", err)
		} else {
			defer watcher.Stop()
		}
	}

	var (
		trackerClient tracker.Client
		orchestrator  *export.Orchestrator
	)
	if cfg.TrackerConfigured() {
		trackerClient = tracker.NewJiraClient(cfg)
		orchestrator = export.New(trackerClient, classifier, export.Options{
			Workers:            cfg.ExportWorkers,
			GroupFailurePolicy: cfg.GroupFailurePolicy,
		})
	} else {
		log.Println("tracker not configured, export endpoints disabled")
	}

	var generator *generate.Client
	if cfg.GeneratorConfigured() {
		generator, err = generate.NewClient(cfg)
		if err != nil {
			log.Fatalf("failed to create generation client: %v", err)
		}
	} else {
		log.Println("generation not configured, generate endpoint disabled")
	}

	server := api.NewServer(cfg, store, trackerClient, generator, orchestrator)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s:%d", cfg.Host, cfg.Port)
		errCh <- server.Start(cfg.Port)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}
}

// newClassifier loads rules from the configured path, falling back to the
// built-in defaults when the file is missing or unreadable.
func newClassifier(cfg *config.Config) *classify.Classifier {
	if cfg.RulesPath == "" {
		return classify.NewDefault()
	}

	rules, err := classify.LoadRules(cfg.RulesPath)
	if err != nil {
		log.Printf("failed to load classification rules, using defaults: %v", err)
		return classify.NewDefault()
	}

	log.Printf("loaded classification rules from %s", cfg.RulesPath)
	return classify.New(rules)
}
