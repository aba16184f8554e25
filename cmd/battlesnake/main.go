// Command battlesnake serves the snekmax engine over the Battlesnake HTTP API.
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

	"github.com/gin-gonic/gin"

	"github.com/brensch/snekmax/api"
	"github.com/brensch/snekmax/config"
	"github.com/brensch/snekmax/logging"
	"github.com/brensch/snekmax/store"
)

func main() {
	cfg, err := config.Parse(os.Args[0], os.Args[1:], nil)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Format, cfg.Log.Level, os.Stderr)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var archive api.Archive
	var recorder *store.Recorder
	if cfg.Archive.Dir != "" {
		recorder = store.NewRecorder(cfg.Archive.Dir, cfg.Archive.FlushCount, cfg.Archive.FlushEvery, logger.With("component", "archive"))
		archive = recorder
		log.Printf("Archiving decisions to %s", cfg.Archive.Dir)
	}

	server, err := api.NewServer(cfg, archive, logger)
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	if cfg.Path != "" {
		go func() {
			reload := func() (config.Config, error) {
				return config.Parse(os.Args[0], os.Args[1:], nil)
			}
			apply := func(next config.Config) {
				if err := server.Apply(next); err != nil {
					logger.Error("config rejected", "path", cfg.Path, "error", err)
					return
				}
				logger.Info("config applied", "path", cfg.Path, "max_depth", next.Search.MaxDepth, "opponents", next.Search.Opponents)
			}
			if err := config.Watch(ctx, cfg.Path, logger, reload, apply); err != nil {
				logger.Error("config watch stopped", "error", err)
			}
		}()
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Battlesnake server listening on http://%s", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("serve: %v", err)
	}

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			log.Printf("archive close: %v", err)
		}
	}
	log.Printf("Battlesnake server stopped")
}
