package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"checklist/internal/httpapi"
	"checklist/internal/metrics"
	"checklist/internal/metrics/datadog"
	"checklist/internal/storage"

	// register all storage backends with the catalog factory.
	_ "checklist/internal/storage/all"
)

// main is the entry point for the checklist service. It builds the store
// catalog, optionally initializes a metrics backend, and serves the HTTP API.
func main() {
	var (
		addr        string
		storageKind string
		dsn         string
		metricsFlg  string
		rateLimit   int
	)

	flag.StringVar(&addr, "addr", "", "listen address (overrides env CHECKLIST_ADDR)")
	flag.StringVar(&storageKind, "storage", "", "storage backend: sqlite or postgres (overrides env CHECKLIST_STORAGE)")
	flag.StringVar(&dsn, "dsn", "", "sqlite data directory or postgres DSN (overrides env CHECKLIST_DSN)")
	flag.StringVar(&metricsFlg, "metrics-backend", "", "metrics backend to use: datadog or none (overrides env METRICS_BACKEND)")
	flag.IntVar(&rateLimit, "upload-rate-limit", 30, "max upload requests per IP per minute, 0 disables")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := godotenv.Load(); err == nil {
		logger.Info(".env file loaded")
	}

	// Decide each setting: flag → env → default.
	addr = pick(addr, "CHECKLIST_ADDR", ":8080")
	storageKind = pick(storageKind, "CHECKLIST_STORAGE", "sqlite")
	dsn = pick(dsn, "CHECKLIST_DSN", "data")

	cat, err := storage.NewCatalog(context.Background(), storage.Config{Kind: storageKind, DSN: dsn})
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer cat.Close()
	logger.Infof("storage: backend=%s dsn=%s", storageKind, dsn)

	switch backendName := pick(metricsFlg, "METRICS_BACKEND", "none"); backendName {
	case "datadog":
		extraTags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))

		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			ServiceName: "checklist",
			Tags:        extraTags,
			FlushEvery:  60 * time.Second,
		})
		if err != nil {
			logger.Warnf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			logger.Infof("metrics: backend=%v tags=%v", backendName, extraTags)
			metrics.SetBackend(b)

			// Close() stops the periodic flush loop and submits one final time.
			defer func() {
				if err := b.Close(); err != nil {
					logger.Warnf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}

	case "none":
		logger.Debugf("metrics: disabled")

	default:
		logger.Warnf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	srv := httpapi.NewServer(cat, logger)
	srv.UploadRateLimit = rateLimit

	server := &http.Server{
		Addr:         addr,
		Handler:      srv.Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	logger.Infof("checklist service running at %s", server.Addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("shutdown failed: %v", err)
	}
	logger.Info("checklist service gracefully stopped")
}

func pick(flagVal, envKey, def string) string {
	if flagVal != "" {
		return flagVal
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return def
}
