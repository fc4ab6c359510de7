package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"checklist/internal/ingest"
	parsecsv "checklist/internal/parser/csv"
	"checklist/internal/parser/htmltable"
	"checklist/internal/storage"
	"checklist/internal/tabular"

	// register all storage backends with the catalog factory.
	_ "checklist/internal/storage/all"
)

// main is the entry point for one-shot checklist ingestion: it parses a
// single export file and replaces the (sport, set) store with its contents.
func main() {
	var (
		sport       string
		set         string
		file        string
		storageKind string
		dsn         string
	)

	flag.StringVar(&sport, "sport", "", "sport the checklist belongs to (required)")
	flag.StringVar(&set, "set", "", "set the checklist describes (required)")
	flag.StringVar(&file, "file", "", "checklist export to ingest, .csv or .html (required)")
	flag.StringVar(&storageKind, "storage", "sqlite", "storage backend: sqlite or postgres")
	flag.StringVar(&dsn, "dsn", "data", "sqlite data directory or postgres DSN")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	if sport == "" || set == "" || file == "" {
		fatalf("-sport, -set and -file are required")
	}

	f, err := os.Open(file)
	if err != nil {
		fatalf("open export: %v", err)
	}
	defer f.Close()

	var tbl *tabular.Table
	switch strings.ToLower(filepath.Ext(file)) {
	case ".html", ".htm":
		tbl, err = htmltable.ReadTable(f)
	default:
		tbl, err = parsecsv.ReadTable(f, func(line int, err error) {
			log.Printf("line %d skipped: %v", line, err)
		})
	}
	if err != nil {
		fatalf("parse export: %v", err)
	}

	ctx := context.Background()

	cat, err := storage.NewCatalog(ctx, storage.Config{Kind: storageKind, DSN: dsn})
	if err != nil {
		fatalf("storage: %v", err)
	}
	defer cat.Close()

	eng := &ingest.Engine{Catalog: cat, Logger: log.Default()}

	start := time.Now()
	res, err := eng.Ingest(ctx, sport, set, tbl)
	if err != nil {
		fatalf("ingest: %v", err)
	}

	log.Printf("store=%s cards=%d parallels=%d row_errors=%d", res.StoreName, res.Cards, res.Parallels, res.RowErrors)
	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
