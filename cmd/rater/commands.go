package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/kingrea/rating-desk/internal/corpus"
	"github.com/kingrea/rating-desk/internal/persist"
	"github.com/kingrea/rating-desk/internal/rating"
)

// handleExportCommand prints the durable artifact, or writes it to a path.
func handleExportCommand(cwd string) bool {
	if len(os.Args) < 2 || os.Args[1] != "export" {
		return false
	}
	if len(os.Args) > 3 {
		fmt.Fprintln(os.Stderr, "Usage: rater export [path]")
		os.Exit(2)
	}
	cfg := loadConfig(cwd)
	data, err := persist.New(cfg.StorePath()).Read()
	if err != nil {
		die("export: %v", err)
	}
	if len(os.Args) == 2 {
		if _, err := os.Stdout.Write(data); err != nil {
			die("export: %v", err)
		}
		return true
	}
	if err := os.WriteFile(os.Args[2], data, 0o644); err != nil {
		die("export: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Exported %s → %s\n", cfg.StorePath(), os.Args[2])
	return true
}

// handleValidateCommand checks config, corpus and the stored artifact
// without starting the UI.
func handleValidateCommand(cwd string) bool {
	if len(os.Args) < 2 || os.Args[1] != "validate" {
		return false
	}
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: rater validate")
		os.Exit(2)
	}
	cfg := loadConfig(cwd)
	docs, err := corpus.Load(cfg.DataPath(), cfg.Models())
	if err != nil {
		die("corpus: %v", err)
	}
	var store *rating.Store
	if data, err := persist.New(cfg.StorePath()).Read(); err == nil {
		if store, err = rating.Decode(data); err != nil {
			die("store: %v", err)
		}
	} else if errors.Is(err, fs.ErrNotExist) {
		store = rating.NewStore()
	} else {
		die("store: %v", err)
	}
	fmt.Printf("OK: %d document(s), %d model(s), %d labeler(s)\n", len(docs), len(cfg.Models()), len(cfg.Labelers()))
	for _, rater := range cfg.Labelers() {
		done, total := store.Progress(rater, len(docs), cfg.Models())
		fmt.Printf("- %s: %d/%d responses fully rated\n", rater, done, total)
	}
	return true
}
