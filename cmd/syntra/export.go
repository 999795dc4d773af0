package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rao305/Syntra.ai-sub006/internal/config"
	"github.com/rao305/Syntra.ai-sub006/internal/store"
	"github.com/rao305/Syntra.ai-sub006/internal/transcript"
)

func runExport(args []string) error {
	var outputPath string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-f":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -f")
			}
			i++
			outputPath = args[i]
		}
	}

	if outputPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: syntra export -f <output.tar.zst>\n")
		return fmt.Errorf("missing -f flag")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	count, err := transcript.Export(db, f)
	if err != nil {
		return fmt.Errorf("export transcripts: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}

	info, _ := os.Stat(outputPath)
	size := int64(0)
	if info != nil {
		size = info.Size()
	}

	fmt.Printf("Export complete: %d transcripts, %s\n", count, transcript.FormatSize(size))
	return nil
}

func runImport(args []string) error {
	var inputPath string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-f":
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -f")
			}
			i++
			inputPath = args[i]
		}
	}

	if inputPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: syntra import -f <archive.tar.zst>\n")
		return fmt.Errorf("missing -f flag")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	transcripts, err := transcript.ReadArchive(f)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}

	imported := 0
	for runID, tr := range transcripts {
		payload, err := json.Marshal(tr)
		if err != nil {
			return fmt.Errorf("encode transcript %s: %w", runID, err)
		}
		if err := db.SaveTranscript(runID, payload); err != nil {
			return fmt.Errorf("save transcript %s: %w", runID, err)
		}
		imported++
	}

	fmt.Printf("Import complete: %d transcripts\n", imported)
	return nil
}
