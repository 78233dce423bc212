package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/finstd/standard2json/internal/config"
	"github.com/finstd/standard2json/internal/extract"
	"github.com/finstd/standard2json/internal/output"
	"github.com/finstd/standard2json/internal/pipeline"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// Exit codes of the conversion contract.
const (
	exitPassed   = 0 // selected candidate passed QA
	exitQAFailed = 1 // best candidate written but QA failed
	exitNoResult = 2 // no candidate could be produced
)

// setupLogging configures logging based on the configured level
func setupLogging(cfg *config.Config) {
	log.SetOutput(os.Stderr)
	if cfg.IsDebug() {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

// loadRuns resolves the input format and produces the positioned run set
func loadRuns(cfg *config.Config) (*extract.RunSet, error) {
	info, err := os.Stat(cfg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("cannot access input file: %w", err)
	}
	if info.Size() > cfg.MaxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d bytes", cfg.MaxFileSize)
	}

	if cfg.ResolveFormat() == config.FormatRuns {
		return extract.LoadRunSet(cfg.InputPath)
	}
	return extract.NewPDFExtractor(cfg.InputPath).Extract()
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	// Load configuration from flags first
	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		os.Exit(exitNoResult)
	}

	setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	runs, err := loadRuns(cfg)
	if err != nil {
		log.Printf("Failed to load input: %v", err)
		os.Exit(exitNoResult)
	}

	standardID := cfg.StandardID
	if standardID == "" {
		standardID = extract.StandardIDFromPath(cfg.InputPath)
	}

	selector := pipeline.NewSelector(pipeline.DefaultVariants())
	best, candidates, err := selector.Run(context.Background(), runs, standardID)
	if err != nil {
		log.Printf("Conversion failed: %v", err)
		for _, candidate := range candidates {
			if candidate.Err != nil {
				log.Printf("  variant %s: %v", candidate.Variant.Name, candidate.Err)
			}
		}
		os.Exit(exitNoResult)
	}

	if cfg.IsDebug() {
		for _, candidate := range candidates {
			if candidate.Err != nil {
				log.Printf("variant %s: excluded: %v", candidate.Variant.Name, candidate.Err)
				continue
			}
			log.Printf("variant %s: score=%.3f issues=%d",
				candidate.Variant.Name, candidate.Report.OverallScore, candidate.Report.IssueCount())
		}
	}

	docPath, qaPath, err := output.NewWriter(cfg.OutputDir).Write(best.Document, best.Report)
	if err != nil {
		log.Printf("Failed to write output: %v", err)
		os.Exit(exitNoResult)
	}

	log.Printf("Selected variant %s (score %.3f), wrote %s and %s",
		best.Variant.Name, best.Report.OverallScore, docPath, qaPath)

	if !best.Report.Passed {
		log.Printf("QA gate failed: %d issues recorded", best.Report.IssueCount())
		os.Exit(exitQAFailed)
	}
	os.Exit(exitPassed)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("standard2json\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
