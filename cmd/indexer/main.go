// indexer is the document indexing CLI: full runs, incremental updates,
// index status and collection reset.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"legal-rag-service/internal/config"
	"legal-rag-service/internal/di"
)

const (
	exitOK     = 0
	exitError  = 1
	exitSignal = 130
)

var (
	header  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
	warn    = color.New(color.FgYellow)
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitError
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := dispatch(ctx, args[0], args[1:])
	if ctx.Err() != nil {
		warn.Fprintln(os.Stderr, "interrupted")
		return exitSignal
	}
	return code
}

func dispatch(ctx context.Context, command string, args []string) int {
	switch command {
	case "index":
		return runIndex(ctx, args)
	case "incremental":
		return runIncremental(ctx, args)
	case "status":
		return runStatus(ctx, args)
	case "reset":
		return runReset(ctx, args)
	default:
		failure.Fprintf(os.Stderr, "unknown command %q\n", command)
		usage()
		return exitError
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: indexer <command> [flags]

commands:
  index        index every matching document in a directory
  incremental  index only new or changed documents
  status       show index state and vector store count
  reset        drop the collection and clear the index state`)
}

func buildContainer(ctx context.Context, configFile string) (*di.Container, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return di.NewContainer(ctx, cfg)
}

func runIndex(ctx context.Context, args []string) int {
	flags := flag.NewFlagSet("index", flag.ContinueOnError)
	configFile := flags.String("config", "", "path to YAML configuration file")
	dir := flags.String("dir", "./data/documents", "document directory")
	pattern := flags.String("pattern", "*.json", "file glob pattern")
	chunk := flags.Bool("chunk", true, "split documents into chunks")
	recursive := flags.Bool("recursive", false, "walk subdirectories")
	if err := flags.Parse(args); err != nil {
		return exitError
	}

	container, err := buildContainer(ctx, *configFile)
	if err != nil {
		failure.Fprintln(os.Stderr, err)
		return exitError
	}
	defer shutdown(container)

	header.Printf("Indexing %s (pattern %s)\n", *dir, *pattern)
	result, err := container.Indexer.IndexDirectory(ctx, *dir, *pattern, *chunk, *recursive)
	if err != nil {
		failure.Fprintf(os.Stderr, "indexing failed: %v\n", err)
		return exitError
	}
	for _, detail := range result.Details {
		if detail.Result.Success {
			success.Printf("  ✓ %s (%d chunks)\n", detail.File, detail.Result.ChunksCount)
			container.Updater.State().Add(detail.Result.DocumentID)
		} else {
			failure.Printf("  ✗ %s: %s\n", detail.File, detail.Result.Error)
		}
	}
	if err := container.Updater.State().Save(); err != nil {
		warn.Fprintf(os.Stderr, "failed to persist index state: %v\n", err)
	}

	fmt.Printf("\ntotal %d, indexed %d, failed %d\n", result.Total, result.Success, result.Failed)
	if result.Failed > 0 {
		return exitError
	}
	return exitOK
}

func runIncremental(ctx context.Context, args []string) int {
	flags := flag.NewFlagSet("incremental", flag.ContinueOnError)
	configFile := flags.String("config", "", "path to YAML configuration file")
	dir := flags.String("dir", "./data/documents", "document directory")
	pattern := flags.String("pattern", "*.json", "file glob pattern")
	force := flags.Bool("force", false, "re-index documents already in the state file")
	if err := flags.Parse(args); err != nil {
		return exitError
	}

	container, err := buildContainer(ctx, *configFile)
	if err != nil {
		failure.Fprintln(os.Stderr, err)
		return exitError
	}
	defer shutdown(container)

	header.Printf("Incremental update of %s (pattern %s)\n", *dir, *pattern)
	result, err := container.Updater.UpdateIncremental(ctx, *dir, *pattern, *force)
	if err != nil {
		failure.Fprintf(os.Stderr, "update failed: %v\n", err)
		return exitError
	}
	for _, detail := range result.Details {
		switch detail.Status {
		case "skipped":
			fmt.Printf("  - %s (skipped)\n", detail.File)
		case "failed":
			failure.Printf("  ✗ %s: %s\n", detail.File, detail.Error)
		default:
			success.Printf("  ✓ %s (%s, %d chunks)\n", detail.File, detail.Status, detail.ChunksCount)
		}
	}

	fmt.Printf("\ntotal %d: %d new, %d updated, %d skipped, %d failed\n",
		result.Total, result.New, result.Updated, result.Skipped, result.Failed)
	if result.Failed > 0 {
		return exitError
	}
	return exitOK
}

func runStatus(ctx context.Context, args []string) int {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)
	configFile := flags.String("config", "", "path to YAML configuration file")
	if err := flags.Parse(args); err != nil {
		return exitError
	}

	container, err := buildContainer(ctx, *configFile)
	if err != nil {
		failure.Fprintln(os.Stderr, err)
		return exitError
	}
	defer shutdown(container)

	status, err := container.Updater.Status(ctx)
	if err != nil {
		failure.Fprintf(os.Stderr, "failed to read status: %v\n", err)
		return exitError
	}
	health := container.IndexMonitor.Health(ctx)

	header.Println("Index status")
	fmt.Printf("  health:           %s\n", health.Status)
	fmt.Printf("  indexed documents: %d\n", status.IndexedCount)
	fmt.Printf("  vector db chunks:  %d\n", status.VectorDBCount)
	return exitOK
}

func runReset(ctx context.Context, args []string) int {
	flags := flag.NewFlagSet("reset", flag.ContinueOnError)
	configFile := flags.String("config", "", "path to YAML configuration file")
	yes := flags.Bool("yes", false, "confirm the reset")
	if err := flags.Parse(args); err != nil {
		return exitError
	}
	if !*yes {
		warn.Fprintln(os.Stderr, "reset drops every indexed chunk; re-run with -yes to confirm")
		return exitError
	}

	container, err := buildContainer(ctx, *configFile)
	if err != nil {
		failure.Fprintln(os.Stderr, err)
		return exitError
	}
	defer shutdown(container)

	if err := container.Store.Reset(ctx); err != nil {
		failure.Fprintf(os.Stderr, "reset failed: %v\n", err)
		return exitError
	}
	state := container.Updater.State()
	for _, id := range state.IDs() {
		state.Remove(id)
	}
	if err := state.Save(); err != nil {
		warn.Fprintf(os.Stderr, "failed to persist cleared index state: %v\n", err)
	}
	success.Println("collection reset")
	return exitOK
}

func shutdown(container *di.Container) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = container.Shutdown(ctx)
}
