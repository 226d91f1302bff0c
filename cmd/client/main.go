package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	httpclient "github.com/nvoisin/gymsync/internal/client/api"
	"github.com/nvoisin/gymsync/internal/client/auth"
	"github.com/nvoisin/gymsync/internal/client/cli"
	"github.com/nvoisin/gymsync/internal/client/iocli"
	"github.com/nvoisin/gymsync/internal/client/netstatus"
	"github.com/nvoisin/gymsync/internal/client/storage/boltdb"
	"github.com/nvoisin/gymsync/internal/client/sync"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "gymsync-client.db", "Path to local database")
	offline := flag.Bool("offline", false, "Work offline, queue mutations without syncing")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	stdio := iocli.NewStdio()

	args := flag.Args()
	if len(args) == 0 {
		cli.New(stdio, nil, nil).PrintUsage()
		os.Exit(1)
	}

	// По умолчанию логи движка синхронизации не засоряют вывод команд
	logOutput := io.Discard
	if *verbose {
		logOutput = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := context.Background()

	store, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close database: %v\n", err)
		}
	}()

	apiClient := httpclient.NewClient(*serverURL)
	authService := auth.NewService(apiClient, store)

	monitor := netstatus.NewSwitch(!*offline)
	engine := sync.NewEngine(apiClient, store, store, store, authService, monitor, logger)

	app := cli.New(stdio, authService, engine)

	if err := app.Run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("gymsync client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
