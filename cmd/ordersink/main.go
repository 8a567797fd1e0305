package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "embed"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tigerroll/ordersink/internal/app"
	"github.com/tigerroll/ordersink/internal/support/logger"
)

// embeddedConfig embeds the application's YAML configuration file. It is the
// configuration baseline; environment variables override individual values.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// main manages startup, signal handling, and execution of the Fx container.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handling for graceful shutdown (e.g., Ctrl+C)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the run...", sig)
		cancel()
	}()

	// Get the path to the .env file from environment variables. Use ".env" as default if not set.
	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	app.RunApplication(ctx, envFilePath, embeddedConfig)
}
