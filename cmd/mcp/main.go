package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/vat-compliance-checker/internal/adapters/mcp"
	"github.com/kirillkom/vat-compliance-checker/internal/bootstrap"
	"github.com/kirillkom/vat-compliance-checker/internal/config"
	"github.com/kirillkom/vat-compliance-checker/internal/observability/logging"
)

const (
	serviceName = "vat-mcp"
	version     = "1.0.0"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, serviceName, cfg.LogLevel))

	app, err := bootstrap.New(context.Background(), cfg, bootstrap.Options{Service: serviceName})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	s := mcpadapter.NewServer(serviceName, version, mcpadapter.NewHandlers(app.Validator, app.Checker))
	if err := server.ServeStdio(s); err != nil {
		slog.Error("mcp_serve_failed", "error", err)
		os.Exit(1)
	}
}
