package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/rss25sb/app/api"
	"github.com/lysyi3m/rss25sb/app/cfg"
	"github.com/lysyi3m/rss25sb/app/convert"
	"github.com/lysyi3m/rss25sb/app/database"
	"github.com/lysyi3m/rss25sb/app/feed"
	"github.com/lysyi3m/rss25sb/app/ingest"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// --help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting rss25SB", "version", appCfg.Version, "port", appCfg.Port, "db", appCfg.DBPath)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	schema, err := feed.LoadSchema(appCfg.SchemaFile)
	if err != nil {
		slog.Error("Failed to load rss25 schema", "file", appCfg.SchemaFile, "error", err)
		os.Exit(1)
	}

	itemRepo := database.NewItemRepository(db)

	routes := []convert.Route{
		{Name: "lemonde", Match: convert.IsLeMonde, Converter: convert.NewLeMonde()},
	}
	if appCfg.AcceptForeignFeeds {
		routes = append(routes, convert.Route{
			Name:      "generic",
			Match:     convert.IsForeignFeed,
			Converter: convert.NewGeneric(appCfg.PublicURL()),
		})
	}
	selector := convert.NewSelector(routes...)
	slog.Info("Converters registered", "routes", selector.Routes())

	if appCfg.SeedDemo {
		if _, err := ingest.SeedDemo(context.Background(), itemRepo, appCfg.PublicURL()); err != nil {
			slog.Error("Failed to seed demo data", "error", err)
		}
	}

	ingester := ingest.NewIngester(feed.NewParser(schema), selector, itemRepo)
	handler := api.NewHandler(itemRepo, ingester, feed.NewGenerator(), appCfg)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "url", appCfg.PublicURL())
		for _, op := range api.Operations {
			slog.Debug("Route", "method", op.Method, "path", op.Path)
		}

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("rss25SB shutdown complete")
}
