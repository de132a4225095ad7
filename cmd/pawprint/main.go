// PawPrint daemon
// Maintains the APRS-IS feed and the station-state engine, and serves
// the dashboard API.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	charm "github.com/charmbracelet/log"

	"github.com/ki9ng/PawPrint/internal/agw"
	"github.com/ki9ng/PawPrint/internal/aprsis"
	"github.com/ki9ng/PawPrint/internal/engine"
	"github.com/ki9ng/PawPrint/internal/events"
	"github.com/ki9ng/PawPrint/internal/logmon"
	"github.com/ki9ng/PawPrint/internal/persist"
	"github.com/ki9ng/PawPrint/internal/server"
	"github.com/ki9ng/PawPrint/internal/state"
	"github.com/ki9ng/PawPrint/pkg/aprs"
	"github.com/ki9ng/PawPrint/pkg/config"
)

var (
	configPath = flag.String("config", "configs/pawprint.json", "Path to configuration file")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	log.Println("🐾 Starting PawPrint APRS engine...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Station: %s, feed: %s:%d, filter: r/%.2f/%.2f/%.0f",
		cfg.Station.Callsign, cfg.APRSIS.Host, cfg.APRSIS.Port,
		cfg.APRSIS.FilterCenterLat, cfg.APRSIS.FilterCenterLon, cfg.APRSIS.FilterRadiusKM)

	logger := charm.NewWithOptions(os.Stderr, charm.Options{
		ReportTimestamp: true,
	})
	if *verbose {
		logger.SetLevel(charm.DebugLevel)
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open data store: %v", err)
	}

	st := state.New(state.Options{
		StationMaxAgeHours: cfg.Retention.StationMaxAgeHours,
		MaxStations:        cfg.Retention.MaxStations,
		TrackMaxPoints:     cfg.Retention.TrackMaxPoints,
		MessageHistory:     cfg.Retention.MessageHistory,
		FilterRadiusKM:     cfg.APRSIS.FilterRadiusKM,
	})
	bus := events.NewBroadcaster()

	eng := engine.New(cfg, st, store, bus, logger, aprs.NewFapDecoder())
	eng.LoadAll()
	log.Printf("Restored %d stations, %d messages", st.StationCount(), st.MessageCount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := aprsis.NewSession(cfg, eng, logger)
	eng.SetSender(session.Sender())
	go session.Run(ctx)

	go agw.NewClient(cfg, st, logger).Run(ctx)
	go logmon.New(cfg.Direwolf.LogPath, cfg.Station.Callsign, eng, logger).Run(ctx)
	go eng.RunCullLoop(ctx.Done())

	srv := server.New(cfg, eng, logger)
	httpServer := srv.HTTPServer()
	go func() {
		log.Printf("🌐 API listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server stopped", "err", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", "err", err)
	}

	eng.FlushAll()
	log.Println("👋 State saved, goodbye")
}

// openStore picks the persistence backend. The file driver falls back to
// ./data when the configured directory is not writable, so a dev checkout
// works without touching /var.
func openStore(cfg *config.Config, logger *charm.Logger) (persist.Store, error) {
	if cfg.Data.Driver == "postgres" {
		return persist.NewPGStore(cfg.Data)
	}
	dir := persist.ResolveDir(cfg.Data.Dir, "data")
	logger.Info("Using file store", "dir", dir)
	return persist.NewFileStore(dir)
}
