package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lemon-codes/netradio/internal/backend"
	"github.com/lemon-codes/netradio/internal/catalog"
	"github.com/lemon-codes/netradio/internal/config"
	"github.com/lemon-codes/netradio/internal/events"
	"github.com/lemon-codes/netradio/internal/models"
	"github.com/lemon-codes/netradio/internal/player"
	"github.com/lemon-codes/netradio/internal/server"
	"github.com/lemon-codes/netradio/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "netradio ", log.LstdFlags|log.Lmsgprefix)

	dataDir, err := config.ResolveDataDir()
	if err != nil {
		logger.Fatalf("resolve data dir: %v", err)
	}

	backendKind, err := config.StoreBackend()
	if err != nil {
		logger.Fatalf("resolve store backend: %v", err)
	}

	var stationStore store.StationStore
	var stationsFile string
	switch backendKind {
	case config.StoreSQLite:
		dbStore, err := store.OpenSQLite(config.DatabaseFile(dataDir))
		if err != nil {
			logger.Fatalf("open station database: %v", err)
		}
		defer func() {
			if err := dbStore.Close(); err != nil {
				logger.Printf("error closing station database: %v", err)
			}
		}()
		stationStore = dbStore
	default:
		csvStore := store.NewCSV(config.StationsFile(dataDir))
		stationsFile = csvStore.Path()
		stationStore = csvStore
	}

	cat := catalog.New(stationStore, logger)
	bus := events.NewBus(logger)
	session := player.NewSession(cat, backend.DefaultFactory(logger), bus, logger)
	radio := player.NewRadio(cat, session, bus, logger)

	settings, err := config.LoadSettings(dataDir)
	if err != nil {
		logger.Printf("settings load failed, using defaults: %v", err)
		settings = config.DefaultSettings()
	}
	if err := radio.SetVolume(settings.Volume); err != nil {
		logger.Printf("restore volume: %v", err)
	}
	if settings.LastStationID >= 0 {
		if err := radio.SelectStation(settings.LastStationID); err != nil {
			logger.Printf("restore last station %d: %v", settings.LastStationID, err)
		}
	}

	// Pick up stations-file edits made outside the process.
	if stationsFile != "" {
		watcher, err := store.NewWatcher(stationsFile, config.RefreshDebounce(), radio.ReloadStations, logger)
		if err != nil {
			logger.Printf("stations watcher unavailable: %v", err)
		} else {
			defer func() {
				if err := watcher.Close(); err != nil {
					logger.Printf("error closing stations watcher: %v", err)
				}
			}()
		}
	}

	bus.Subscribe(events.NewDispatch().
		On(models.PlaybackStarted, func() {
			if st, ok := radio.CurrentStation(); ok {
				logger.Printf("playing %s (%s)", st.Name, st.URI)
			}
		}).
		On(models.PlaybackStopped, func() {
			logger.Printf("playback stopped")
		}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listenAddr := config.ListenAddr()
	if listenAddr != "-" {
		if err := config.ValidateListenAddr(listenAddr); err != nil {
			logger.Fatalf("invalid listen address %q: %v", listenAddr, err)
		}

		httpServer := &http.Server{
			Addr:              listenAddr,
			Handler:           server.New(radio, logger),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("graceful shutdown error: %v", err)
			}
		}()

		logger.Printf("listening on %s (data directory: %s)", listenAddr, dataDir)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server error: %v", err)
		}
	} else {
		logger.Printf("control API disabled (data directory: %s)", dataDir)
		<-ctx.Done()
	}

	settings.Volume = radio.Volume()
	settings.LastStationID = -1
	if st, ok := radio.CurrentStation(); ok {
		settings.LastStationID = st.ID
	}
	if err := config.SaveSettings(dataDir, settings); err != nil {
		logger.Printf("error saving settings: %v", err)
	}

	if err := radio.Shutdown(); err != nil {
		logger.Printf("error shutting down player: %v", err)
	}
	logger.Println("shutdown complete")
}
