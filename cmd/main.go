package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "kiln_controller/docs"
	"kiln_controller/internal/config"
	"kiln_controller/internal/handlers"
	"kiln_controller/internal/hardware"
	"kiln_controller/internal/history"
	"kiln_controller/internal/kiln"
	"kiln_controller/internal/logger"
	"kiln_controller/internal/metrics"
	"kiln_controller/internal/mqtt"
	"kiln_controller/internal/repository"
	"kiln_controller/internal/repository/db"
	"kiln_controller/internal/server"
	"kiln_controller/internal/service"
)

const shutdownTimeout = 10 * time.Second

// @title        Kiln Controller API
// @version      1.0
// @description  Firing control, status and event log for an electric kiln.
// @BasePath     /
func main() {
	// load configs/config.yml and KILN_* overrides
	cfg, err := config.Load()
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.Log.Level)

	// open DB
	sqlDB, err := openDB(cfg.DB.Path, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()
	repos := repository.NewRepository(sqlDB)

	// hardware
	kit, err := hardware.Open(cfg.Hardware, cfg.Power, cfg.Power.PulseBuffer)
	if err != nil {
		log.Fatalw("failed to open hardware", "err", err, "mode", cfg.Hardware.Mode)
	}
	defer func() {
		if cerr := kit.Close(); cerr != nil {
			log.Errorw("failed to close hardware", "err", cerr)
		}
	}()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if kit.Sim != nil {
		log.Infow("running with simulated hardware")
		go kit.Sim.Run(ctx, hardware.DefaultSimTick)
	}

	// notification sinks
	recorder := metrics.New()
	hub := handlers.NewHub()
	store := openHistory(cfg.History, log.Named("history"))
	publisher := openPublisher(cfg.MQTT, log.Named("mqtt"))

	sinks := service.Sinks{
		Broadcaster: hub,
		Metrics:     recorder,
		Events:      repos.Events,
		Runs:        repos.Runs,
	}
	if store != nil {
		sinks.History = store
	}
	if publisher != nil {
		sinks.Publisher = publisher
	}
	dispatcher := service.NewDispatcher(sinks, service.DefaultQueueSize, log.Named("dispatcher"))

	// controller core
	powerCfg := service.PowerConfig(cfg.Power)
	power := kiln.NewPowerMonitor(powerCfg, dispatcher)
	ctrl := kiln.NewController(service.ControllerConfig(cfg), kit.Relay, service.OutputStrategy(cfg.Control), power, dispatcher)
	safety := kiln.NewSafetyMonitor(service.SafetyConfig(cfg), powerCfg, dispatcher)

	loop := service.NewControlLoop(ctrl, safety, kit.Sensor, kit.Pulses, repos.Runs,
		service.LoopIntervals(cfg.Intervals), log.Named("loop"))
	loop.Prime()

	resumeRun(ctx, service.NewRecovery(ctrl, repos.Runs, repos.Events, log.Named("recovery")), log)

	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(ctx)
	}()

	// wire HTTP
	var historyStore service.HistoryStore
	if store != nil {
		historyStore = store
	}
	services := service.NewService(service.Deps{
		Controller: ctrl,
		Safety:     safety,
		Repos:      repos,
		Store:      historyStore,
	})
	apiHandler := handlers.NewHandler(services, hub, recorder.Handler(), log.Named("http"))

	srv := &server.Server{}
	runHTTPServer(srv, cfg.HTTP.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
	<-loopDone
	<-dispatcherDone

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Errorw("failed to close mqtt", "err", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			log.Errorw("failed to close history", "err", err)
		}
	}
}

// openDB initializes the SQLite database using configuration.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "kiln.db")
		path = "kiln.db"
	}
	return db.InitDB(path)
}

// openHistory returns nil when history is disabled or cannot be opened.
func openHistory(cfg config.HistoryConfig, log *logger.Logger) *history.Store {
	if !cfg.Enabled {
		return nil
	}
	store, err := history.Open(history.Options{
		Path:      cfg.Path,
		InMemory:  cfg.InMemory,
		Retention: cfg.Retention,
	}, log)
	if err != nil {
		log.Errorw("history disabled", "err", err, "path", cfg.Path)
		return nil
	}
	return store
}

// openPublisher returns nil when MQTT is disabled or the broker is unreachable.
func openPublisher(cfg config.MQTTConfig, log *logger.Logger) *mqtt.RealPublisher {
	if !cfg.Enabled {
		return nil
	}
	p, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:    cfg.Broker,
		ClientID:  cfg.ClientID,
		Username:  cfg.Username,
		Password:  cfg.Password,
		TopicRoot: cfg.TopicRoot,
	}, log)
	if err != nil {
		log.Errorw("mqtt disabled", "err", err, "broker", cfg.Broker)
		return nil
	}
	return p
}

// resumeRun continues a firing interrupted by a restart.
func resumeRun(ctx context.Context, r *service.Recovery, log *logger.Logger) {
	resumed, err := r.Resume(ctx)
	switch {
	case errors.Is(err, kiln.ErrNoTemperature):
		log.Warnw("persisted firing not resumed: no temperature reading", "err", err)
	case err != nil:
		log.Errorw("persisted firing not resumed", "err", err)
	case resumed:
		log.Infow("persisted firing resumed")
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
