// Package main is the composition root for androidctl: it wires every
// collaborator (device I/O, connection manager, app registry, model client,
// task store, blob store, step tracker, action dispatcher, emulator pool,
// event bus, session manager) and exposes them through a small net/http
// surface plus an optional one-shot CLI task run. The real front-end — the
// thing a human actually watches a task run through — lives outside this
// repository; this binary only drives the core loop and streams its events.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kandev/androidctl/internal/actiondispatcher"
	"github.com/kandev/androidctl/internal/appregistry"
	"github.com/kandev/androidctl/internal/blobstore/fs"
	"github.com/kandev/androidctl/internal/collab"
	"github.com/kandev/androidctl/internal/common/config"
	"github.com/kandev/androidctl/internal/common/logger"
	"github.com/kandev/androidctl/internal/common/tracing"
	"github.com/kandev/androidctl/internal/connmgr"
	"github.com/kandev/androidctl/internal/deviceio"
	"github.com/kandev/androidctl/internal/emulatorpool"
	"github.com/kandev/androidctl/internal/events"
	"github.com/kandev/androidctl/internal/modelclient"
	"github.com/kandev/androidctl/internal/sessionmanager"
	"github.com/kandev/androidctl/internal/sessionmanager/wsbridge"
	"github.com/kandev/androidctl/internal/steptracker"
	"github.com/kandev/androidctl/internal/taskstore/sqlite"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

func main() {
	taskFlag := flag.String("task", "", "run a single natural-language task to completion, streaming step events to stdout")
	deviceFlag := flag.String("device", "", "pin the task to this device id (default: first connected device)")
	languageFlag := flag.String("language", "en", "agent system-prompt language: en or cn")
	serveFlag := flag.Bool("serve", false, "keep the HTTP server running after -task completes (ignored without -task)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("starting androidctl")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitFromEnv(ctx)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer shutdownTracing(context.Background())

	app, cleanup, err := buildDeps(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer cleanup()

	mux := http.NewServeMux()
	registerRoutes(mux, app, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	runServer := *serveFlag || *taskFlag == ""
	if runServer {
		go func() {
			log.Info("HTTP server listening", zap.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal("HTTP server error", zap.Error(err))
			}
		}()
	}

	if *taskFlag != "" {
		acfg := cfg.Agent
		if *deviceFlag != "" {
			acfg.DeviceID = *deviceFlag
		}
		if *languageFlag != "" {
			acfg.Language = v1.Language(*languageFlag)
		}
		if err := runOneTask(ctx, app, log, *taskFlag, acfg); err != nil {
			log.Error("task run failed", zap.Error(err))
		}
		if !runServer {
			return
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down androidctl")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("androidctl stopped")
}

// deps bundles every composed collaborator the HTTP/CLI surface reaches
// into, built once by buildDeps and torn down in reverse order on shutdown.
type deps struct {
	connMgr      *connmgr.ConnectionManager
	appRegistry  *appregistry.Registry
	taskStore    *sqlite.Store
	blobStore    *fs.Store
	tracker      *steptracker.Tracker
	emulators    *emulatorpool.Pool
	eventBus     *events.ProvidedBus
	sessionMgr   *sessionmanager.Manager
	wsHub        *wsbridge.Hub
	agentDefault v1.AgentConfig
}

func buildDeps(ctx context.Context, cfg *config.Config, log *logger.Logger) (*deps, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("cleanup error", zap.Error(err))
			}
		}
	}

	deviceIO, closeIO, err := deviceio.Provide(cfg, log)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, closeIO)

	connMgr := connmgr.New(deviceIO, cfg.Agent.Language, log)

	appRegistry, err := appregistry.Provide(log)
	if err != nil {
		cleanup()
		return nil, cleanup, err
	}

	modelClient := modelclient.Provide(cfg.Model, log)

	taskStore, pool, err := sqlite.Provide(cfg.Database)
	if err != nil {
		cleanup()
		return nil, cleanup, err
	}
	closers = append(closers, pool.Close)
	closers = append(closers, taskStore.Close)

	blobStore, err := fs.Provide(cfg.BlobStore)
	if err != nil {
		cleanup()
		return nil, cleanup, err
	}

	tracker, err := steptracker.Provide(cfg.StepTracker, taskStore, blobStore, log)
	if err != nil {
		cleanup()
		return nil, cleanup, err
	}
	tracker.Start(ctx)
	closers = append(closers, tracker.Stop)

	dispatcher := actiondispatcher.Provide(deviceIO, appRegistry, collab.AutoApprove{}, collab.AutoCancelTakeover{}, log)

	emulators, err := emulatorpool.Provide(cfg.Docker, connMgr, log)
	if err != nil {
		cleanup()
		return nil, cleanup, err
	}
	closers = append(closers, emulators.Close)

	eventBus, closeBus, err := events.Provide(cfg, log)
	if err != nil {
		cleanup()
		return nil, cleanup, err
	}
	closers = append(closers, closeBus)

	sessionDeps := sessionmanager.Deps{
		ConnMgr:     connMgr,
		DeviceIO:    deviceIO,
		AppRegistry: appRegistry,
		ModelClient: modelClient,
		Dispatcher:  dispatcher,
		Tracker:     tracker,
	}
	sessionMgr := sessionmanager.Provide(cfg.Session, taskStore, sessionDeps, log)

	hub := wsbridge.NewHub(log)

	return &deps{
		connMgr:      connMgr,
		appRegistry:  appRegistry,
		taskStore:    taskStore,
		blobStore:    blobStore,
		tracker:      tracker,
		emulators:    emulators,
		eventBus:     eventBus,
		sessionMgr:   sessionMgr,
		wsHub:        hub,
		agentDefault: cfg.Agent,
	}, cleanup, nil
}
