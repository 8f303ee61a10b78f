package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/tour360/editor/internal/config"
	"github.com/tour360/editor/internal/influx"
	"github.com/tour360/editor/internal/logging"
	"github.com/tour360/editor/internal/media"
	intOtel "github.com/tour360/editor/internal/otel"
	"github.com/tour360/editor/internal/server"
	"github.com/tour360/editor/internal/storage"
	"github.com/tour360/editor/internal/tour"
	"github.com/tour360/editor/internal/watcher"
	"github.com/tour360/editor/pkg/core"
)

const shutdownTimeout = 10 * time.Second

// tourContext feeds the open tour and current scene into every log record.
type tourContext struct {
	mu    sync.RWMutex
	name  string
	scene string
}

func (c *tourContext) update(t core.Tour) {
	c.mu.Lock()
	c.name, c.scene = t.Name, t.CurrentSceneID
	c.mu.Unlock()
}

func (c *tourContext) attrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.name == "" && c.scene == "" {
		return nil
	}
	return []slog.Attr{slog.String("tour", c.name), slog.String("scene", c.scene)}
}

// setupLogging wires file, OTel and Graylog output. The log file is nil when
// logsDir is empty and records go to stdout.
func setupLogging(lm *logging.SlogManager, started time.Time) (*intOtel.Provider, *os.File, error) {
	level := viper.GetString("logLevel")

	var logFile *os.File
	if dir := viper.GetString("logsDir"); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create logs dir: %w", err)
		}
		path := logging.LogFilePath(dir, AppName, started)
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		logFile = f
	}

	var fileWriter io.Writer
	if logFile != nil {
		fileWriter = logFile
	}

	provider, err := intOtel.New(intOtel.FromConfig(config.GetOTelConfig(), fileWriter))
	if err != nil {
		// keep going without OTel
		fmt.Fprintf(os.Stderr, "Failed to initialize OTel provider: %v\n", err)
		provider, _ = intOtel.New(intOtel.Config{})
	}

	var extra []slog.Handler
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGELFWriter(gl.Address)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Graylog output disabled: %v\n", err)
		} else {
			extra = append(extra, logging.NewGELFHandler(w, logging.ParseLevel(level)))
		}
	}

	lm.Setup(fileWriter, level, provider.LoggerProvider(), extra...)
	return provider, logFile, nil
}

func serve(configErr error) error {
	started := time.Now()

	tc := &tourContext{}
	lm := logging.NewSlogManager()
	lm.SetContextProvider(tc.attrs)

	provider, logFile, err := setupLogging(lm, started)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}
	log := lm.Logger()
	log.Info("Starting up", "version", Version, "buildDate", BuildDate)
	if configErr != nil {
		log.Warn("Failed to load config, using defaults!", "error", configErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := tour.New(
		tour.WithName(viper.GetString("tour.defaultName")),
		tour.WithLogger(log.With("component", "tour")),
	)
	tc.update(store.Snapshot())
	ctxSub := store.Subscribe(func(c tour.Change) { tc.update(c.Tour) })
	defer ctxSub.Remove()

	// storage
	storageCfg := config.GetStorageConfig()
	backend, err := openBackend(storageCfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("Failed to close storage", "error", err)
		}
	}()

	restored, err := storage.LoadTour(backend, storageCfg.Slot, store)
	switch {
	case err == nil:
		log.Info("Restored saved tour", "slot", storageCfg.Slot, "scenes", len(restored.Scenes))
	case errors.Is(err, storage.ErrSlotEmpty):
		log.Info("No saved tour, starting empty", "slot", storageCfg.Slot)
	default:
		log.Warn("Saved tour could not be restored, starting empty", "slot", storageCfg.Slot, "error", err)
	}

	if storageCfg.Autosave {
		autosave := storage.Autosave(backend, storageCfg.Slot, store, log.With("component", "autosave"))
		defer autosave.Remove()
	}

	// media
	mediaCfg := config.GetMediaConfig()
	objects, err := media.NewObjectStore(ctx, mediaCfg, log)
	var preparer *media.Preparer
	if err != nil {
		log.Error("Media store unavailable, images are used as given", "backend", mediaCfg.Backend, "error", err)
	} else {
		preparer = media.NewPreparer(mediaCfg, objects, log)
	}

	// telemetry
	events := influx.NewManager(config.GetInfluxConfig(), log)
	if err := events.Connect(ctx); err != nil {
		log.Error("Event telemetry unavailable", "error", err)
	}
	defer func() {
		if err := events.Close(); err != nil {
			log.Warn("Failed to close event telemetry", "error", err)
		}
	}()

	// watcher
	if viper.GetBool("watcher.enabled") {
		if path := watchPath(backend, storageCfg.Slot); path != "" {
			w, err := watcher.New(path, store, log)
			if err == nil {
				err = w.Start()
			}
			if err != nil {
				log.Warn("Tour file watcher disabled", "path", path, "error", err)
			} else {
				defer w.Stop()
			}
		}
	}

	srv := server.New(server.Dependencies{
		Store:      store,
		Storage:    backend,
		Slot:       storageCfg.Slot,
		Media:      preparer,
		Viewer:     config.GetViewerConfig(),
		Config:     config.GetServerConfig(),
		Logger:     log,
		EventSinks: []func(core.Event){events.Record},
	})
	defer srv.Close()

	runErr := srv.Run(ctx, config.GetServerConfig().Addr)

	// final save so a disabled autosave still keeps the last state
	if err := storage.SaveTour(backend, storageCfg.Slot, store); err != nil {
		log.Error("Final save failed", "slot", storageCfg.Slot, "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := provider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush OTel data", "error", err)
	}
	log.Info("Shut down", "uptime", time.Since(started).Round(time.Second))
	return runErr
}
