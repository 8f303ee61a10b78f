package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/tour360/editor/internal/config"
	"github.com/tour360/editor/internal/logging"
	"github.com/tour360/editor/internal/storage"
	"github.com/tour360/editor/internal/storage/memory"
	"github.com/tour360/editor/internal/tour"
	"github.com/tour360/editor/pkg/core"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	Version   string = "0.1.0"
	BuildDate string = "unknown"

	AppName string = "tour360"
)

const usage = `usage: tour360 [-config dir] [serve|export|import <file>|check <file>]`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	if err := fs.Parse(args); err != nil {
		return err
	}

	configErr := config.Load(*configDir)

	cmd, rest := "serve", fs.Args()
	if len(rest) > 0 {
		cmd, rest = strings.ToLower(rest[0]), rest[1:]
	}

	if cmd == "serve" {
		return serve(configErr)
	}

	// one-shot commands keep stdout clean for document output
	lm := logging.NewSlogManager()
	lm.Setup(stderr, viper.GetString("logLevel"), nil)
	log := lm.Logger()
	if configErr != nil {
		log.Debug("Failed to load config, using defaults", "error", configErr)
	}

	switch cmd {
	case "export":
		return exportTour(stdout, log)
	case "import":
		if len(rest) != 1 {
			return errors.New(usage)
		}
		return importTour(rest[0], log)
	case "check":
		if len(rest) != 1 {
			return errors.New(usage)
		}
		return checkTour(rest[0], stdout)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

// exportTour writes the saved tour to w.
func exportTour(w io.Writer, log *slog.Logger) error {
	cfg := config.GetStorageConfig()
	b, err := openBackend(cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	data, err := b.Load(cfg.Slot)
	if err != nil {
		return fmt.Errorf("load slot %s: %w", cfg.Slot, err)
	}
	t, err := tour.Parse(data)
	if err != nil {
		return err
	}
	out, err := tour.Marshal(t)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// importTour validates path and stores it in the configured slot.
func importTour(path string, log *slog.Logger) error {
	t, err := readTour(path)
	if err != nil {
		return err
	}

	cfg := config.GetStorageConfig()
	b, err := openBackend(cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	store := tour.New(tour.WithLogger(log))
	store.Replace(t)
	if err := storage.SaveTour(b, cfg.Slot, store); err != nil {
		return err
	}
	log.Info("Imported tour", "file", path, "slot", cfg.Slot, "scenes", len(t.Scenes))
	return nil
}

// checkTour validates a document. A *core.ParseError makes the process exit
// non-zero.
func checkTour(path string, w io.Writer) error {
	t, err := readTour(path)
	if err != nil {
		return err
	}
	hotSpots := 0
	for _, sc := range t.Scenes {
		hotSpots += len(sc.HotSpots)
	}
	_, err = fmt.Fprintf(w, "%s: ok, %d scenes, %d hotspots\n", path, len(t.Scenes), hotSpots)
	return err
}

func readTour(path string) (core.Tour, error) {
	data, err := memory.ReadFile(path)
	if err != nil {
		return core.Tour{}, err
	}
	t, err := tour.Parse(data)
	if err != nil {
		return core.Tour{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
