package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jellywatch/core/internal/activity"
	"github.com/jellywatch/core/internal/catalog"
	"github.com/jellywatch/core/internal/config"
	"github.com/jellywatch/core/internal/core"
	"github.com/jellywatch/core/internal/httpapi"
	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/imagecache"
	"github.com/jellywatch/core/internal/ledger"
	"github.com/jellywatch/core/internal/logging"
	"github.com/jellywatch/core/internal/paths"
	"github.com/jellywatch/core/internal/persist"
	"github.com/jellywatch/core/internal/queue"
	"github.com/jellywatch/core/internal/scheduler"
	"github.com/jellywatch/core/internal/status"
	"github.com/jellywatch/core/internal/store"
)

const (
	httpShutdownTimeout   = 5 * time.Second
	activityRetentionDays = 30
)

var (
	configDir string
	listen    string
	readOnly  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jellywatchd",
		Short: "Media watch-tracking daemon",
		Long: `Jellywatchd keeps a local store of tracked series, movies, and watch
history, refreshes stale catalog metadata on a schedule, and serves the
image cache and dashboard over HTTP.`,
		RunE: runDaemon,
	}

	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory override")
	rootCmd.PersistentFlags().StringVar(&listen, "listen", "127.0.0.1:8585", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVar(&readOnly, "read-only", false, "do not write any state to disk")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if configDir != "" {
		os.Setenv("JELLYWATCH_CONFIG_DIR", configDir)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("unable to load config: %w", err)
	}
	if readOnly {
		cfg.ReadOnly = true
	}

	dir, err := paths.ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("unable to create config dir: %w", err)
	}

	unlock, err := acquireLock(dir)
	if err != nil {
		return err
	}
	defer unlock()

	logger, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("unable to set up logging: %w", err)
	}
	defer logger.Close()

	cacheDir, err := paths.CacheDir()
	if err != nil {
		return err
	}

	l := ledger.New()
	st := store.New(l)
	q := queue.New(0)
	errs := status.NewRing(0)
	driver := persist.NewDriver(dir, persist.LineDelimited)
	driver.SetReadOnly(cfg.ReadOnly)

	if err := driver.Load(st); err != nil {
		// Partial loads keep going; whatever families did load are live.
		logger.Warn("main", "database loaded with errors", logging.F("error", err.Error()))
	}
	l.Flush()

	// Concrete provider clients plug in here; without API keys every
	// catalog call reports unsupported rather than failing obscurely.
	seriesCat := catalog.Catalog(catalog.Unconfigured{Provider: id.CatalogA})
	movieCat := catalog.Catalog(catalog.Unconfigured{Provider: id.CatalogB})

	images := imagecache.New(filepath.Join(cacheDir, "images"), seriesCat)

	sched := scheduler.New(q, st, l, seriesCat, driver, errs, logger)
	if act, actErr := activity.NewLogger(dir); actErr == nil {
		defer act.Close()
		act.PruneOld(activityRetentionDays)
		sched.SetActivityLog(act)
	} else {
		logger.Warn("main", "activity journal unavailable", logging.F("error", actErr.Error()))
	}

	c := core.New(core.Options{
		Store:         st,
		Ledger:        l,
		Queue:         q,
		Driver:        driver,
		Images:        images,
		SeriesCatalog: seriesCat,
		MovieCatalog:  movieCat,
		Errors:        errs,
		Config:        cfg,
		Logger:        logger,
	})
	c.SetAnchor(sched)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:    listen,
		Handler: httpapi.NewServer(c, logger).Handler(),
	}
	go func() {
		logger.Info("main", "http listening", logging.F("addr", listen))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("main", "http server failed", err)
			stop()
		}
	}()

	err = sched.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	httpSrv.Shutdown(shutdownCtx)

	if saveErr := c.SaveChanges(); saveErr != nil {
		logger.Error("main", "final save failed", saveErr)
	}
	return err
}

// acquireLock prevents a second daemon instance from opening the same
// database directory. The lock file carries the holder's pid for
// diagnostics; a stale file from a crashed process must be removed by
// hand.
func acquireLock(dir string) (func(), error) {
	path := filepath.Join(dir, "jellywatchd.lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("another instance appears to be running (lock at %s)", path)
		}
		return nil, fmt.Errorf("unable to acquire instance lock: %w", err)
	}
	f.WriteString(strconv.Itoa(os.Getpid()))
	f.Close()
	return func() { os.Remove(path) }, nil
}
