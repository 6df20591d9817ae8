package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/justyntemme/nexus/internal/app"
	"github.com/justyntemme/nexus/internal/config"
	"github.com/justyntemme/nexus/internal/debug"
	"github.com/justyntemme/nexus/internal/fs"
	"github.com/justyntemme/nexus/internal/logging"
	"github.com/justyntemme/nexus/internal/metrics"
	"github.com/justyntemme/nexus/internal/preview"
	"github.com/justyntemme/nexus/internal/session"
	"github.com/justyntemme/nexus/internal/store"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable verbose debug logging")
	configPath := flag.String("config", "", "Config file (default ~/.config/nexus/config.json)")
	dbPath := flag.String("db", "", "Handle database (overrides store.path)")
	filesOnly := flag.Bool("files", false, "Pick individual files instead of folders")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	genConfig := flag.Bool("generate-config", false, "Write a default config file (backing up the old one) and exit")
	flag.Parse()

	if *genConfig {
		path := *configPath
		if path == "" {
			path = config.ConfigPath()
		}
		backup, err := config.GenerateConfig(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "nexus:", err)
			os.Exit(1)
		}
		if backup != "" {
			fmt.Println("backed up old config to", backup)
		}
		fmt.Println("wrote", path)
		return
	}

	if err := run(*debugFlag, *configPath, *dbPath, *filesOnly, *metricsAddr); err != nil {
		fmt.Fprintln(os.Stderr, "nexus:", err)
		os.Exit(1)
	}
}

func run(debugMode bool, configPath, dbPath string, filesOnly bool, metricsAddr string) error {
	cfgMgr := config.NewManager()
	if configPath != "" {
		cfgMgr = config.NewManagerAt(configPath)
	}
	if err := cfgMgr.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := cfgMgr.Get()

	logCfg := logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, OutputPath: cfg.Logging.Output}
	if debugMode {
		logCfg.Level = "debug"
		debug.EnableAll()
	}
	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Sync()
	if err := cfgMgr.ParseError(); err != nil {
		logging.Warn("config file invalid, using defaults", zap.String("path", cfgMgr.Path()), zap.Error(err))
	}

	if metricsAddr == "" {
		metricsAddr = cfg.Metrics.Addr
	}
	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Warn("metrics listener stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	if dbPath == "" {
		dbPath = cfg.Store.Path
	}
	if dbPath == "" {
		dbPath = config.DefaultStorePath()
	}
	db := store.NewDB()
	if err := db.Open(fs.ExpandHome(dbPath)); err != nil {
		// Without storage nothing is restored, but browsing still works.
		logging.Warn("handle store unavailable", zap.String("path", dbPath), zap.Error(err))
	}
	defer db.Close()

	in := bufio.NewReader(os.Stdin)
	con := newConsole(in, os.Stdout)
	sys := fs.NewSystem(con, fs.WithDirectoryAccess(cfg.Browser.DirectoryAccess && !filesOnly))

	thumbs := preview.NewThumbnailer(preview.Options{
		Timeout:      cfg.Preview.Timeout(),
		MaxPixels:    cfg.Preview.MaxPixels,
		CacheEntries: cfg.Preview.CacheEntries,
		Frames:       frameExtractor(cfg.Preview),
	})
	gallery := preview.NewGallery(preview.NewRegistry(), thumbs)

	handles := store.NewHandleStore(db, sys)
	browser := app.New(sys, handles, db, app.Options{
		TTL:      cfg.Session.TTL(),
		Defaults: defaultPreferences(cfg.Preferences),
		Gallery:  gallery,
		Watch:    cfg.Browser.WatchChanges,
		Debounce: time.Duration(cfg.Browser.DebounceMs) * time.Millisecond,
	})
	defer browser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sh := &shell{
		browser: browser,
		console: con,
		sys:     sys,
		thumbs:  thumbs,
		gallery: gallery,
		handles: handles,
		config:  cfgMgr,
		out:     os.Stdout,
	}
	return sh.run(ctx)
}

func frameExtractor(p config.PreviewConfig) preview.FrameExtractor {
	ff := preview.FFmpeg{Path: p.FFmpegPath, Offset: p.VideoOffset}
	if !ff.Available() {
		logging.Info("ffmpeg not found, video thumbnails disabled", zap.String("path", p.FFmpegPath))
		return nil
	}
	return ff
}

func defaultPreferences(p config.PreferencesConfig) session.Preferences {
	prefs := session.DefaultPreferences()
	if m, err := session.ParseViewMode(p.ViewMode); err == nil {
		prefs.ViewMode = m
	}
	if s, err := session.ParseItemSize(p.ItemSize); err == nil {
		prefs.ItemSize = s
	}
	prefs.ShowPreview = p.ShowPreview
	return prefs
}
