package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woozymasta/mgrsgrid/internal/config"
	"github.com/woozymasta/mgrsgrid/internal/controller"
	"github.com/woozymasta/mgrsgrid/internal/dispatch"
	"github.com/woozymasta/mgrsgrid/internal/logger"
	"github.com/woozymasta/mgrsgrid/internal/server"
	"github.com/woozymasta/mgrsgrid/internal/zones"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"   env:"CONFIG_FILE"    description:"Path to configuration file" default:"config.yaml"`
	Addr       string `short:"a" long:"addr"     env:"LISTEN_ADDRESS" description:"Address to listen on"       default:"0.0.0.0"`
	Port       int    `short:"p" long:"port"     env:"LISTEN_PORT"    description:"Port to listen on"          default:"8080"`
	Workers    int    `short:"w" long:"workers"  env:"WORKERS"        description:"Generation workers, overrides config"`
	GridDir    string `short:"g" long:"grid-dir" env:"GRID_DIR"       description:"Directory of pre-generated grid files served under /grid/"`
}

func main() {
	// .env values become defaults for env-tagged flags
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.LoadOrDefault(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}

	set := zones.Default()
	if cfg.ZonesFile != "" {
		if set, err = zones.Load(cfg.ZonesFile); err != nil {
			log.Fatal().Err(err).Str("path", cfg.ZonesFile).Msg("Failed to load zone boundaries")
		}
	}

	disp, err := dispatch.New(cfg.Workers, dispatch.GeneratorFactory(cfg.Grid.Options()))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start workers")
	}
	defer disp.Close()

	ctrl := controller.New(set, disp, cfg.Zoom)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Controller stopped")
		}
	}()

	srvCtx, err := server.NewServerContext(cfg, ctrl, set, opts.GridDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           server.RequestLogger(srvCtx.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", listenAddr).
		Int("zones", len(set.Existing())).
		Int("workers", cfg.Workers).
		Int("zoom_100km", cfg.Zoom.Squares).
		Int("zoom_10km", cfg.Zoom.Cells).
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}

	log.Info().Msg("Web server stopped")
}
