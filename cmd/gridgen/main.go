package main

import (
	"os"
	"strings"

	"github.com/woozymasta/mgrsgrid/internal/config"
	"github.com/woozymasta/mgrsgrid/internal/dispatch"
	"github.com/woozymasta/mgrsgrid/internal/geo"
	"github.com/woozymasta/mgrsgrid/internal/logger"
	"github.com/woozymasta/mgrsgrid/internal/mgrs"
	"github.com/woozymasta/mgrsgrid/internal/zones"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string   `short:"c" long:"config"  env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	Limit      []string `short:"l" long:"limit"   env:"LIMIT_ZONES" description:"Limit generation to zone keys (e.g. 05Q)"`
	BBox       string   `short:"b" long:"bbox"    description:"Limit generation to zones touching west,south,east,north"`
	Out        string   `short:"o" long:"out"     env:"GRID_DIR"    description:"Output directory" default:"grid"`
	Format     string   `short:"f" long:"format"  description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Workers    int      `short:"w" long:"workers" env:"WORKERS"     description:"Generation workers, overrides config"`
	Cells      bool     `short:"C" long:"cells"   description:"Also generate 10 km cells"`
	Force      bool     `short:"F" long:"force"   description:"Regenerate zones whose files exist"`
}

func main() {
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

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

	selected, err := selectZones(set, opts.Limit, opts.BBox)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid zone selection")
	}

	disp, err := dispatch.New(cfg.Workers, dispatch.GeneratorFactory(cfg.Grid.Options()))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start workers")
	}
	defer disp.Close()

	log.Info().
		Int("zones_total", len(set.Existing())).
		Int("zones_queued", len(selected)).
		Int("workers", disp.Workers()).
		Bool("cells", opts.Cells).
		Msg("Starting grid generation")

	b := &batch{pool: disp, out: opts.Out, format: opts.Format, cells: opts.Cells, force: opts.Force}
	if err := b.run(selected, set.Ring); err != nil {
		log.Fatal().Err(err).Msg("Grid generation aborted")
	}

	if b.failed > 0 {
		log.Warn().Int("failed", b.failed).Int("files", b.files).Msg("Grid generation finished with failures")
		return
	}
	log.Info().Int("files", b.files).Msg("Grid generation finished successfully")
}

// selectZones applies --limit and --bbox; with neither, every existing zone
// is selected.
func selectZones(set *zones.Set, limit []string, bbox string) ([]zones.Descriptor, error) {
	if bbox != "" {
		b, err := geo.ParseBounds(bbox)
		if err != nil {
			return nil, err
		}
		return set.Visible(b), nil
	}
	if len(limit) == 0 {
		return set.Existing(), nil
	}

	out := make([]zones.Descriptor, 0, len(limit))
	seen := make(map[string]bool)
	for _, name := range limit {
		for _, part := range strings.Split(name, ",") {
			ref, err := mgrs.Parse(part)
			if err != nil {
				return nil, err
			}
			id := ref.ZoneID()
			if seen[id] {
				continue
			}
			seen[id] = true

			d, ok := set.Get(id)
			if !ok || !d.Exists {
				log.Error().
					Str("zone", id).
					Msg("Zone specified in --limit does not exist")
				continue
			}
			out = append(out, d)
		}
	}
	return out, nil
}
