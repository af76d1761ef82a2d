package main

import (
	"fmt"
	"os"

	"github.com/woozymasta/mgrsgrid/internal/geo"
	"github.com/woozymasta/mgrsgrid/internal/zones"

	"github.com/jessevdk/go-flags"
	geojson "github.com/paulmach/go.geojson"
)

type Options struct {
	Input  string   `short:"i" long:"in"     description:"Re-encode an existing zone asset instead of the built-in set"`
	Output string   `short:"o" long:"out"    description:"Output file path. Writes to stdout if empty"`
	Format string   `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Bands  []string `short:"b" long:"band"   description:"Only export these band letters (repeatable)"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	set := zones.Default()
	if opts.Input != "" {
		var err error
		if set, err = zones.Load(opts.Input); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading zone asset: %v\n", err)
			os.Exit(1)
		}
	}

	fc := export(set, opts.Bands)

	outputData, err := geo.Marshal(fc, opts.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, outputData, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully exported %d zones to %s (format: %s)\n", len(fc.Features), opts.Output, opts.Format)
	} else {
		fmt.Println(string(outputData))
	}
}

// export returns the existing zones, optionally restricted to some bands.
func export(set *zones.Set, bands []string) *geojson.FeatureCollection {
	if len(bands) == 0 {
		return set.FeatureCollection()
	}

	keep := make(map[byte]bool, len(bands))
	for _, b := range bands {
		if len(b) == 1 {
			keep[b[0]&^0x20] = true
		}
	}

	var polys []geo.GridPolygon
	for _, d := range set.Existing() {
		if keep[d.Band] {
			polys = append(polys, d.Polygon())
		}
	}
	return geo.NewFeatureCollection(polys)
}
