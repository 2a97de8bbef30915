package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/banshee-data/follow.report/internal/config"
	"github.com/banshee-data/follow.report/internal/units"
	"github.com/banshee-data/follow.report/internal/version"
)

var (
	dataFile   = flag.String("data", "LF_data.csv", "Leader-follower observation CSV")
	tracksFile = flag.String("tracks", "", "All-vehicle track CSV; leader tracks are merged into the output when set")
	follower   = flag.Int64("fol", 20, "Follower vehicle id to simulate")
	followers  = flag.String("followers", "", "Comma separated follower ids, or \"all\", to simulate concurrently")
	paramSets  = flag.String("param-sets", "", "JSON file with an array of parameter sets to run per follower")

	v0 = flag.Float64("v0", 50, "Desired speed (m/s)")
	tH = flag.Float64("T", 1, "Desired time headway (s)")
	s0 = flag.Float64("s0", 0.4, "Minimum gap (m)")
	aM = flag.Float64("a", 2, "Maximum acceleration (m/s^2)")
	bC = flag.Float64("b", 4, "Comfortable deceleration (m/s^2)")

	configFile  = flag.String("config", "", "Simulation config JSON; flags override its values")
	speedUnit   = flag.String("speed-unit", "", "Speed unit of the CSV files ("+units.GetValidUnitsString()+")")
	outFile     = flag.String("out", "output_data.csv", "Output CSV; batch runs append _<follower> to the name")
	dbFile      = flag.String("db", "", "SQLite run store to record runs in")
	plotDir     = flag.String("plot-dir", "", "Directory for PNG gap and speed plots")
	serve       = flag.String("serve", "", "Listen address to serve the run store on after simulating (requires -db)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(*configFile, setFlags())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	opts := options{
		DataFile:   *dataFile,
		TracksFile: *tracksFile,
		Follower:   *follower,
		OutFile:    *outFile,
		DBFile:     *dbFile,
		PlotDir:    *plotDir,
		Serve:      *serve,
		Config:     cfg,
	}
	if *followers != "" {
		opts.Batch = true
		if opts.Followers, err = parseFollowers(*followers); err != nil {
			log.Fatalf("Invalid -followers: %v", err)
		}
	}
	if *paramSets != "" {
		if opts.ParamSets, err = config.LoadParamSets(*paramSets); err != nil {
			log.Fatalf("Failed to load parameter sets: %v", err)
		}
		opts.Batch = true
		if len(opts.Followers) == 0 && *followers == "" {
			opts.Followers = []int64{*follower}
		}
	}
	if opts.Serve != "" && opts.DBFile == "" {
		log.Fatal("-serve requires -db")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		log.Fatalf("follow: %v", err)
	}
}

// setFlags returns the names of flags given on the command line.
func setFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// loadConfig reads the config file (if any) and applies explicitly set
// flags on top of it.
func loadConfig(path string, set map[string]bool) (*config.SimConfig, error) {
	cfg := config.DefaultSimConfig()
	if path != "" {
		fileCfg, err := config.LoadSimConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	p := cfg.Params()
	for _, o := range []struct {
		name string
		dst  *float64
		val  float64
	}{
		{"v0", &p.V0, *v0},
		{"T", &p.T, *tH},
		{"s0", &p.S0, *s0},
		{"a", &p.A, *aM},
		{"b", &p.B, *bC},
	} {
		if set[o.name] {
			*o.dst = o.val
		}
	}
	cfg.SetParams(p)
	if set["speed-unit"] {
		u := *speedUnit
		cfg.SpeedUnit = &u
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseFollowers parses "all" (returned as nil) or a comma separated id
// list.
func parseFollowers(s string) ([]int64, error) {
	if strings.EqualFold(strings.TrimSpace(s), "all") {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("follower id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no follower ids in %q", s)
	}
	return ids, nil
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Reproduces follower trajectories with the Intelligent Driver Model.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
}
