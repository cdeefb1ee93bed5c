package main

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/urfave/cli/v2"

	lsdups "github.com/mattkeenan/lsdups/pkg"
)

// envPrefix is the prefix of every environment variable read by lsdups
const envPrefix = "LSDUPS"

// environment holds the LSDUPS_* overlay, applied between the config file and the flags.
// Keys are derived from field names so unprefixed variables are never read.
type environment struct {
	Config  string
	Workers int
	NoColor bool `split_words:"true"`
}

// options is the parsed command line
type options struct {
	scan       lsdups.ScanConfig
	configPath string
	initConfig string
	format     string
	color      string
	mime       bool
	verbose    int
	overrides  []string
}

func loadEnvironment() (*environment, error) {
	var env environment
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	return &env, nil
}

// parseOptions builds options from flags; env fills in whatever the flags leave unset
func parseOptions(c *cli.Context, env *environment) (*options, error) {
	opts := &options{
		scan: lsdups.ScanConfig{
			Root:           c.String("dir"),
			IncludePattern: c.String("pattern"),
			SkipPattern:    c.String("filter"),
		},
		configPath: c.String("config"),
		initConfig: c.String("init-config"),
		mime:       c.Bool("mime"),
		verbose:    c.Int("verbose-level"),
	}

	if sizeStr := c.String("size"); sizeStr != "" {
		size, err := lsdups.ParseHumanSize(sizeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --size: %w", err)
		}
		opts.scan.MinSize = size
	}

	if c.Bool("verbose") && opts.verbose < 1 {
		opts.verbose = 1
	}

	if opts.configPath == "" {
		opts.configPath = env.Config
	}

	// Lowest precedence first so later overrides win
	if env.Workers > 0 {
		opts.overrides = append(opts.overrides, fmt.Sprintf("hash_workers:%d", env.Workers))
	}
	if env.NoColor {
		opts.overrides = append(opts.overrides, "color:never")
	}
	opts.overrides = append(opts.overrides, c.StringSlice("override")...)

	flagOverrides := []struct{ flag, key string }{
		{"hash", "default"},
		{"partial-size", "partial_size"},
		{"verify", "verify"},
		{"format", "format"},
		{"debug", "debug"},
	}
	for _, fo := range flagOverrides {
		if c.IsSet(fo.flag) {
			opts.overrides = append(opts.overrides, fo.key+":"+c.String(fo.flag))
		}
	}
	if c.IsSet("workers") {
		opts.overrides = append(opts.overrides, fmt.Sprintf("hash_workers:%d", c.Int("workers")))
	}
	if c.Bool("no-color") {
		opts.overrides = append(opts.overrides, "color:never")
	}

	return opts, nil
}

// loadConfig reads the tuning file and applies the env and flag overrides
func (o *options) loadConfig() (*lsdups.Config, error) {
	cfg, err := lsdups.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyOverrides(o.overrides); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	out := cfg.GetOutputConfig()
	o.format = strings.ToLower(out.Format)
	o.color = strings.ToLower(out.Color)

	// The flag wins; otherwise the configured level applies
	if o.verbose == 0 {
		o.verbose = cfg.GetVerboseConfig().Level
	}
	return cfg, nil
}
