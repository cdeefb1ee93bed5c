package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	lsdups "github.com/mattkeenan/lsdups/pkg"
)

// Exit codes
const (
	exitOK       = 0
	exitError    = 1
	exitCanceled = 130
)

func main() {
	ctx, stop := setupSignalContext(context.Background(), os.Stderr)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	err := app.RunContext(ctx, args)
	if err == nil {
		return exitOK
	}

	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintf(stderr, "lsdups: %s\n", msg)
		}
		return exitErr.ExitCode()
	}
	fmt.Fprintf(stderr, "lsdups: %v\n", err)
	return exitError
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "lsdups",
		Usage:     "list groups of files with identical content",
		UsageText: "lsdups [options]",
		Writer:    stdout,
		ErrWriter: stderr,
		// run maps errors to exit codes; the default handler would call os.Exit
		ExitErrHandler: func(*cli.Context, error) {},
		HideVersion:    true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Value: ".", Usage: "directory to traverse"},
			&cli.StringFlag{Name: "pattern", Aliases: []string{"p"}, Usage: "pattern for files to include (glob, or re:<regex>)"},
			&cli.StringFlag{Name: "filter", Usage: "pattern for files to skip (glob, or re:<regex>)"},
			&cli.StringFlag{Name: "size", Usage: "ignore files smaller than this size (e.g. 10, 4K, 1M)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "list skipped entries and extra statistics"},
			&cli.IntFlag{Name: "verbose-level", Usage: "log level 0-3 (0=warnings, 3=trace)"},
			&cli.StringFlag{Name: "debug", Usage: "comma-separated debug components: scan,bucket,digest,resolve"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "output format: human, json, yaml, fdupes"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "tuning config file (INI)"},
			&cli.StringFlag{Name: "init-config", Usage: "write a default config file to `PATH` and exit"},
			&cli.StringFlag{Name: "hash", Usage: "hash algorithm: sha256, sha384, sha512"},
			&cli.StringFlag{Name: "partial-size", Usage: "leading bytes hashed before a full read"},
			&cli.StringFlag{Name: "verify", Usage: "verification after full digest: none, mmap"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "number of concurrent hash workers"},
			&cli.BoolFlag{Name: "no-color", Usage: "disable coloured output"},
			&cli.BoolFlag{Name: "mime", Usage: "show the MIME type of each group"},
			&cli.StringSliceFlag{Name: "override", Aliases: []string{"o"}, Usage: "config override key:value (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			return scanAction(c, stdout, stderr)
		},
	}
}

func scanAction(c *cli.Context, stdout, stderr io.Writer) error {
	if c.NArg() > 0 {
		return cli.Exit(fmt.Sprintf("unexpected argument %q (use -d to choose a directory)", c.Args().First()), exitError)
	}

	env, err := loadEnvironment()
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	opts, err := parseOptions(c, env)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	if opts.initConfig != "" {
		return writeDefaultConfig(opts.initConfig, stdout)
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return cli.Exit(fmt.Sprintf("config: %v", err), exitError)
	}

	logger := lsdups.NewLogger(opts.verbose, stderr)
	defer logger.Sync()

	engine, err := lsdups.NewEngine(cfg, logger)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	result, err := engine.Scan(c.Context, opts.scan)
	if err != nil {
		if lsdups.IsCanceled(err) {
			return cli.Exit("scan cancelled", exitCanceled)
		}
		return cli.Exit(err.Error(), exitError)
	}

	writeDiagnostics(stderr, result.Diagnostics, opts.verbose)

	ropts := reportOptions{
		format:  opts.format,
		color:   useColor(opts.color, stdout),
		mime:    opts.mime,
		verbose: opts.verbose,
	}

	if file, ok := stdout.(*os.File); ok {
		vw := newVectorWriter(file)
		if err := writeReport(vw, result, ropts); err != nil {
			return cli.Exit(err.Error(), exitError)
		}
		if err := vw.Flush(); err != nil {
			return cli.Exit(err.Error(), exitError)
		}
		return nil
	}
	if err := writeReport(stdout, result, ropts); err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	return nil
}

// writeDefaultConfig saves a commented default config to path
func writeDefaultConfig(path string, stdout io.Writer) error {
	if _, err := os.Stat(path); err == nil {
		return cli.Exit(fmt.Sprintf("refusing to overwrite existing file %s", path), exitError)
	}
	if err := lsdups.DefaultConfig().SaveTo(path); err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	fmt.Fprintf(stdout, "wrote default config to %s\n", path)
	return nil
}

// useColor resolves the colour mode; auto colours only a terminal stdout
func useColor(mode string, stdout io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		_, isFile := stdout.(*os.File)
		return isFile && !color.NoColor
	}
}
