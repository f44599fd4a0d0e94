package testmatches

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/okian/pmr/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0o600
)

// Options are the command-line flags of the match test tool.
type Options struct {
	URL        string        `long:"url" description:"Base URL of the service" default:"http://localhost:9080"`
	Matches    int           `long:"matches" description:"Number of matches to generate and submit" default:"10000"`
	Players    int           `long:"players" description:"Size of the player pool" default:"1000"`
	Duplicates int           `long:"duplicates" description:"Resubmit every Nth match to check idempotency; 0 disables" default:"10"`
	Top        int           `long:"top" description:"Number of top entries to fetch from leaderboard" default:"50"`
	Workers    int           `long:"workers" description:"Number of concurrent workers (default: CPU cores * 2)"`
	Timeout    time.Duration `long:"timeout" description:"HTTP request timeout" default:"30s"`
	Settle     time.Duration `long:"settle" description:"How long to wait for the service to rate every match" default:"2m"`
	Seed       uint64        `long:"seed" description:"Seed of the match generator (default: current time)"`
	Output     string        `long:"output" description:"Output file for generated matches"`
	Log        string        `long:"log" description:"Also write log output to this file"`
	Verbose    bool          `short:"v" long:"verbose" description:"Enable verbose logging"`
}

// ParseArgs parses args into a Config. A help request is returned as a
// *flags.Error of type flags.ErrHelp.
func ParseArgs(args []string) (*Config, *Options, error) {
	var opts Options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Usage = "[OPTIONS]"

	remaining, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}
	if len(remaining) > 0 {
		return nil, nil, fmt.Errorf("unexpected arguments: %v", remaining)
	}

	cfg := &Config{
		BaseURL:    opts.URL,
		NumMatches: opts.Matches,
		NumPlayers: opts.Players,
		Duplicates: opts.Duplicates,
		TopN:       opts.Top,
		Workers:    opts.Workers,
		Timeout:    opts.Timeout,
		Settle:     opts.Settle,
		Seed:       opts.Seed,
		OutputFile: opts.Output,
		Verbose:    opts.Verbose,
	}
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU() * 2
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano()) //nolint:gosec // non-negative
	}
	if cfg.NumMatches < 1 || cfg.TopN < 1 {
		return nil, nil, fmt.Errorf("matches and top must be positive")
	}
	return cfg, &opts, nil
}

// SetupLogging initializes the logger on stdout and, when logFile is set,
// on that file too. The returned closer releases the file.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = io.NopCloser(nil)

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	if err := logger.Init(logger.WithOutput(out)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return closer, nil
}
