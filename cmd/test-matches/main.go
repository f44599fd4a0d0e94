package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/okian/pmr/internal/testmatches"
)

// defaultTestTimeout bounds the whole run.
const defaultTestTimeout = 10 * time.Minute

func main() {
	cfg, opts, err := testmatches.ParseArgs(os.Args[1:])
	if err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Println(err)
			return
		}
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	closer, err := testmatches.SetupLogging(opts.Log, opts.Verbose)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	if err := testmatches.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called above
	}
}
