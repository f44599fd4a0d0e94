// Package main is pmrcalc, an offline calculator for one doubles match.
//
//	pmrcalc -p ana:3.5:50 -p bo:3.5:50 -p cy:3.5:50 -p dee:3.5:50 -s 6-4 -s 6-4
//
// Players are given in the order team1, team1, team2, team2. Nothing is
// stored; the command prints the four rating changes.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jessevdk/go-flags"

	"github.com/okian/pmr/internal/domain/rating"
	"github.com/okian/pmr/internal/domain/rules"
)

// Exit codes.
const (
	exitOK = iota
	exitUsage
	exitInvalid
)

// Options are the command-line flags of pmrcalc.
type Options struct {
	Players []string `short:"p" long:"player" description:"Player as id:pmr:reliability; give four, team1 first" required:"true"`
	Sets    []string `short:"s" long:"set" description:"Set score as team1-team2, e.g. 6-4; up to three" required:"true"`
	Format  string   `short:"f" long:"format" description:"Output format" choice:"table" choice:"json" default:"table"`
	Lenient bool     `long:"lenient" description:"Skip score validation and feed sets to the engine as given"`

	Params ParamOptions `group:"Rating parameters"`
}

// ParamOptions override single rating parameters. Unset flags keep the
// default model.
type ParamOptions struct {
	K             float64 `long:"k" description:"Base learning rate"`
	EloScale      float64 `long:"elo-scale" description:"Logistic steepness of the expected outcome"`
	MarginMin     float64 `long:"margin-min" description:"Floor of the margin factor"`
	MarginGamma   float64 `long:"margin-gamma" description:"Curvature of the margin factor"`
	UpsetBeta     float64 `long:"upset-beta" description:"Strength of the upset factor"`
	UpsetGamma    float64 `long:"upset-gamma" description:"Curvature of the upset factor"`
	VMax          float64 `long:"v-max" description:"Volatility multiplier at zero reliability"`
	VGamma        float64 `long:"v-gamma" description:"Decay curvature of the volatility multiplier"`
	RelTau        float64 `long:"rel-tau" description:"Reliability time constant, in matches"`
	RelCurveGamma float64 `long:"rel-curve-gamma" description:"Reliability curve curvature"`
}

type output struct {
	Outcome string           `json:"outcome"`
	Results [4]rating.Result `json:"results"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, rates the match and writes the result. It returns the
// process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var opts Options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Usage = "-p id:pmr:rel (x4) -s 6-4 -s 6-4 [OPTIONS]"

	if _, err := parser.ParseArgs(args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			_, _ = fmt.Fprintln(stdout, err)
			return exitOK
		}
		_, _ = fmt.Fprintln(stderr, err)
		return exitUsage
	}

	match, err := buildMatch(opts)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitUsage
	}

	params := rating.DefaultParams().With(overrides(parser))
	if err := params.Validate(); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitUsage
	}

	results, outcome, err := rating.NewEngine(params).Update(match)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitInvalid
	}

	if err := write(stdout, opts.Format, output{Outcome: outcome.String(), Results: results}); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitInvalid
	}
	return exitOK
}

func buildMatch(opts Options) (rating.Match, error) {
	var m rating.Match
	if len(opts.Players) != 4 {
		return m, fmt.Errorf("need four players, got %d", len(opts.Players))
	}
	if len(opts.Sets) > 3 {
		return m, fmt.Errorf("at most three sets, got %d", len(opts.Sets))
	}

	var players [4]rating.PlayerSnapshot
	for i, raw := range opts.Players {
		p, err := parsePlayer(raw)
		if err != nil {
			return m, err
		}
		players[i] = p
	}
	m.Team1 = [2]rating.PlayerSnapshot{players[0], players[1]}
	m.Team2 = [2]rating.PlayerSnapshot{players[2], players[3]}

	var inputs [3]rules.SetInput
	for i, raw := range opts.Sets {
		s, err := parseSet(raw)
		if err != nil {
			return m, err
		}
		inputs[i] = s
	}

	if !opts.Lenient {
		sets, err := rules.Validate(inputs)
		if err != nil {
			return m, err
		}
		m.Sets = sets
		return m, nil
	}
	for i, s := range inputs {
		if s.Team1 != nil && s.Team2 != nil {
			m.Sets[i] = rating.Played(*s.Team1, *s.Team2)
		}
	}
	return m, nil
}

// parsePlayer reads id:pmr:reliability.
func parsePlayer(raw string) (rating.PlayerSnapshot, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 || parts[0] == "" {
		return rating.PlayerSnapshot{}, fmt.Errorf("player %q: want id:pmr:reliability", raw)
	}
	pmr, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return rating.PlayerSnapshot{}, fmt.Errorf("player %q: pmr: %w", raw, err)
	}
	rel, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return rating.PlayerSnapshot{}, fmt.Errorf("player %q: reliability: %w", raw, err)
	}
	return rating.PlayerSnapshot{ID: parts[0], PMR: pmr, Reliability: rel}, nil
}

// parseSet reads team1-team2. A single "-" is an unplayed set.
func parseSet(raw string) (rules.SetInput, error) {
	if raw == "-" {
		return rules.SetInput{}, nil
	}
	a, b, ok := strings.Cut(raw, "-")
	if !ok {
		return rules.SetInput{}, fmt.Errorf("set %q: want team1-team2", raw)
	}
	g1, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return rules.SetInput{}, fmt.Errorf("set %q: %w", raw, err)
	}
	g2, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return rules.SetInput{}, fmt.Errorf("set %q: %w", raw, err)
	}
	return rules.Set(g1, g2), nil
}

// overrides collects the parameter flags that were given on the command line.
func overrides(parser *flags.Parser) rating.Overrides {
	var o rating.Overrides
	for name, dst := range map[string]**float64{
		"k":               &o.K,
		"elo-scale":       &o.EloScale,
		"margin-min":      &o.MarginMin,
		"margin-gamma":    &o.MarginGamma,
		"upset-beta":      &o.UpsetBeta,
		"upset-gamma":     &o.UpsetGamma,
		"v-max":           &o.VMax,
		"v-gamma":         &o.VGamma,
		"rel-tau":         &o.RelTau,
		"rel-curve-gamma": &o.RelCurveGamma,
	} {
		opt := parser.FindOptionByLongName(name)
		if opt == nil || !opt.IsSet() {
			continue
		}
		if v, ok := opt.Value().(float64); ok {
			*dst = rating.Float(v)
		}
	}
	return o
}

func write(w io.Writer, format string, out output) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "outcome: %s\n", out.Outcome)
	_, _ = fmt.Fprintln(tw, "PLAYER\tPMR\tDELTA\tRELIABILITY\tDELTA")
	for _, r := range out.Results {
		_, _ = fmt.Fprintf(tw, "%s\t%.4f\t%+.4f\t%.2f\t%+.2f\n",
			r.PlayerID, r.NewPMR, r.Delta, r.NewReliability, r.DeltaReliability)
	}
	return tw.Flush()
}
