// Package main updates a factor pack with grid emission factors from a CSV
// file.
//
// The CSV needs a header row naming its columns. Recognized columns are id,
// region, scope, valueKgPerKWh, effectiveFrom, effectiveTo, uncertaintyPct,
// sourceName, sourceUrl and sourceDate; id, region, scope, valueKgPerKWh,
// effectiveFrom and sourceName are required. Rows replace base factors with
// the same id and are appended otherwise. The result is validated by decoding
// it before it is written.
//
// Usage:
//
//	go run ./tools/update-grid-factors --csv factors.csv --version 2025.1.0 [--base pack.yaml] [--output pack.yaml] [--dry-run]
package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rshade/co2e-engine/internal/factorpack"
	"github.com/rshade/co2e-engine/internal/factors"
)

const defaultOutput = "./internal/factorpack/data/default_pack.yaml"

var requiredColumns = []string{"id", "region", "scope", "valueKgPerKWh", "effectiveFrom", "sourceName"}

func main() {
	if err := newCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var (
		csvPath  string
		basePath string
		version  string
		output   string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:          "update-grid-factors",
		Short:        "Merge grid emission factors from CSV into a factor pack",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).
				With().Timestamp().Logger()

			base, err := loadBase(basePath)
			if err != nil {
				return err
			}

			f, err := os.Open(csvPath)
			if err != nil {
				return fmt.Errorf("opening csv: %w", err)
			}
			defer func() { _ = f.Close() }()

			rows, err := readFactors(f)
			if err != nil {
				return err
			}

			updated, data, err := merge(base, rows, version)
			if err != nil {
				return err
			}
			logger.Info().
				Str("base", base.String()).
				Str("pack", updated.String()).
				Int("rows", len(rows)).
				Int("factors", len(updated.Factors)).
				Msg("pack validated")

			if dryRun {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing pack: %w", err)
			}
			logger.Info().Str("output", output).Msg("pack written")
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file of grid factors (required)")
	cmd.Flags().StringVar(&basePath, "base", "", "pack to update (default: embedded pack)")
	cmd.Flags().StringVar(&version, "version", "", "version of the updated pack; must be newer than the base (required)")
	cmd.Flags().StringVar(&output, "output", defaultOutput, "path of the written pack")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the pack instead of writing it")
	_ = cmd.MarkFlagRequired("csv")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func loadBase(path string) (*factorpack.Pack, error) {
	if path == "" {
		return factorpack.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading base pack: %w", err)
	}
	return factorpack.Decode(data)
}

// readFactors parses CSV rows into factors. Values are checked later, when
// the merged pack is decoded.
func readFactors(r io.Reader) ([]factors.EmissionFactor, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("csv is missing column %q", name)
		}
	}

	var out []factors.EmissionFactor
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		f, err := rowToFactor(cols, record)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func rowToFactor(cols map[string]int, record []string) (factors.EmissionFactor, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	value, err := strconv.ParseFloat(get("valueKgPerKWh"), 64)
	if err != nil {
		return factors.EmissionFactor{}, fmt.Errorf("valueKgPerKWh: %w", err)
	}
	scope, err := factors.ParseScope(get("scope"))
	if err != nil {
		return factors.EmissionFactor{}, err
	}
	from, err := factors.ParseDate(get("effectiveFrom"))
	if err != nil {
		return factors.EmissionFactor{}, err
	}

	f := factors.EmissionFactor{
		ID:            get("id"),
		Region:        strings.ToUpper(get("region")),
		Scope:         scope,
		Gas:           factors.GasCO2e,
		ValueKgPerKWh: value,
		EffectiveFrom: from,
		Source: factors.Source{
			Name: get("sourceName"),
			URL:  get("sourceUrl"),
			Date: get("sourceDate"),
		},
	}
	if s := get("effectiveTo"); s != "" {
		to, err := factors.ParseDate(s)
		if err != nil {
			return factors.EmissionFactor{}, err
		}
		f.EffectiveTo = &to
	}
	if s := get("uncertaintyPct"); s != "" {
		pct, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return factors.EmissionFactor{}, fmt.Errorf("uncertaintyPct: %w", err)
		}
		f.UncertaintyPct = &pct
	}
	return f, nil
}

// merge applies rows to base under a new version and returns the decoded
// result together with its YAML encoding.
func merge(base *factorpack.Pack, rows []factors.EmissionFactor, version string) (*factorpack.Pack, []byte, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, nil, fmt.Errorf("version %q: %w", version, err)
	}

	next := &factorpack.Pack{
		SchemaVersion: base.SchemaVersion,
		Name:          base.Name,
		Version:       v,
		Regions:       base.Regions,
		Factors:       append([]factors.EmissionFactor(nil), base.Factors...),
	}
	if base.Version != nil && !next.Supersedes(base) {
		return nil, nil, fmt.Errorf("version %s does not supersede %s", v, base)
	}

	index := make(map[string]int, len(next.Factors))
	for i, f := range next.Factors {
		index[f.ID] = i
	}
	for _, f := range rows {
		if i, ok := index[f.ID]; ok {
			next.Factors[i] = f
			continue
		}
		index[f.ID] = len(next.Factors)
		next.Factors = append(next.Factors, f)
	}

	data, err := factorpack.EncodeYAML(next)
	if err != nil {
		return nil, nil, err
	}
	decoded, err := factorpack.DecodeYAML(data)
	if err != nil {
		return nil, nil, err
	}
	return decoded, data, nil
}
