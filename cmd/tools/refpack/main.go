// Package main implements the refpack CLI tool for validating and packing
// growth reference table bundles.
//
// Usage:
//
//	go run ./cmd/tools/refpack --in=tables.json --out=tables.json.zst
//	go run ./cmd/tools/refpack --in=tables.json.zst --check
//
// Environment variables (used as defaults when flags are not set):
//
//	REFERENCE_TABLES_PATH - input bundle path
//
// With no input the embedded bundle is used. Output ending in .zst is written
// zstd-compressed; any other output path receives plain JSON. Every bundle is
// fully validated before it is written, and a table summary is printed.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"growthwatch/internal/reference"
)

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "refpack: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("refpack", flag.ContinueOnError)
	in := fs.String("in", os.Getenv("REFERENCE_TABLES_PATH"), "Input bundle, .json or .json.zst (or REFERENCE_TABLES_PATH env; embedded when empty)")
	out := fs.String("out", "", "Output path; .zst suffix selects zstd compression")
	check := fs.Bool("check", false, "Validate only, do not write output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*check && *out == "" {
		return fmt.Errorf("--out is required unless --check is set")
	}

	data, origin, err := readInput(*in)
	if err != nil {
		return err
	}

	store, err := reference.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", origin, err)
	}

	printSummary(stdout, origin, store)
	if *check {
		fmt.Fprintln(stdout, "OK")
		return nil
	}

	if reference.IsCompressed(data) {
		if data, err = reference.Decompress(data); err != nil {
			return err
		}
	}
	if strings.HasSuffix(*out, ".zst") {
		if data, err = reference.Compress(data); err != nil {
			return err
		}
	}

	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", *out, len(data))
	return nil
}

func readInput(path string) ([]byte, string, error) {
	if path == "" {
		return reference.EmbeddedBundle(), "embedded", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read %s: %w", path, err)
	}
	return data, path, nil
}

func printSummary(w io.Writer, origin string, store *reference.Store) {
	fmt.Fprintf(w, "bundle %s (version %s, source %s)\n", origin, store.Version(), store.Source())
	if approx := store.Approximate(); len(approx) > 0 {
		fmt.Fprintf(w, "approximated families: %v\n", approx)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FAMILY\tMETRIC\tSEX\tROWS\tRANGE")
	for _, s := range store.Summaries() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%g-%g\n", s.Family, s.Metric, s.Sex, s.Rows, s.MinKey, s.MaxKey)
	}
	tw.Flush()
}
