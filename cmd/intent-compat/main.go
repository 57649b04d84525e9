// Package main provides a CLI that checks the action catalog used by the
// presentation layer against the intents this build accepts.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"snapfeed/internal/store"

	"gopkg.in/yaml.v3"
)

type catalog struct {
	Slices map[string][]string `yaml:"slices"`
}

func main() {
	catalogPath := flag.String("catalog", "intents.yml", "action catalog path")
	strict := flag.Bool("strict", false, "also fail on accepted types missing from the catalog")
	flag.Parse()

	if strings.TrimSpace(*catalogPath) == "" {
		fmt.Fprintln(os.Stderr, "usage: intent-compat -catalog <path> [-strict]")
		os.Exit(2)
	}

	expected, err := loadCatalog(*catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load catalog: %v\n", err)
		os.Exit(1)
	}

	missing, unlisted := compare(expected, store.IntentTypes())
	for _, t := range unlisted {
		fmt.Fprintf(os.Stderr, "note: %s is accepted but not in the catalog\n", t)
	}
	if len(missing) > 0 || (*strict && len(unlisted) > 0) {
		fmt.Fprintln(os.Stderr, "intent compatibility check failed:")
		for _, t := range missing {
			fmt.Fprintf(os.Stderr, "- %s is no longer accepted\n", t)
		}
		os.Exit(1)
	}

	fmt.Println("intent compatibility check passed")
}

func loadCatalog(path string) ([]string, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseCatalog(raw)
}

// parseCatalog flattens slices into "slice/name" action types.
func parseCatalog(raw []byte) ([]string, error) {
	var c catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if len(c.Slices) == 0 {
		return nil, errors.New("missing top-level slices field")
	}

	var out []string
	for slice, names := range c.Slices {
		slice = strings.TrimSpace(slice)
		for _, name := range names {
			name = strings.TrimSpace(name)
			if slice == "" || name == "" {
				continue
			}
			out = append(out, slice+"/"+name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// compare returns the catalog types the build rejects and the accepted types
// the catalog does not list. Both are sorted.
func compare(expected, accepted []string) (missing, unlisted []string) {
	acceptedSet := make(map[string]struct{}, len(accepted))
	for _, t := range accepted {
		acceptedSet[t] = struct{}{}
	}
	expectedSet := make(map[string]struct{}, len(expected))
	for _, t := range expected {
		expectedSet[t] = struct{}{}
		if _, ok := acceptedSet[t]; !ok {
			missing = append(missing, t)
		}
	}
	for _, t := range accepted {
		if _, ok := expectedSet[t]; !ok {
			unlisted = append(unlisted, t)
		}
	}
	sort.Strings(missing)
	sort.Strings(unlisted)
	return missing, unlisted
}
