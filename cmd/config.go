package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/teemow/workspace-mcp/internal/google"
)

const configFileName = "config.yaml"

// defaultConfigFile lives next to the OAuth client file.
func defaultConfigFile() string {
	return filepath.Join(google.DefaultPaths().ConfigDir, configFileName)
}

// changedFlags records which flags were given on the command line.
func changedFlags(cmd *cobra.Command) func(string) bool {
	explicit := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		explicit[f.Name] = true
	})
	return func(name string) bool { return explicit[name] }
}

// applyConfigFile sets every flag named in the YAML file at path unless it
// was given on the command line. Keys are flag names, for example
//
//	transport: streamable-http
//	http-addr: 127.0.0.1:8080
//	callback-timeout: 2m
//
// A missing file is only an error when required is set.
func applyConfigFile(cmd *cobra.Command, path string, required bool, explicit func(string) bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	values := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("error loading config from %s: %w", path, err)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if name == "config" || cmd.Flags().Lookup(name) == nil {
			return fmt.Errorf("unknown setting %q in %s", name, path)
		}
		if explicit(name) {
			continue
		}
		if err := cmd.Flags().Set(name, fmt.Sprint(values[name])); err != nil {
			return fmt.Errorf("invalid value for %q in %s: %w", name, path, err)
		}
	}

	slog.Debug("Loaded configuration", "path", path, "settings", len(names))
	return nil
}
