package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
)

// YAMLConfig is a kong.ConfigurationLoader for YAML configuration files.
// Flags are looked up by name, with dashes optionally replaced by
// underscores. E.g.:
//
//	backend: sqlite
//	data_dir: /var/lib/stow
//	log-level: debug
func YAMLConfig(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed parsing configuration: %w", err)
	}

	var f kong.ResolverFunc = func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		for _, name := range []string{flag.Name, strings.ReplaceAll(flag.Name, "-", "_")} {
			if v, ok := values[name]; ok {
				return v, nil
			}
		}
		return nil, nil
	}

	return f, nil
}
