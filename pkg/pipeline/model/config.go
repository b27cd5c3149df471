package model

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Config holds the settings of one plugin instance. It is never modified once the node is
// built.
type Config map[string]any

// ResolveConfig checks raw against the options the factory declares and fills in defaults.
func (f Factory) ResolveConfig(raw map[string]any) (Config, error) {
	known := make(map[string]OptionSpec, len(f.Options))
	for _, opt := range f.Options {
		known[opt.Name] = opt
	}

	var unknown []string
	for k := range raw {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, errors.Wrapf(ErrUnknownOption, "%s has no option %v", f.Name, unknown)
	}

	cfg := make(Config, len(f.Options))
	for _, opt := range f.Options {
		if v, ok := raw[opt.Name]; ok {
			cfg[opt.Name] = v
			continue
		}
		if opt.Default != nil {
			cfg[opt.Name] = opt.Default
		}
	}

	return cfg, nil
}

// Has reports whether key is set.
func (c Config) Has(key string) bool {
	_, ok := c[key]
	return ok
}

func (c Config) String(key string) string {
	return cast.ToString(c[key])
}

func (c Config) Bool(key string) bool {
	return cast.ToBool(c[key])
}

func (c Config) Int(key string) int {
	return cast.ToInt(c[key])
}

func (c Config) Duration(key string) time.Duration {
	return cast.ToDuration(c[key])
}

func (c Config) StringSlice(key string) []string {
	return cast.ToStringSlice(c[key])
}

// StringMap returns a nested map option, such as per-folder keyword lists.
func (c Config) StringMap(key string) map[string]any {
	return cast.ToStringMap(c[key])
}
