// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SimpleAuth Contributors

package settings

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// envPrefix namespaces the environment variables read by Load.
// SIMPLEAUTH_LOCKOUT_THRESHOLD maps to lockout_threshold and a double
// underscore descends into nested sections, so SIMPLEAUTH_ARGON2__TIME_COST
// maps to argon2.time_cost.
const envPrefix = "SIMPLEAUTH_"

// Load builds a Settings value from the built-in defaults, an optional
// YAML config file, SIMPLEAUTH_-prefixed environment variables, and
// command-line flags, in that precedence order. The returned value is
// validated as a whole.
func Load(configPath string, flags *pflag.FlagSet) (Settings, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return Settings{}, oops.Code("SETTINGS_LOAD_FAILED").
				With("operation", "load config file").
				With("path", configPath).
				Wrap(err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(key string) string {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return Settings{}, oops.Code("SETTINGS_LOAD_FAILED").
			With("operation", "load environment").
			Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Settings{}, oops.Code("SETTINGS_LOAD_FAILED").
				With("operation", "load flags").
				Wrap(err)
		}
	}

	s := Default()
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, oops.Code("SETTINGS_LOAD_FAILED").
			With("operation", "unmarshal settings").
			Wrap(err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
