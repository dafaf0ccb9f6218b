package daemon

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultConfigFile is consulted when no --config flag is given.
const DefaultConfigFile = "/etc/confloom/confloomd.yaml"

// envPrefix namespaces the daemon's environment variables, e.g.
// CONFLOOM_LISTEN or CONFLOOM_LOG_LEVEL. A double underscore descends
// into nested keys.
const envPrefix = "CONFLOOM_"

// Options holds the resolved daemon configuration.
type Options struct {
	Listen      string            `koanf:"listen"`
	HTTPSListen string            `koanf:"https_listen"`
	TLS         bool              `koanf:"tls"`
	Dir         string            `koanf:"dir"`
	LogLevel    string            `koanf:"log_level"`
	HistorySize int               `koanf:"history_size"`
	EventBuffer int               `koanf:"event_buffer"`
	Users       map[string]string `koanf:"users"`
	APIKeys     []string          `koanf:"api_keys"`
}

// LoadOptions resolves daemon options by layering, lowest to highest
// precedence: built-in defaults, the YAML config file, CONFLOOM_*
// environment variables, and explicitly changed command-line flags.
func LoadOptions(cfgFile string, flags *pflag.FlagSet) (Options, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"listen":       "127.0.0.1:8338",
		"https_listen": "",
		"tls":          false,
		"dir":          "",
		"log_level":    "info",
		"history_size": defaultHistorySize,
		"event_buffer": defaultEventBuffer,
	}, "."), nil); err != nil {
		return Options{}, fmt.Errorf("load defaults: %w", err)
	}

	// 2. Config file. An explicit path must exist; the default path is
	// only loaded when present.
	explicit := cfgFile != ""
	if cfgFile == "" {
		cfgFile = DefaultConfigFile
	}
	if _, err := os.Stat(cfgFile); err == nil {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return Options{}, fmt.Errorf("read config file %s: %w", cfgFile, err)
		}
	} else if explicit {
		return Options{}, fmt.Errorf("config file %s: %w", cfgFile, err)
	}

	// 3. Environment variables: CONFLOOM_LOG_LEVEL -> log_level
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return Options{}, fmt.Errorf("load environment: %w", err)
	}

	// 4. Command-line flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return Options{}, fmt.Errorf("load flags: %w", err)
		}
	}

	var opts Options
	if err := k.Unmarshal("", &opts); err != nil {
		return Options{}, fmt.Errorf("decode options: %w", err)
	}
	return opts, nil
}
