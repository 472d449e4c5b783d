package config

import (
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of every environment override, e.g.
// ESTATE_BACKEND_URL sets backend.url.
const EnvPrefix = "ESTATE_"

// Config is the full runtime configuration.
type Config struct {
	Backend  Backend  `koanf:"backend"`
	Session  Session  `koanf:"session"`
	Chain    Chain    `koanf:"chain"`
	Portal   Portal   `koanf:"portal"`
	Activity Activity `koanf:"activity"`
	Log      Log      `koanf:"log"`
}

type Backend struct {
	URL       string        `koanf:"url"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"`
	RateBurst int           `koanf:"rate_burst"`
}

type Session struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

type Chain struct {
	RPCURL    string `koanf:"rpc_url"`
	ChainID   int64  `koanf:"chain_id"`
	Registry  string `koanf:"registry"`
	SignerKey string `koanf:"signer_key"`
}

type Portal struct {
	Addr                 string `koanf:"addr"`
	LoginPath            string `koanf:"login_path"`
	RejectedRouteKey     string `koanf:"rejected_route_key"`
	RejectedRouteDefault string `koanf:"rejected_route_default"`
	GuardMode            string `koanf:"guard_mode"`
}

type Activity struct {
	DBPath string `koanf:"db_path"`
}

type Log struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

// Defaults are applied before any file, environment or flag source.
func Defaults() map[string]any {
	return map[string]any{
		"backend.url":                   "http://localhost:8000",
		"backend.timeout":               "15s",
		"backend.rate_limit":            0.0,
		"backend.rate_burst":            5,
		"session.driver":                "file",
		"session.path":                  "",
		"chain.rpc_url":                 "http://localhost:8545",
		"chain.chain_id":                31337,
		"chain.registry":                "",
		"chain.signer_key":              "",
		"portal.addr":                   ":3000",
		"portal.login_path":             "/login",
		"portal.rejected_route_key":     "rejected_route",
		"portal.rejected_route_default": "/dashboard",
		"portal.guard_mode":             "redirect",
		"activity.db_path":              "",
		"log.level":                     "info",
		"log.development":               false,
	}
}

// Load merges defaults, the optional JSON file at path, ESTATE_ environment
// variables and finally any flags that were explicitly set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load config defaults")
	}

	if path != "" {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to load config file").
				WithMetadata(map[string]any{"path": path})
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load config environment")
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to load config flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps ESTATE_BACKEND_RATE_LIMIT to backend.rate_limit: the first
// underscore separates the section.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}
