// Package config loads the resolver's runtime configuration from
// environment variables, applying defaults and structural validation
// before the rest of the program ever sees an AppConfig value.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds the fully validated configuration for one resolver
// process.
type AppConfig struct {
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	Log      LoggingConfig  `koanf:"log" validate:"required"`
	Server   ServerConfig   `koanf:"server" validate:"required"`
	Resolver ResolverConfig `koanf:"resolver" validate:"required"`
	Cache    CacheConfig    `koanf:"cache" validate:"required"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `koanf:"level" validate:"required,oneof=debug info warn error"`
}

// ServerConfig controls the UDP listener.
type ServerConfig struct {
	// Port is the UDP port the resolver listens on.
	Port int `koanf:"port" validate:"required,gte=1,lte=65535"`
}

// ResolverConfig controls the iterative resolution engine. Tags are single
// tokens because the env loader turns every "_" into koanf's "." nesting
// separator, so RRDNS_RESOLVER_TIMEOUT maps to "resolver.timeout".
type ResolverConfig struct {
	// RootServers overrides the built-in 13 root hints, each in ip:port form.
	// default: the IANA root servers
	RootServers []string `koanf:"roots" validate:"omitempty,dive,ip_port"`

	// TimeoutMs bounds each outbound per-nameserver query, in milliseconds.
	// default: 5000
	TimeoutMs int `koanf:"timeout" validate:"required,gte=1"`

	// MaxDepth bounds referral hops plus CNAME/NS-name sub-resolutions.
	// default: 16
	MaxDepth int `koanf:"depth" validate:"required,gte=1"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	// MaxEntries bounds the number of cache keys, independent of weight.
	// default: 10000
	MaxEntries int `koanf:"entries" validate:"required,gte=1"`

	// MaxMemoryBytes bounds the cache's approximate total weight.
	// default: 10 MiB
	MaxMemoryBytes int `koanf:"memory" validate:"required,gte=1"`

	// MinTTLSeconds is the floor below which an answer is not cached at all.
	// default: 10
	MinTTLSeconds int `koanf:"minttl" validate:"gte=0"`

	// StatsIntervalSeconds is how often the background ticker logs cache
	// stats; 0 disables the ticker.
	// default: 300
	StatsIntervalSeconds int `koanf:"stats" validate:"gte=0"`
}

// DefaultAppConfig is the configuration used when no environment variable
// overrides a given key.
var DefaultAppConfig = AppConfig{
	Env: "prod",
	Log: LoggingConfig{
		Level: "info",
	},
	Server: ServerConfig{
		Port: 53,
	},
	Resolver: ResolverConfig{
		RootServers: nil, // nil means "use the built-in root hints"
		TimeoutMs:   5000,
		MaxDepth:    16,
	},
	Cache: CacheConfig{
		MaxEntries:           10_000,
		MaxMemoryBytes:       10 << 20,
		MinTTLSeconds:        10,
		StatsIntervalSeconds: 300,
	},
}

// validIPPort validates an "ip:port" formatted field.
func validIPPort(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	ip, port, err := net.SplitHostPort(addr)
	if err != nil || ip == "" || port == "" {
		return false
	}
	if net.ParseIP(ip) == nil {
		return false
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0 && portNum < 65536
}

// envLoader loads environment variables prefixed "RRDNS_", lowercasing and
// translating "_" separators into koanf's "." nesting, and splitting
// space/comma-separated values into slices (used by resolver.roots).
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "RRDNS_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, "RRDNS_")), "_", ".")
			value = strings.TrimSpace(value)
			if value == "" {
				return key, value
			}
			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}
			return key, value
		},
	}), nil)
}

// defaultLoader seeds koanf with DefaultAppConfig before env vars are applied.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil)
}

// registerValidation wires the custom "ip_port" validation tag.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("ip_port", validIPPort)
}

// Load builds an AppConfig from defaults overlaid with "RRDNS_"-prefixed
// environment variables, then validates the result.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("load default config: %w", err)
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("register validation: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
