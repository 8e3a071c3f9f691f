package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagBindings maps command-line flags to configuration keys.
var flagBindings = []struct {
	flag  string
	key   string
	usage string
}{
	{"router", "router_type", "router adapter (nethttp, gin, gorilla)"},
	{"port", "http.port", "public API port"},
	{"management", "management.enabled", "enable the management server"},
	{"management-port", "management.port", "management server port"},
	{"log-level", "observability.log_level", "log level (debug, info, warn, error)"},
	{"log-format", "observability.log_format", "log format (json, text)"},
	{"mock-seed", "mock.seed", "seed for reproducible mock outcomes (0 = random)"},
}

// RegisterFlags adds the configuration override flags to flags. Flag
// defaults mirror DefaultConfig; only flags set explicitly override other
// sources.
func RegisterFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig()
	for _, binding := range flagBindings {
		if flags.Lookup(binding.flag) != nil {
			continue
		}
		switch binding.key {
		case "router_type":
			flags.String(binding.flag, defaults.RouterType, binding.usage)
		case "http.port":
			flags.Int(binding.flag, defaults.HTTP.Port, binding.usage)
		case "management.enabled":
			flags.Bool(binding.flag, defaults.Management.Enabled, binding.usage)
		case "management.port":
			flags.Int(binding.flag, defaults.Management.Port, binding.usage)
		case "observability.log_level":
			flags.String(binding.flag, defaults.Observability.LogLevel, binding.usage)
		case "observability.log_format":
			flags.String(binding.flag, defaults.Observability.LogFormat, binding.usage)
		case "mock.seed":
			flags.Uint64(binding.flag, defaults.Mock.Seed, binding.usage)
		}
	}
}

func (l *ViperLoader) bindFlags(v *viper.Viper) error {
	if l.flags == nil {
		return nil
	}
	for _, binding := range flagBindings {
		flag := l.flags.Lookup(binding.flag)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(binding.key, flag); err != nil {
			return fmt.Errorf("bind flag --%s: %w", binding.flag, err)
		}
	}
	return nil
}
