package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads and validates a YAML configuration file. String values may
// reference environment variables with ${VAR_NAME} syntax; unset
// variables interpolate to the empty string.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	interpolated, ok := interpolateEnvVars(v.AllSettings()).(map[string]any)
	if !ok {
		return nil, types.NewError(types.CONFIG_LOAD_FAILED, "config root must be a mapping")
	}

	merged := viper.New()
	if err := merged.MergeConfigMap(interpolated); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to merge config settings", err)
	}

	cfg := DefaultConfig()
	if err := merged.Unmarshal(cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to unmarshal config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithDefaults behaves like Load but returns DefaultConfig when the
// file does not exist.
func LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

// interpolateEnvVars walks the settings tree replacing ${VAR_NAME}
// references in string values.
func interpolateEnvVars(data any) any {
	switch v := data.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, value := range v {
			result[key] = interpolateEnvVars(value)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, value := range v {
			result[i] = interpolateEnvVars(value)
		}
		return result
	case string:
		return envVarPattern.ReplaceAllStringFunc(v, func(match string) string {
			name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
			return os.Getenv(name)
		})
	default:
		return v
	}
}
