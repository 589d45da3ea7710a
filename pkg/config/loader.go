package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides,
// e.g. MWS_SELLER_ID or MWS_THROTTLE_REDIS_ADDR.
const EnvPrefix = "MWS"

// Load reads configuration from the YAML file at path (optional; when empty
// the working directory and $HOME/.mws are searched for mws.yaml) and from
// MWS_* environment variables, then validates it.
func Load(path string) (*PoolConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.mws")
		v.SetConfigName("mws")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the config file.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("access_key", "")
	v.SetDefault("secret_key", "")
	v.SetDefault("application_name", "")
	v.SetDefault("application_version", "")
	v.SetDefault("seller_id", "")
	v.SetDefault("mws_auth_token", "")
	v.SetDefault("amazon_site", "")
	v.SetDefault("service_url", "")

	v.SetDefault("transport.timeout", d.Transport.Timeout)
	v.SetDefault("transport.max_error_retry", d.Transport.MaxErrorRetry)
	v.SetDefault("transport.max_requests_per_second", 0)
	v.SetDefault("transport.burst", 0)

	v.SetDefault("throttle.max_wait", 0)
	v.SetDefault("throttle.redis_addr", "")
	v.SetDefault("throttle.redis_password", "")
	v.SetDefault("throttle.redis_db", 0)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.pretty", false)
}
