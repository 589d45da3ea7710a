// Package config resolves MWS credentials, seller and marketplace identifiers
// and per-service endpoints for client packs.
package config

import (
	"fmt"
	"strings"
	"time"
)

// DefaultServiceURLs maps an Amazon site code to its regional MWS endpoint.
var DefaultServiceURLs = map[string]string{
	"US": "https://mws.amazonservices.com",
	"CA": "https://mws.amazonservices.com",
	"MX": "https://mws.amazonservices.com",
	"UK": "https://mws-eu.amazonservices.com",
	"DE": "https://mws-eu.amazonservices.com",
	"FR": "https://mws-eu.amazonservices.com",
	"IT": "https://mws-eu.amazonservices.com",
	"ES": "https://mws-eu.amazonservices.com",
	"IN": "https://mws.amazonservices.in",
	"JP": "https://mws.amazonservices.jp",
	"AU": "https://mws.amazonservices.com.au",
	"CN": "https://mws.amazonservices.com.cn",
}

// DefaultMarketplaceIDs maps an Amazon site code to its marketplace id.
var DefaultMarketplaceIDs = map[string]string{
	"US": "ATVPDKIKX0DER",
	"CA": "A2EUQ1WTGCTBG2",
	"MX": "A1AM78C64UM0Y8",
	"UK": "A1F83G8C2ARO7P",
	"DE": "A1PA6795UKMFR9",
	"FR": "A13V1IB3VIYZZH",
	"IT": "APJ6JRA9NG5V4",
	"ES": "A1RKKUPIHCS9HS",
	"IN": "A21TJRUUN4KGV",
	"JP": "A1VC38T7YXB528",
	"AU": "A39IBJ37TRP1C6",
	"CN": "AAHKV2X7AFYLW",
}

// PoolConfig holds everything a client pack needs to talk to MWS for one
// seller account on one Amazon site.
type PoolConfig struct {
	AccessKey          string `mapstructure:"access_key" validate:"required"`
	SecretKey          string `mapstructure:"secret_key" validate:"required"`
	ApplicationName    string `mapstructure:"application_name" validate:"required"`
	ApplicationVersion string `mapstructure:"application_version" validate:"required"`
	SellerID           string `mapstructure:"seller_id" validate:"required"`

	// MWSAuthToken is set when calling on behalf of another seller.
	MWSAuthToken string `mapstructure:"mws_auth_token"`

	// AmazonSite is the site code (e.g. "UK", "DE", "US").
	AmazonSite string `mapstructure:"amazon_site" validate:"required"`

	// MarketplaceIDs overrides or extends DefaultMarketplaceIDs.
	MarketplaceIDs map[string]string `mapstructure:"marketplace_ids"`

	// ServiceURL overrides the regional endpoint of AmazonSite.
	ServiceURL string `mapstructure:"service_url" validate:"omitempty,url"`

	Transport TransportConfig `mapstructure:"transport"`
	Throttle  ThrottleConfig  `mapstructure:"throttle"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// TransportConfig tunes the HTTP transport.
type TransportConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxErrorRetry int           `mapstructure:"max_error_retry" validate:"gte=0,lte=10"`

	// MaxRequestsPerSecond caps outbound requests across all actions. Zero disables the cap.
	MaxRequestsPerSecond float64 `mapstructure:"max_requests_per_second" validate:"gte=0"`
	Burst                int     `mapstructure:"burst" validate:"gte=0"`
}

// ThrottleConfig tunes per-method throttling.
type ThrottleConfig struct {
	// MaxWait bounds how long a call waits for a throttle token. Zero means unbounded.
	MaxWait time.Duration `mapstructure:"max_wait" validate:"gte=0"`

	// RedisAddr enables the shared Redis bucket store when set.
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"gte=0"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Pretty bool   `mapstructure:"pretty"`
}

// ServiceConfig is the transport configuration for a single MWS service.
type ServiceConfig struct {
	ServiceURL         string
	AccessKey          string
	SecretKey          string
	ApplicationName    string
	ApplicationVersion string
	MWSAuthToken       string
	Transport          TransportConfig
}

// Default returns a configuration with transport defaults filled in.
func Default() PoolConfig {
	return PoolConfig{
		Transport: TransportConfig{
			Timeout:       30 * time.Second,
			MaxErrorRetry: 3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// MarketplaceID resolves the marketplace id of an Amazon site.
func (c *PoolConfig) MarketplaceID(site string) (string, error) {
	site = strings.ToUpper(strings.TrimSpace(site))
	if id, ok := c.MarketplaceIDs[site]; ok && id != "" {
		return id, nil
	}
	// Keys decoded by viper are lower-cased.
	if id, ok := c.MarketplaceIDs[strings.ToLower(site)]; ok && id != "" {
		return id, nil
	}
	if id, ok := DefaultMarketplaceIDs[site]; ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSite, site)
}

// ConfigForService resolves the transport configuration of the service at
// the given path suffix (e.g. "/Orders/2013-09-01").
func (c *PoolConfig) ConfigForService(suffix string) (ServiceConfig, error) {
	if err := c.Validate(); err != nil {
		return ServiceConfig{}, err
	}

	base := c.ServiceURL
	if base == "" {
		site := strings.ToUpper(strings.TrimSpace(c.AmazonSite))
		var ok bool
		base, ok = DefaultServiceURLs[site]
		if !ok {
			return ServiceConfig{}, fmt.Errorf("%w: no endpoint for %q", ErrUnknownSite, site)
		}
	}

	if suffix != "" && !strings.HasPrefix(suffix, "/") {
		suffix = "/" + suffix
	}

	return ServiceConfig{
		ServiceURL:         strings.TrimRight(base, "/") + suffix,
		AccessKey:          c.AccessKey,
		SecretKey:          c.SecretKey,
		ApplicationName:    c.ApplicationName,
		ApplicationVersion: c.ApplicationVersion,
		MWSAuthToken:       c.MWSAuthToken,
		Transport:          c.Transport,
	}, nil
}
