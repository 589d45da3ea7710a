package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func validConfig() PoolConfig {
	cfg := Default()
	cfg.AccessKey = "AKIAEXAMPLE"
	cfg.SecretKey = "secret"
	cfg.ApplicationName = "OrderSync"
	cfg.ApplicationVersion = "1.0.0"
	cfg.SellerID = "SELLER1"
	cfg.AmazonSite = "UK"
	return cfg
}

// LoaderTestSuite tests loading configuration from files and environment.
type LoaderTestSuite struct {
	suite.Suite
	tempDir string
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, new(LoaderTestSuite))
}

func (s *LoaderTestSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
}

func (s *LoaderTestSuite) writeConfig(content string) string {
	path := filepath.Join(s.tempDir, "mws.yaml")
	require.NoError(s.T(), os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (s *LoaderTestSuite) TestLoadFromFile() {
	path := s.writeConfig(`
access_key: AKIAEXAMPLE
secret_key: secret
application_name: OrderSync
application_version: 1.2.3
seller_id: SELLER1
amazon_site: DE
transport:
  timeout: 10s
  max_error_retry: 2
throttle:
  max_wait: 2m
  redis_addr: localhost:6379
marketplace_ids:
  DE: M1
`)

	cfg, err := Load(path)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), "SELLER1", cfg.SellerID)
	assert.Equal(s.T(), "DE", cfg.AmazonSite)
	assert.Equal(s.T(), 10*time.Second, cfg.Transport.Timeout)
	assert.Equal(s.T(), 2, cfg.Transport.MaxErrorRetry)
	assert.Equal(s.T(), 2*time.Minute, cfg.Throttle.MaxWait)
	assert.Equal(s.T(), "localhost:6379", cfg.Throttle.RedisAddr)

	id, err := cfg.MarketplaceID(cfg.AmazonSite)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "M1", id)
}

func (s *LoaderTestSuite) TestLoadAppliesDefaults() {
	path := s.writeConfig(`
access_key: AKIAEXAMPLE
secret_key: secret
application_name: OrderSync
application_version: 1.0.0
seller_id: SELLER1
amazon_site: US
`)

	cfg, err := Load(path)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), 30*time.Second, cfg.Transport.Timeout)
	assert.Equal(s.T(), 3, cfg.Transport.MaxErrorRetry)
	assert.Equal(s.T(), "info", cfg.Logging.Level)
	assert.Zero(s.T(), cfg.Throttle.MaxWait)
}

func (s *LoaderTestSuite) TestEnvironmentOverrides() {
	path := s.writeConfig(`
access_key: AKIAEXAMPLE
secret_key: secret
application_name: OrderSync
application_version: 1.0.0
seller_id: FROMFILE
amazon_site: UK
`)
	s.T().Setenv("MWS_SELLER_ID", "FROMENV")
	s.T().Setenv("MWS_THROTTLE_REDIS_ADDR", "redis:6379")

	cfg, err := Load(path)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), "FROMENV", cfg.SellerID)
	assert.Equal(s.T(), "redis:6379", cfg.Throttle.RedisAddr)
}

func (s *LoaderTestSuite) TestLoadMissingCredentials() {
	path := s.writeConfig(`
seller_id: SELLER1
amazon_site: UK
`)

	_, err := Load(path)
	require.Error(s.T(), err)
	assert.True(s.T(), errors.Is(err, ErrInvalidConfig))

	var fields FieldErrors
	require.True(s.T(), errors.As(err, &fields))
	assert.Contains(s.T(), err.Error(), "access_key: required")
	assert.Contains(s.T(), err.Error(), "secret_key: required")
}

func (s *LoaderTestSuite) TestLoadMissingFile() {
	_, err := Load(filepath.Join(s.tempDir, "absent.yaml"))
	assert.Error(s.T(), err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PoolConfig)
		wantErr error
	}{
		{name: "valid", mutate: func(*PoolConfig) {}},
		{name: "missing seller", mutate: func(c *PoolConfig) { c.SellerID = "" }, wantErr: ErrInvalidConfig},
		{name: "missing site", mutate: func(c *PoolConfig) { c.AmazonSite = "" }, wantErr: ErrInvalidConfig},
		{name: "unknown site", mutate: func(c *PoolConfig) { c.AmazonSite = "ZZ" }, wantErr: ErrUnknownSite},
		{name: "bad service url", mutate: func(c *PoolConfig) { c.ServiceURL = "not a url" }, wantErr: ErrInvalidConfig},
		{name: "negative retry", mutate: func(c *PoolConfig) { c.Transport.MaxErrorRetry = -1 }, wantErr: ErrInvalidConfig},
		{name: "bad log level", mutate: func(c *PoolConfig) { c.Logging.Level = "trace" }, wantErr: ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMarketplaceID(t *testing.T) {
	cfg := validConfig()
	cfg.MarketplaceIDs = map[string]string{"FR": "CUSTOM"}

	tests := []struct {
		site    string
		want    string
		wantErr bool
	}{
		{site: "UK", want: "A1F83G8C2ARO7P"},
		{site: "de", want: "A1PA6795UKMFR9"},
		{site: "FR", want: "CUSTOM"},
		{site: "XX", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.site, func(t *testing.T) {
			got, err := cfg.MarketplaceID(tt.site)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownSite)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigForService(t *testing.T) {
	cfg := validConfig()

	svc, err := cfg.ConfigForService("/Orders/2013-09-01")
	require.NoError(t, err)
	assert.Equal(t, "https://mws-eu.amazonservices.com/Orders/2013-09-01", svc.ServiceURL)
	assert.Equal(t, "AKIAEXAMPLE", svc.AccessKey)
	assert.Equal(t, "OrderSync", svc.ApplicationName)
	assert.Equal(t, 3, svc.Transport.MaxErrorRetry)

	cfg.ServiceURL = "http://127.0.0.1:8080/"
	svc, err = cfg.ConfigForService("Orders/2013-09-01")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/Orders/2013-09-01", svc.ServiceURL)

	cfg.AccessKey = ""
	_, err = cfg.ConfigForService("/Orders/2013-09-01")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
