package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/chatkitd/chatkitd/config"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) TestDefaults() {
	cfg, err := config.FromEnv()
	s.Require().NoError(err)

	s.Equal("chatkitd", cfg.Name())
	s.Equal(":8080", cfg.HTTPServerPort)
	s.Equal("memory://", cfg.CacheDSN)
	s.Equal("https://api.openai.com", cfg.UpstreamBaseURL)
	s.Equal("en", cfg.DefaultLanguage)
	s.Equal(10, cfg.SessionLimitFor(false))
	s.Equal(60, cfg.SessionLimitFor(true))
	s.Equal(30*time.Second, cfg.SessionTimeout)
	s.Equal(10*time.Second, cfg.TestTimeout)
	s.False(cfg.Multilingual())
}

func (s *ConfigSuite) TestEnvOverrides() {
	s.T().Setenv("SUPPORTED_LANGUAGES", "en,it,fr")
	s.T().Setenv("ADMIN_API_KEYS", "key-one, key-two")
	s.T().Setenv("SESSION_RATE_LIMIT", "3")

	cfg, err := config.FromEnv()
	s.Require().NoError(err)

	s.True(cfg.Multilingual())
	s.Equal([]string{"en", "it", "fr"}, cfg.SupportedLanguages)
	s.Equal(3, cfg.SessionLimitFor(false))

	s.True(cfg.IsAdminKey("key-one"))
	s.True(cfg.IsAdminKey("key-two"))
	s.False(cfg.IsAdminKey("missing"))
	s.False(cfg.IsAdminKey(""))
}

func (s *ConfigSuite) TestContextHelpers() {
	cfg := &config.Service{ServiceName: "svc"}

	ctx := config.ToContext(context.Background(), cfg)
	s.Equal("svc", config.FromContext(ctx).Name())
	s.Nil(config.FromContext(context.Background()))
}
