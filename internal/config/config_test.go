package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Port:           "8640",
		DBHost:         "localhost",
		DBPort:         "5432",
		DBUser:         "user",
		DBPassword:     "password",
		DBName:         "swap",
		DBSSLMode:      "disable",
		RedisURL:       "localhost:6379",
		Env:            "development",
		StatsSyncEvery: "24h",
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.Port = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.StatsSyncEvery = "often"
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateProductionPassword(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	cfg.DBPassword = "password"
	assert.Error(t, cfg.Validate())

	cfg.DBPassword = "s3cure-enough-for-a-test"
	assert.NoError(t, cfg.Validate())
}

func TestStatsSyncInterval(t *testing.T) {
	cfg := validConfig()
	cfg.StatsSyncEvery = "45m"
	assert.Equal(t, 45*time.Minute, cfg.StatsSyncInterval())

	// Unparseable values fall back to the daily default
	cfg.StatsSyncEvery = "bogus"
	assert.Equal(t, 24*time.Hour, cfg.StatsSyncInterval())
}
