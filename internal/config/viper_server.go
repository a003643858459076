package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadServerConfigWithViper loads daemon configuration using Viper,
// following the teacher's default/env-binding/file/unmarshal/validate
// pipeline (§6).
func LoadServerConfigWithViper(v *viper.Viper) (*Config, error) {
	setServerDefaults(v)
	setupServerEnvBinding(v)

	if err := loadConfigFile(v); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	config := &Config{}
	unmarshalServerConfig(v, config)

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setServerDefaults sets the values §6 documents as defaults.
func setServerDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "localhost")

	v.SetDefault("database_url", "./ordertracker.db")

	v.SetDefault("secret_key", "")
	v.SetDefault("encryption_key", "")

	v.SetDefault("jwt_algorithm", "HS256")
	v.SetDefault("jwt_expire_minutes", 1440)

	v.SetDefault("imap_settings.max_email_age_days", 7)
	v.SetDefault("imap_settings.check_uidvalidity", true)

	v.SetDefault("queue_settings.max_age_days", 7)
	v.SetDefault("queue_settings.max_per_user", 5000)

	v.SetDefault("logging.level", "info")

	v.SetDefault("admin.api_key", "")
	v.SetDefault("admin.auth_disabled", false)
}

// setupServerEnvBinding binds both an ORDERTRACKER_-prefixed namespace
// (new format) and legacy unprefixed variables, matching the teacher's
// dual-binding approach for backward compatibility.
func setupServerEnvBinding(v *viper.Viper) {
	v.SetEnvPrefix("ORDERTRACKER")
	v.AutomaticEnv()

	envBindings := map[string]string{
		"server.port":                     "SERVER_PORT",
		"server.host":                     "SERVER_HOST",
		"database_url":                    "DATABASE_URL",
		"secret_key":                      "SECRET_KEY",
		"encryption_key":                  "ENCRYPTION_KEY",
		"jwt_algorithm":                   "JWT_ALGORITHM",
		"jwt_expire_minutes":              "JWT_EXPIRE_MINUTES",
		"imap_settings.max_email_age_days": "IMAP_MAX_EMAIL_AGE_DAYS",
		"imap_settings.check_uidvalidity":  "IMAP_CHECK_UIDVALIDITY",
		"queue_settings.max_age_days":      "QUEUE_MAX_AGE_DAYS",
		"queue_settings.max_per_user":      "QUEUE_MAX_PER_USER",
		"logging.level":                    "LOG_LEVEL",
		"admin.api_key":                    "ADMIN_API_KEY",
		"admin.auth_disabled":              "DISABLE_ADMIN_AUTH",
	}

	for configKey, envSuffix := range envBindings {
		v.BindEnv(configKey, "ORDERTRACKER_"+envSuffix)
		v.BindEnv(configKey, envSuffix)
	}
}

// loadConfigFile loads a config file if one is present; absence is not
// an error (§6 "recognized options" are all optional with defaults).
func loadConfigFile(v *viper.Viper) error {
	if v.ConfigFileUsed() == "" {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.ordertracker")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	return nil
}

func unmarshalServerConfig(v *viper.Viper, config *Config) {
	config.ServerPort = v.GetString("server.port")
	config.ServerHost = v.GetString("server.host")
	config.DatabaseURL = v.GetString("database_url")

	config.SecretKey = v.GetString("secret_key")
	config.EncryptionKey = v.GetString("encryption_key")

	config.JWTAlgorithm = v.GetString("jwt_algorithm")
	config.JWTExpireMinutes = v.GetInt("jwt_expire_minutes")

	config.ImapMaxEmailAgeDays = v.GetInt("imap_settings.max_email_age_days")
	config.ImapCheckUIDValidity = v.GetBool("imap_settings.check_uidvalidity")

	config.QueueMaxAgeDays = v.GetInt("queue_settings.max_age_days")
	config.QueueMaxPerUser = v.GetInt("queue_settings.max_per_user")

	config.LogLevel = v.GetString("logging.level")

	config.AdminAPIKey = v.GetString("admin.api_key")
	config.DisableAdminAuth = v.GetBool("admin.auth_disabled")
}

// LoadServerConfig loads daemon configuration using a fresh Viper instance.
func LoadServerConfig() (*Config, error) {
	v := viper.New()
	return LoadServerConfigWithViper(v)
}

// LoadServerConfigWithFile loads daemon configuration from a specific file.
func LoadServerConfigWithFile(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	return LoadServerConfigWithViper(v)
}

// LoadServerConfigWithEnvFile loads daemon configuration after first
// loading a .env file into the process environment.
func LoadServerConfigWithEnvFile(envFile string) (*Config, error) {
	if envFile != "" {
		if err := LoadEnvFile(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else if err := LoadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	return LoadServerConfigWithViper(v)
}
