// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package config resolves settings from defaults, an optional mdip.yaml,
// an optional .env file, MDIP_* environment variables and command flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const (
	EnvPrefix  = "MDIP"
	EnvFile    = ".env"
	ConfigName = "mdip"
)

// Config holds the resolved settings.
type Config struct {
	DB             string        `mapstructure:"db"`
	Data           string        `mapstructure:"data"`
	Addr           string        `mapstructure:"addr"`
	BcryptCost     int           `mapstructure:"bcrypt-cost"`
	SessionTTL     time.Duration `mapstructure:"session-ttl"`
	UploadMaxBytes int64         `mapstructure:"upload-max-bytes"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Default holds the values used when nothing else sets a key.
var Default = Config{
	DB:             "mdip.db",
	Data:           "data",
	Addr:           ":8787",
	BcryptCost:     bcrypt.DefaultCost,
	SessionTTL:     24 * time.Hour,
	UploadMaxBytes: 10 << 20,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", Default.DB)
	v.SetDefault("data", Default.Data)
	v.SetDefault("addr", Default.Addr)
	v.SetDefault("bcrypt-cost", Default.BcryptCost)
	v.SetDefault("session-ttl", Default.SessionTTL)
	v.SetDefault("upload-max-bytes", Default.UploadMaxBytes)
	v.SetDefault("timeout", Default.Timeout)
}

// Load reads the configuration from the OS filesystem.
// configFile may be empty, in which case ./mdip.yaml is used if present.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	return LoadFS(afero.NewOsFs(), flags, configFile)
}

// LoadFS is Load with the config file read from fsys.
func LoadFS(fsys afero.Fs, flags *pflag.FlagSet, configFile string) (*Config, error) {
	if err := godotenv.Load(EnvFile); err == nil {
		log.Printf("config: loaded %s", EnvFile)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", EnvFile, err)
	}

	v := viper.New()
	v.SetFs(fsys)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt-cost %d: must be between %d and %d", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session-ttl %v: must be positive", c.SessionTTL)
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("upload-max-bytes %d: must be positive", c.UploadMaxBytes)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout %v: must not be negative", c.Timeout)
	}
	return nil
}
