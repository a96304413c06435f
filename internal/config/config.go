// Package config layers flags, BNCHAT_* environment variables, an optional
// YAML file and defaults into one Config.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/csheth/bnchat/internal/session"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "BNCHAT"

// Keys understood by Load.
const (
	KeyEndpoint       = "endpoint"
	KeyRequestTimeout = "request_timeout"
	KeySearchQuota    = "search_quota"
	KeySearchTokens   = "search_tokens"
	KeyLogFile        = "log_file"
	KeyVerbose        = "verbose"
	KeyArchiveFile    = "archive_file"
	KeyAltScreen      = "alt_screen"
	KeyAssumeYes      = "yes"
)

const defaultEndpoint = "http://localhost:5000"

// Config is the resolved runtime configuration.
type Config struct {
	Endpoint       string
	RequestTimeout time.Duration
	SearchQuota    int
	SearchTokens   []string
	LogFile        string
	Verbose        bool
	ArchiveFile    string
	AltScreen      bool
	AssumeYes      bool
	// File is the config file that was read, empty when none was found.
	File string
}

// NewViper returns a viper instance carrying the defaults and the
// environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyEndpoint, defaultEndpoint)
	v.SetDefault(KeyRequestTimeout, time.Duration(0))
	v.SetDefault(KeySearchQuota, session.DefaultSearchQuota)
	v.SetDefault(KeySearchTokens, session.DefaultSearchTokens)
	v.SetDefault(KeyLogFile, defaultLogFile())
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyArchiveFile, "")
	v.SetDefault(KeyAltScreen, true)
	v.SetDefault(KeyAssumeYes, false)
	return v
}

// BindFlags binds every flag whose name matches a key (with '-' for '_').
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, key := range []string{
		KeyEndpoint, KeyRequestTimeout, KeySearchQuota, KeySearchTokens,
		KeyLogFile, KeyVerbose, KeyArchiveFile, KeyAltScreen, KeyAssumeYes,
	} {
		flag := flags.Lookup(strings.ReplaceAll(key, "_", "-"))
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	}
	return nil
}

// Load reads the config file and resolves the final Config. An explicit
// file must exist; the default location is optional.
func Load(v *viper.Viper, file string) (Config, error) {
	explicit := file != ""
	if !explicit {
		file = defaultConfigFile()
	}
	var used string
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if explicit || !isNotFound(err) {
				return Config{}, fmt.Errorf("read config %s: %w", file, err)
			}
		} else {
			used = file
		}
	}

	cfg := Config{
		Endpoint:       strings.TrimRight(strings.TrimSpace(v.GetString(KeyEndpoint)), "/"),
		RequestTimeout: v.GetDuration(KeyRequestTimeout),
		SearchQuota:    v.GetInt(KeySearchQuota),
		SearchTokens:   v.GetStringSlice(KeySearchTokens),
		LogFile:        v.GetString(KeyLogFile),
		Verbose:        v.GetBool(KeyVerbose),
		ArchiveFile:    v.GetString(KeyArchiveFile),
		AltScreen:      v.GetBool(KeyAltScreen),
		AssumeYes:      v.GetBool(KeyAssumeYes),
		File:           used,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot coerce.
func (c Config) Validate() error {
	parsed, err := url.Parse(c.Endpoint)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("endpoint %q must be an absolute http(s) URL", c.Endpoint)
	}
	if c.SearchQuota <= 0 {
		return fmt.Errorf("search_quota must be positive, got %d", c.SearchQuota)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative, got %s", c.RequestTimeout)
	}
	return nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

func defaultConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "bnchat", "config.yaml")
}

func defaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "bnchat", "bnchat.log")
}
