package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/bnchat/internal/session"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", cfg.Endpoint)
	assert.Zero(t, cfg.RequestTimeout)
	assert.Equal(t, session.DefaultSearchQuota, cfg.SearchQuota)
	assert.Equal(t, session.DefaultSearchTokens, cfg.SearchTokens)
	assert.Equal(t, filepath.Join(dir, "cache", "bnchat", "bnchat.log"), cfg.LogFile)
	assert.True(t, cfg.AltScreen)
	assert.Empty(t, cfg.ArchiveFile)
	assert.Empty(t, cfg.File)
}

func TestLoadPrecedence(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "bnchat.yaml")
	require.NoError(t, os.WriteFile(file, []byte(
		"endpoint: http://file.example:8080/\nsearch_quota: 10\nrequest_timeout: 15s\narchive_file: /tmp/a.json\n",
	), 0o644))
	t.Setenv("BNCHAT_SEARCH_QUOTA", "20")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("endpoint", "", "")
	flags.Bool("verbose", false, "")
	require.NoError(t, flags.Parse([]string{"--endpoint", "https://flag.example"}))

	v := NewViper()
	require.NoError(t, BindFlags(v, flags))
	cfg, err := Load(v, file)
	require.NoError(t, err)

	assert.Equal(t, "https://flag.example", cfg.Endpoint, "flag beats file")
	assert.Equal(t, 20, cfg.SearchQuota, "env beats file")
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "/tmp/a.json", cfg.ArchiveFile)
	assert.False(t, cfg.Verbose, "unset flag keeps default")
	assert.Equal(t, file, cfg.File)
}

func TestLoadReadsDefaultConfigLocation(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config", "bnchat", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("search_tokens: [what, how]\n"), 0o644))

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"what", "how"}, cfg.SearchTokens)
	assert.Equal(t, path, cfg.File)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	dir := isolate(t)

	_, err := Load(NewViper(), filepath.Join(dir, "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{Endpoint: "http://localhost:5000", SearchQuota: 50}
	require.NoError(t, base.Validate())

	cases := map[string]func(*Config){
		"relative endpoint": func(c *Config) { c.Endpoint = "localhost:5000" },
		"ftp endpoint":      func(c *Config) { c.Endpoint = "ftp://host" },
		"zero quota":        func(c *Config) { c.SearchQuota = 0 },
		"negative timeout":  func(c *Config) { c.RequestTimeout = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
