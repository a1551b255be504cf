// Package config loads the server configuration file.
//
// The file is JSON5 at $HOME/.pijudrc, overridable with the PIJU_CONFIG
// environment variable or the -c command line flag. Recognized keys are
// cookies, music_dir, download_dir and server_name; nothing else is honored.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvConfigFile names the environment variable that overrides the default
// config file location.
const EnvConfigFile = "PIJU_CONFIG"

type Config struct {
	Cookies     string `koanf:"cookies"`      // cookie jar handed to the external downloader (optional)
	MusicDir    string `koanf:"music_dir"`    // root of the audio library
	DownloadDir string `koanf:"download_dir"` // where on-demand downloads land
	ServerName  string `koanf:"server_name"`  // externally visible host name
}

// DefaultPath returns the config file location used when neither the
// environment variable nor the command line names one.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pijudrc"
	}
	return filepath.Join(home, ".pijudrc")
}

// Load reads and validates the configuration.
// An empty path falls back to $PIJU_CONFIG, then to DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), json5Parser{}); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg := &Config{
		MusicDir:    defaultMusicDir(),
		DownloadDir: os.TempDir(),
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.MusicDir = expandPath(cfg.MusicDir)
	cfg.DownloadDir = expandPath(cfg.DownloadDir)
	cfg.Cookies = expandPath(cfg.Cookies)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if info, err := os.Stat(c.MusicDir); err != nil || !info.IsDir() {
		return fmt.Errorf("music directory %s not found", c.MusicDir)
	}
	if info, err := os.Stat(c.DownloadDir); err != nil || !info.IsDir() {
		return fmt.Errorf("download directory %s not found", c.DownloadDir)
	}
	if c.Cookies != "" {
		if _, err := os.Stat(c.Cookies); err != nil {
			return fmt.Errorf("cookies file %s not found", c.Cookies)
		}
	}
	return nil
}

func defaultMusicDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "Music"
	}
	return filepath.Join(home, "Music")
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
