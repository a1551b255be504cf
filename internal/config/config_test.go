package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "pijudrc")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_JSON5Syntax(t *testing.T) {
	dir := t.TempDir()
	musicDir := filepath.Join(dir, "music")
	downloadDir := filepath.Join(dir, "downloads")
	for _, d := range []string{musicDir, downloadDir} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	// comments and trailing commas are legal in JSON5
	path := writeConfig(t, dir, `{
		// local library
		music_dir: "`+musicDir+`",
		download_dir: "`+downloadDir+`",
		server_name: "piju.local",
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MusicDir != musicDir {
		t.Errorf("MusicDir = %q, want %q", cfg.MusicDir, musicDir)
	}
	if cfg.DownloadDir != downloadDir {
		t.Errorf("DownloadDir = %q, want %q", cfg.DownloadDir, downloadDir)
	}
	if cfg.ServerName != "piju.local" {
		t.Errorf("ServerName = %q, want piju.local", cfg.ServerName)
	}
	if cfg.Cookies != "" {
		t.Errorf("Cookies = %q, want empty", cfg.Cookies)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("Load should fail for a missing config file")
	}
}

func TestLoad_MissingMusicDir(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{music_dir: "`+filepath.Join(dir, "absent")+`"}`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load should fail when music_dir does not exist")
	}
}

func TestLoad_MissingCookiesFile(t *testing.T) {
	dir := t.TempDir()
	musicDir := filepath.Join(dir, "music")
	if err := os.Mkdir(musicDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := writeConfig(t, dir, `{
		music_dir: "`+musicDir+`",
		download_dir: "`+dir+`",
		cookies: "`+filepath.Join(dir, "absent.txt")+`",
	}`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load should fail when the cookies file does not exist")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	musicDir := filepath.Join(dir, "music")
	if err := os.Mkdir(musicDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := writeConfig(t, dir, `{music_dir: "`+musicDir+`", download_dir: "`+dir+`"}`)
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MusicDir != musicDir {
		t.Errorf("MusicDir = %q, want %q", cfg.MusicDir, musicDir)
	}
}
