// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// isolateHome points the config directory at a temp dir and clears overrides.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{
		"DOCENT_API_URL", "DOCENT_REQUEST_TIMEOUT", "DOCENT_CHAT_TIMEOUT", "DOCENT_CREDENTIAL_STORE",
		"DOCENT_PROVIDER", "DOCENT_MODEL", "DOCENT_THEME", "DOCENT_NO_CACHE",
	} {
		t.Setenv(k, "")
	}
	return home
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.API.ChatTimeout() != 120*time.Second {
		t.Errorf("ChatTimeout() = %v, want 120s", cfg.API.ChatTimeout())
	}
	if cfg.API.RequestTimeout() != 30*time.Second {
		t.Errorf("RequestTimeout() = %v, want 30s", cfg.API.RequestTimeout())
	}
	if cfg.API.BaseURL != "http://localhost:5000/api" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolateHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.CredentialStore != StoreKeyring {
		t.Errorf("CredentialStore = %q, want keyring", cfg.Auth.CredentialStore)
	}
	if !cfg.Cache.Enabled || !cfg.UI.Markdown {
		t.Error("boolean defaults lost")
	}
}

func TestSaveAndLoad(t *testing.T) {
	isolateHome(t)

	cfg := Default()
	cfg.API.BaseURL = "https://docent.example.com/api"
	cfg.Chat.Provider = "claude"
	cfg.Chat.Model = "claude-3-opus-20240229"
	cfg.UI.Markdown = false
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path, _ := ConfigPathTOML()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %o, want 600", info.Mode().Perm())
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.API.BaseURL != cfg.API.BaseURL || loaded.Chat.Model != cfg.Chat.Model {
		t.Errorf("Load() = %+v", loaded)
	}
	if loaded.UI.Markdown {
		t.Error("ui.markdown = true, want false as saved")
	}
}

func TestLoadFromPath_PartialFileKeepsDefaults(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[api]\nbase_url = \"http://10.0.0.5:5000/api\"\n"), 0600)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.API.BaseURL != "http://10.0.0.5:5000/api" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.ChatTimeoutSecs != 120 || !cfg.Cache.Enabled {
		t.Errorf("defaults not kept: %+v", cfg)
	}
}

func TestLoadFromPath_Invalid(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[auth]\ncredential_store = \"vault\"\n"), 0600)

	_, err := LoadFromPath(path)
	var verrs ValidateErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("err = %v, want ValidateErrors", err)
	}
	if verrs[0].Field != "auth.credential_store" {
		t.Errorf("Field = %q", verrs[0].Field)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad url", func(c *Config) { c.API.BaseURL = "localhost:5000" }, "api.base_url"},
		{"zero timeout", func(c *Config) { c.API.ChatTimeoutSecs = 0 }, "api.chat_timeout_secs"},
		{"unknown provider", func(c *Config) { c.Chat.Provider = "mistral" }, "chat.provider"},
		{"model outside catalog", func(c *Config) { c.Chat.Provider = "groq"; c.Chat.Model = "gpt-4o" }, "chat.model"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"bad extension", func(c *Config) { c.Watch.Extensions = []string{"exe"} }, "watch.extensions"},
		{"no throughput", func(c *Config) { c.Watch.UploadsPerMinute = 0 }, "watch.uploads_per_minute"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verrs ValidateErrors
			if !errors.As(err, &verrs) || len(verrs) != 1 || verrs[0].Field != tt.field {
				t.Errorf("Validate() = %v, want one error on %s", err, tt.field)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	isolateHome(t)
	t.Setenv("DOCENT_API_URL", "https://api.example.org/api")
	t.Setenv("DOCENT_CHAT_TIMEOUT", "45")
	t.Setenv("DOCENT_CREDENTIAL_STORE", "file")
	t.Setenv("DOCENT_PROVIDER", "gemini")
	t.Setenv("DOCENT_NO_CACHE", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.API.BaseURL != "https://api.example.org/api" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.ChatTimeoutSecs != 45 {
		t.Errorf("ChatTimeoutSecs = %d, want 45", cfg.API.ChatTimeoutSecs)
	}
	if cfg.Auth.CredentialStore != StoreFile || cfg.Chat.Provider != "gemini" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Cache.Enabled {
		t.Error("DOCENT_NO_CACHE did not disable the cache")
	}
}

func TestLoadEnvFiles_DoesNotOverrideEnvironment(t *testing.T) {
	home := isolateHome(t)
	os.MkdirAll(filepath.Join(home, ".docent"), 0700)
	os.WriteFile(filepath.Join(home, ".docent", ".env"), []byte("DOCENT_THEME=light\nDOCENT_MODEL=gpt-4o\n"), 0600)
	t.Setenv("DOCENT_MODEL", "gpt-4o-mini")
	t.Setenv("DOCENT_THEME", "")
	os.Unsetenv("DOCENT_THEME")

	t.Chdir(t.TempDir())

	if err := LoadEnvFiles(); err != nil {
		t.Fatalf("LoadEnvFiles() error = %v", err)
	}
	if os.Getenv("DOCENT_THEME") != "light" {
		t.Errorf("DOCENT_THEME = %q, want light from .env", os.Getenv("DOCENT_THEME"))
	}
	if os.Getenv("DOCENT_MODEL") != "gpt-4o-mini" {
		t.Errorf("DOCENT_MODEL = %q, want the pre-set value", os.Getenv("DOCENT_MODEL"))
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("api.base_url", "https://x.example/api"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Set("api.max_retries", "4"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Set("cache.enabled", "false"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Set("watch.extensions", "pdf, txt"); err != nil {
		t.Fatal(err)
	}

	got, err := cfg.Get("api.base_url")
	if err != nil || got != "https://x.example/api" {
		t.Errorf("Get(api.base_url) = %v, %v", got, err)
	}
	if cfg.API.MaxRetries != 4 || cfg.Cache.Enabled {
		t.Errorf("Set did not convert: %+v", cfg.API)
	}
	if len(cfg.Watch.Extensions) != 2 || cfg.Watch.Extensions[1] != "txt" {
		t.Errorf("Extensions = %v", cfg.Watch.Extensions)
	}

	if err := cfg.Set("api.nope", "x"); err == nil {
		t.Error("Set(unknown) error = nil")
	}
	if err := cfg.Set("api.max_retries", "many"); err == nil {
		t.Error("Set(non-integer) error = nil")
	}
	if _, err := cfg.Get("api.base_url.host"); err == nil {
		t.Error("Get through a non-struct error = nil")
	}
}

func TestGetAllKeys_Resolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q) error = %v", key, err)
		}
	}
}

func TestPaths(t *testing.T) {
	home := isolateHome(t)
	cfg := Default()

	p, _ := cfg.TokenFilePath()
	if p != filepath.Join(home, ".docent", "credentials.json") {
		t.Errorf("TokenFilePath() = %q", p)
	}
	cfg.Cache.Path = "/tmp/x.db"
	if p, _ := cfg.CachePath(); p != "/tmp/x.db" {
		t.Errorf("CachePath() = %q", p)
	}
}

// =============================================================================
// GLOBAL SINGLETON
// =============================================================================

func TestConfig_ConcurrentAccess(t *testing.T) {
	isolateHome(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolateHome(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	_ = Global()
	custom := Default()
	custom.UI.Theme = "light"
	SetGlobal(custom)

	if Global().UI.Theme != "light" {
		t.Errorf("Global().UI.Theme = %q, want light", Global().UI.Theme)
	}
}

func TestConfig_GlobalFallsBackOnInvalidFile(t *testing.T) {
	home := isolateHome(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	os.MkdirAll(filepath.Join(home, ".docent"), 0700)
	os.WriteFile(filepath.Join(home, ".docent", "config.toml"), []byte("[ui]\ntheme = \"neon\"\n"), 0600)

	cfg := Global()
	if cfg == nil || cfg.UI.Theme != "auto" {
		t.Errorf("Global() = %+v, want defaults", cfg)
	}
}
