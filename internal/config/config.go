// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/catalog"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete docent configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend connection
	API APIConfig `toml:"api" json:"api"`

	// Token persistence
	Auth AuthConfig `toml:"auth" json:"auth"`

	// Per-run chat overrides
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Local transcript cache
	Cache CacheConfig `toml:"cache" json:"cache"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Folder watcher
	Watch WatchConfig `toml:"watch" json:"watch"`
}

// APIConfig describes the backend.
type APIConfig struct {
	// BaseURL is the API root, including the /api prefix.
	BaseURL string `toml:"base_url" json:"base_url"`
	// RequestTimeoutSecs bounds reads and ordinary mutations.
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
	// ChatTimeoutSecs bounds a single question and uploads.
	ChatTimeoutSecs int `toml:"chat_timeout_secs" json:"chat_timeout_secs"`
	// MaxRetries is the number of extra attempts for idempotent reads.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
}

// AuthConfig controls where the session token is stored.
type AuthConfig struct {
	// CredentialStore is "keyring" (OS keychain) or "file".
	CredentialStore string `toml:"credential_store" json:"credential_store"`
	// TokenFile is the file store location (empty = ~/.docent/credentials.json).
	TokenFile string `toml:"token_file" json:"token_file"`
}

// ChatConfig overrides the account's LLM defaults for this machine.
// Both fields are optional.
type ChatConfig struct {
	Provider string `toml:"provider" json:"provider"`
	Model    string `toml:"model" json:"model"`
}

// CacheConfig controls the local transcript cache.
type CacheConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path of the sqlite database (empty = ~/.docent/cache.db).
	Path string `toml:"path" json:"path"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme is "dark", "light" or "auto".
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders answers with glamour.
	Markdown bool `toml:"markdown" json:"markdown"`
	// WordWrap is the markdown wrap width for the CLI (0 = terminal width).
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
	// ShowChunks opens the chat view with the context pane visible.
	ShowChunks bool `toml:"show_chunks" json:"show_chunks"`
}

// WatchConfig controls `docent watch`.
type WatchConfig struct {
	Extensions       []string `toml:"extensions" json:"extensions"`
	UploadsPerMinute int      `toml:"uploads_per_minute" json:"uploads_per_minute"`
	DebounceMs       int      `toml:"debounce_ms" json:"debounce_ms"`
}

// RequestTimeout returns the read timeout as a duration.
func (c APIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// ChatTimeout returns the chat timeout as a duration.
func (c APIConfig) ChatTimeout() time.Duration {
	return time.Duration(c.ChatTimeoutSecs) * time.Second
}

// Debounce returns the watcher debounce as a duration.
func (c WatchConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// =============================================================================
// DEFAULTS AND PATHS
// =============================================================================

// Credential store kinds.
const (
	StoreKeyring = "keyring"
	StoreFile    = "file"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		API: APIConfig{
			BaseURL:            api.DefaultBaseURL,
			RequestTimeoutSecs: int(api.DefaultRequestTimeout / time.Second),
			ChatTimeoutSecs:    int(api.DefaultChatTimeout / time.Second),
			MaxRetries:         api.DefaultMaxRetries,
		},
		Auth: AuthConfig{
			CredentialStore: StoreKeyring,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		UI: UIConfig{
			Theme:    "auto",
			Markdown: true,
			WordWrap: 80,
		},
		Watch: WatchConfig{
			Extensions:       append([]string(nil), api.AllowedExtensions...),
			UploadsPerMinute: 6,
			DebounceMs:       750,
		},
	}
}

// ConfigDir returns the docent configuration directory (~/.docent).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".docent"), nil
}

// ConfigPathTOML returns the path of config.toml.
func ConfigPathTOML() (string, error) {
	return inConfigDir("config.toml")
}

// TokenFilePath returns the file credential store location.
func (c *Config) TokenFilePath() (string, error) {
	if c.Auth.TokenFile != "" {
		return c.Auth.TokenFile, nil
	}
	return inConfigDir("credentials.json")
}

// CachePath returns the transcript cache location.
func (c *Config) CachePath() (string, error) {
	if c.Cache.Path != "" {
		return c.Cache.Path, nil
	}
	return inConfigDir("cache.db")
}

// HistoryFilePath returns the line-editor history file of `docent chat`.
func HistoryFilePath() (string, error) {
	return inConfigDir("chat_history")
}

// DebugLogPath returns the TUI debug log location.
func DebugLogPath() (string, error) {
	return inConfigDir("debug.log")
}

func inConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens config files to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadEnvFiles loads ./.env and then ~/.docent/.env into the process
// environment. Variables already set are never overwritten, so the earlier
// file wins. Missing files are skipped.
func LoadEnvFiles() error {
	files := []string{".env"}
	if p, err := inConfigDir(".env"); err == nil {
		files = append(files, p)
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load loads configuration from ~/.docent/config.toml, falling back to
// defaults when the file is absent. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file onto cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults restores defaults for values a file blanked out.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// API
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaults.API.BaseURL
	}
	if cfg.API.RequestTimeoutSecs == 0 {
		cfg.API.RequestTimeoutSecs = defaults.API.RequestTimeoutSecs
	}
	if cfg.API.ChatTimeoutSecs == 0 {
		cfg.API.ChatTimeoutSecs = defaults.API.ChatTimeoutSecs
	}

	// Auth
	if cfg.Auth.CredentialStore == "" {
		cfg.Auth.CredentialStore = defaults.Auth.CredentialStore
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	// Watch
	if len(cfg.Watch.Extensions) == 0 {
		cfg.Watch.Extensions = defaults.Watch.Extensions
	}
	if cfg.Watch.UploadsPerMinute == 0 {
		cfg.Watch.UploadsPerMinute = defaults.Watch.UploadsPerMinute
	}

	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to ~/.docent/config.toml.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path with mode 0600.
func SaveTOML(cfg *Config, path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# docent configuration file")
	fmt.Fprintln(file, "# Generated by docent - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// API
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		add("api.base_url", "invalid URL '%s', must be http(s)://host[:port]/path", c.API.BaseURL)
	}
	if c.API.RequestTimeoutSecs < 1 || c.API.RequestTimeoutSecs > 600 {
		add("api.request_timeout_secs", "must be between 1 and 600, got %d", c.API.RequestTimeoutSecs)
	}
	if c.API.ChatTimeoutSecs < 1 || c.API.ChatTimeoutSecs > 1800 {
		add("api.chat_timeout_secs", "must be between 1 and 1800, got %d", c.API.ChatTimeoutSecs)
	}
	if c.API.MaxRetries < 0 || c.API.MaxRetries > 10 {
		add("api.max_retries", "must be between 0 and 10, got %d", c.API.MaxRetries)
	}

	// Auth
	switch strings.ToLower(c.Auth.CredentialStore) {
	case StoreKeyring, StoreFile:
	default:
		add("auth.credential_store", "invalid store '%s', must be one of: keyring, file", c.Auth.CredentialStore)
	}

	// Chat
	if c.Chat.Provider != "" {
		p, err := catalog.Parse(c.Chat.Provider)
		if err != nil {
			add("chat.provider", "%v", err)
		} else if c.Chat.Model != "" && !catalog.Offers(p, c.Chat.Model) {
			add("chat.model", "model '%s' is not offered by %s", c.Chat.Model, p.Label())
		}
	}

	// UI
	switch strings.ToLower(c.UI.Theme) {
	case "dark", "light", "auto":
	default:
		add("ui.theme", "invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme)
	}
	if c.UI.WordWrap < 0 {
		add("ui.word_wrap", "must not be negative, got %d", c.UI.WordWrap)
	}

	// Watch
	for _, ext := range c.Watch.Extensions {
		if !api.AllowedFile("x." + strings.TrimPrefix(ext, ".")) {
			add("watch.extensions", "'%s' is not an uploadable type (allowed: %s)", ext, strings.Join(api.AllowedExtensions, ", "))
		}
	}
	if c.Watch.UploadsPerMinute < 1 || c.Watch.UploadsPerMinute > 600 {
		add("watch.uploads_per_minute", "must be between 1 and 600, got %d", c.Watch.UploadsPerMinute)
	}
	if c.Watch.DebounceMs < 0 {
		add("watch.debounce_ms", "must not be negative, got %d", c.Watch.DebounceMs)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies DOCENT_* environment variables:
//   - DOCENT_API_URL: overrides api.base_url
//   - DOCENT_REQUEST_TIMEOUT: overrides api.request_timeout_secs
//   - DOCENT_CHAT_TIMEOUT: overrides api.chat_timeout_secs
//   - DOCENT_CREDENTIAL_STORE: overrides auth.credential_store
//   - DOCENT_PROVIDER: overrides chat.provider
//   - DOCENT_MODEL: overrides chat.model
//   - DOCENT_THEME: overrides ui.theme
//   - DOCENT_NO_CACHE: disables the transcript cache
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DOCENT_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("DOCENT_REQUEST_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.API.RequestTimeoutSecs = n
		}
	}
	if v := os.Getenv("DOCENT_CHAT_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.API.ChatTimeoutSecs = n
		}
	}
	if v := os.Getenv("DOCENT_CREDENTIAL_STORE"); v != "" {
		c.Auth.CredentialStore = v
	}
	if v := os.Getenv("DOCENT_PROVIDER"); v != "" {
		c.Chat.Provider = v
	}
	if v := os.Getenv("DOCENT_MODEL"); v != "" {
		c.Chat.Model = v
	}
	if v := os.Getenv("DOCENT_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("DOCENT_NO_CACHE"); v != "" {
		if v == "1" || strings.EqualFold(v, "true") {
			c.Cache.Enabled = false
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "api.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts snake_case to the Go field name form.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strings.TrimSpace(strVal), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strings.TrimSpace(strVal))
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, s := range strings.Split(strVal, ",") {
					if s = strings.TrimSpace(s); s != "" {
						items = append(items, s)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"api.base_url",
		"api.request_timeout_secs",
		"api.chat_timeout_secs",
		"api.max_retries",
		"auth.credential_store",
		"auth.token_file",
		"chat.provider",
		"chat.model",
		"cache.enabled",
		"cache.path",
		"ui.theme",
		"ui.markdown",
		"ui.word_wrap",
		"ui.show_chunks",
		"watch.extensions",
		"watch.uploads_per_minute",
		"watch.debounce_ms",
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Watch.Extensions = append([]string(nil), c.Watch.Extensions...)
	return &clone
}

// String returns a JSON rendering of the config for display.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
