package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config holds all user-configurable settings loaded from config.json
type Config struct {
	Session     SessionConfig     `json:"session"`
	Store       StoreConfig       `json:"store"`
	Preview     PreviewConfig     `json:"preview"`
	Browser     BrowserConfig     `json:"browser"`
	Preferences PreferencesConfig `json:"preferences"`
	Logging     LoggingConfig     `json:"logging"`
	Metrics     MetricsConfig     `json:"metrics"`
}

// SessionConfig controls the restorable-session envelope
type SessionConfig struct {
	TTLMinutes int `json:"ttlMinutes"` // Age after which a cached folder is purged
}

// StoreConfig locates the handle database
type StoreConfig struct {
	Path string `json:"path"` // Empty means ~/.config/nexus/nexus.db
}

// PreviewConfig holds thumbnail settings
type PreviewConfig struct {
	TimeoutMs    int     `json:"timeoutMs"`    // Bounded wait for media decoding
	MaxPixels    int     `json:"maxPixels"`    // Longest thumbnail edge
	CacheEntries int     `json:"cacheEntries"` // Thumbnails kept in memory
	FFmpegPath   string  `json:"ffmpegPath"`
	VideoOffset  float64 `json:"videoOffset"` // Seconds into a video for its frame
}

// BrowserConfig holds host and navigation behavior
type BrowserConfig struct {
	DirectoryAccess bool `json:"directoryAccess"` // false forces the pick-files fallback
	WatchChanges    bool `json:"watchChanges"`
	DebounceMs      int  `json:"debounceMs"`
}

// PreferencesConfig holds the defaults for persisted view preferences
type PreferencesConfig struct {
	ViewMode    string `json:"viewMode"` // "grid" | "list"
	ItemSize    string `json:"itemSize"` // "small" | "medium" | "large"
	ShowPreview bool   `json:"showPreview"`
}

// LoggingConfig is passed to the logging package
type LoggingConfig struct {
	Level  string `json:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `json:"format"` // "console" | "json"
	Output string `json:"output"` // "stderr", "stdout" or a file path
}

// MetricsConfig enables the local Prometheus listener
type MetricsConfig struct {
	Addr string `json:"addr"` // Empty disables it
}

// TTL returns the session TTL as a duration
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

// Timeout returns the thumbnail bounded wait
func (p PreviewConfig) Timeout() time.Duration {
	if p.TimeoutMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// Manager handles loading, saving, and accessing configuration
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error // Stores parsing error if config failed to load
}

// NewManager creates a manager for the default config path
func NewManager() *Manager {
	return NewManagerAt(ConfigPath())
}

// NewManagerAt creates a manager for a specific config file
func NewManagerAt(path string) *Manager {
	return &Manager{
		config: DefaultConfig(),
		path:   path,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{TTLMinutes: 60},
		Store:   StoreConfig{},
		Preview: PreviewConfig{
			TimeoutMs:    5000,
			MaxPixels:    256,
			CacheEntries: 200,
			FFmpegPath:   "ffmpeg",
			VideoOffset:  1.0,
		},
		Browser: BrowserConfig{
			DirectoryAccess: true,
			WatchChanges:    true,
			DebounceMs:      200,
		},
		Preferences: PreferencesConfig{
			ViewMode:    "grid",
			ItemSize:    "medium",
			ShowPreview: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// ConfigPath returns the config file path: ~/.config/nexus/config.json
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "nexus", "config.json")
}

// DefaultStorePath returns ~/.config/nexus/nexus.db
func DefaultStorePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "nexus", "nexus.db")
}

// Load reads the configuration from the config file
// If the file doesn't exist, creates it with defaults
// If parsing fails, stores the error and returns defaults
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.parseErr = nil

	configDir := filepath.Dir(m.path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		log.Printf("Config: failed to create directory %s: %v", configDir, err)
		return err
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		log.Printf("Config: creating default config at %s", m.path)
		m.config = DefaultConfig()
		return m.saveUnlocked()
	}
	if err != nil {
		log.Printf("Config: failed to read %s: %v", m.path, err)
		return err
	}

	// Start from defaults so missing keys keep sane values
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		// Keep running on defaults, the caller can surface ParseError
		log.Printf("Config: JSON parse error: %v", err)
		m.parseErr = err
		m.config = DefaultConfig()
		return nil
	}

	m.config = cfg
	return nil
}

// saveUnlocked saves config without acquiring lock (caller must hold lock)
func (m *Manager) saveUnlocked() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnlocked()
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return *DefaultConfig()
	}
	return *m.config
}

// Path returns the file the manager reads and writes
func (m *Manager) Path() string {
	return m.path
}

// ParseError returns the parsing error if config failed to load
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// SetPreferences updates the preference defaults
func (m *Manager) SetPreferences(p PreferencesConfig) error {
	m.mu.Lock()
	m.config.Preferences = p
	m.mu.Unlock()
	return m.Save()
}

// GenerateConfig backs up an existing config at path and writes a fresh
// default one. Returns the backup path, or "" if there was nothing to back up.
func GenerateConfig(path string) (backupPath string, err error) {
	if _, err := os.Stat(path); err == nil {
		timestamp := time.Now().Format("20060102-150405")
		backupPath = filepath.Join(filepath.Dir(path), "config.backup."+timestamp+".json")

		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read existing config: %w", err)
		}
		if err := os.WriteFile(backupPath, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return backupPath, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return backupPath, fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return backupPath, fmt.Errorf("failed to write config: %w", err)
	}

	return backupPath, nil
}
