// Package config provides configuration management with encrypted API key storage.
// It supports loading, saving, and updating the service configuration file.
package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// encryptionKeyEnvVar is the environment variable name for the AES encryption key.
const encryptionKeyEnvVar = "GIAOAN_ENCRYPTION_KEY"

// encryptedPrefix marks a value as AES-encrypted in the config file.
const encryptedPrefix = "enc:"

// Config holds all service configuration.
type Config struct {
	Server   ServerConfig   `json:"server"`
	LLM      LLMConfig      `json:"llm"`
	Database DatabaseConfig `json:"database"`
	Log      LogConfig      `json:"log"`
	Session  SessionConfig  `json:"session"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port                int `json:"port"`
	ReadTimeoutSeconds  int `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int `json:"write_timeout_seconds"`
}

// LLMConfig holds the lesson generation model configuration.
type LLMConfig struct {
	Endpoint       string  `json:"endpoint"`
	APIKey         string  `json:"api_key"`
	ModelName      string  `json:"model_name"`
	Temperature    float64 `json:"temperature"`
	MaxTokens      int     `json:"max_tokens"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `json:"path"`
}

// LogConfig holds the error log location.
type LogConfig struct {
	ErrorDir string `json:"error_dir"`
}

// SessionConfig holds login session settings.
type SessionConfig struct {
	TTLHours int `json:"ttl_hours"`
}

// ConfigManager manages loading, saving, and updating configuration.
type ConfigManager struct {
	configPath    string
	config        *Config
	mu            sync.RWMutex
	encryptionKey []byte // 32-byte AES-256 key
}

// NewConfigManager creates a new ConfigManager for the given config file path.
// The AES key comes from GIAOAN_ENCRYPTION_KEY, or from an encryption.key file
// next to the config, which is generated on first use.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	key, err := getOrCreateEncryptionKey(filepath.Join(filepath.Dir(configPath), "encryption.key"))
	if err != nil {
		return nil, fmt.Errorf("encryption key error: %w", err)
	}
	return &ConfigManager{
		configPath:    configPath,
		encryptionKey: key,
	}, nil
}

// NewConfigManagerWithKey creates a ConfigManager with an explicit encryption key (for testing).
func NewConfigManagerWithKey(configPath string, key []byte) (*ConfigManager, error) {
	if len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes for AES-256")
	}
	return &ConfigManager{
		configPath:    configPath,
		encryptionKey: key,
	}, nil
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                8080,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 180,
		},
		LLM: LLMConfig{
			Endpoint:       "https://api.openai.com/v1",
			ModelName:      "gpt-4o-mini",
			Temperature:    0.7,
			MaxTokens:      4096,
			TimeoutSeconds: 120,
		},
		Database: DatabaseConfig{
			Path: "./data/giaoan.db",
		},
		Log: LogConfig{
			ErrorDir: "./data/logs",
		},
		Session: SessionConfig{
			TTLHours: 24,
		},
	}
}

// Load reads the config file from disk and decrypts API keys.
// If the file does not exist, it initializes with default values and saves.
func (cm *ConfigManager) Load() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cm.config = DefaultConfig()
			return cm.saveLocked()
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if cfg.LLM.APIKey, err = cm.decryptIfNeeded(cfg.LLM.APIKey); err != nil {
		return fmt.Errorf("decrypt LLM API key: %w", err)
	}

	applyDefaults(&cfg)
	cm.config = &cfg
	return nil
}

// Save writes the current config to disk with API keys encrypted.
func (cm *ConfigManager) Save() error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.saveLocked()
}

// saveLocked writes config to disk. Caller must hold at least a read lock.
func (cm *ConfigManager) saveLocked() error {
	if cm.config == nil {
		return errors.New("no config loaded")
	}

	out := *cm.config
	out.LLM.APIKey = cm.encryptIfNeeded(cm.config.LLM.APIKey)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(cm.configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(cm.configPath, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Get returns a copy of the current configuration.
func (cm *ConfigManager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.config == nil {
		return nil
	}
	c := *cm.config
	return &c
}

// Update applies partial updates to the configuration and saves to disk.
// Keys are dotted paths such as "llm.model_name" or "server.port".
func (cm *ConfigManager) Update(updates map[string]interface{}) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.config == nil {
		cm.config = DefaultConfig()
	}

	for key, val := range updates {
		if err := cm.applyUpdate(key, val); err != nil {
			return fmt.Errorf("update key %q: %w", key, err)
		}
	}

	return cm.saveLocked()
}

func (cm *ConfigManager) applyUpdate(key string, val interface{}) error {
	c := cm.config
	switch key {
	case "server.port":
		n, err := toInt(val)
		if err != nil {
			return err
		}
		if n < 1 || n > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		c.Server.Port = n
	case "server.read_timeout_seconds":
		return setPositiveInt(&c.Server.ReadTimeoutSeconds, val)
	case "server.write_timeout_seconds":
		return setPositiveInt(&c.Server.WriteTimeoutSeconds, val)

	case "llm.endpoint":
		return setString(&c.LLM.Endpoint, val)
	case "llm.api_key":
		return setString(&c.LLM.APIKey, val)
	case "llm.model_name":
		return setString(&c.LLM.ModelName, val)
	case "llm.temperature":
		f, err := toFloat64(val)
		if err != nil {
			return err
		}
		if f < 0 || f > 2 {
			return errors.New("temperature must be between 0 and 2")
		}
		c.LLM.Temperature = f
	case "llm.max_tokens":
		return setPositiveInt(&c.LLM.MaxTokens, val)
	case "llm.timeout_seconds":
		return setPositiveInt(&c.LLM.TimeoutSeconds, val)

	case "database.path":
		return setString(&c.Database.Path, val)
	case "log.error_dir":
		return setString(&c.Log.ErrorDir, val)
	case "session.ttl_hours":
		return setPositiveInt(&c.Session.TTLHours, val)

	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// numericKeys are the dotted keys whose values are numbers.
var numericKeys = map[string]bool{
	"server.port":                  true,
	"server.read_timeout_seconds":  true,
	"server.write_timeout_seconds": true,
	"llm.temperature":              true,
	"llm.max_tokens":               true,
	"llm.timeout_seconds":          true,
	"session.ttl_hours":            true,
}

// ParseValue converts a command-line value for key into the type Update
// expects. Numeric keys become json.Number so malformed numbers fail in
// Update; every other key keeps the raw string.
func ParseValue(key, raw string) interface{} {
	if numericKeys[key] {
		return json.Number(strings.TrimSpace(raw))
	}
	return raw
}

func setString(dst *string, val interface{}) error {
	s, ok := val.(string)
	if !ok {
		return errors.New("expected string")
	}
	*dst = s
	return nil
}

func setPositiveInt(dst *int, val interface{}) error {
	n, err := toInt(val)
	if err != nil {
		return err
	}
	if n <= 0 {
		return errors.New("value must be positive")
	}
	*dst = n
	return nil
}

// applyDefaults fills in zero-value fields with defaults.
func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = defaults.Server.ReadTimeoutSeconds
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = defaults.Server.WriteTimeoutSeconds
	}
	if cfg.LLM.Endpoint == "" {
		cfg.LLM.Endpoint = defaults.LLM.Endpoint
	}
	if cfg.LLM.ModelName == "" {
		cfg.LLM.ModelName = defaults.LLM.ModelName
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = defaults.LLM.Temperature
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = defaults.LLM.MaxTokens
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = defaults.LLM.TimeoutSeconds
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = defaults.Database.Path
	}
	if cfg.Log.ErrorDir == "" {
		cfg.Log.ErrorDir = defaults.Log.ErrorDir
	}
	if cfg.Session.TTLHours == 0 {
		cfg.Session.TTLHours = defaults.Session.TTLHours
	}
}

// --- AES-GCM encryption helpers ---

// encrypt encrypts plaintext using AES-256-GCM.
func (cm *ConfigManager) encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	block, err := aes.NewCipher(cm.encryptionKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(ciphertext), nil
}

// decrypt decrypts AES-256-GCM encrypted hex string.
func (cm *ConfigManager) decrypt(ciphertextHex string) (string, error) {
	if ciphertextHex == "" {
		return "", nil
	}
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", fmt.Errorf("hex decode: %w", err)
	}
	block, err := aes.NewCipher(cm.encryptionKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", errors.New("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// encryptIfNeeded encrypts a value and adds the "enc:" prefix.
// Empty strings are returned as-is.
func (cm *ConfigManager) encryptIfNeeded(value string) string {
	if value == "" {
		return ""
	}
	encrypted, err := cm.encrypt(value)
	if err != nil {
		return value
	}
	return encryptedPrefix + encrypted
}

// decryptIfNeeded decrypts a value if it has the "enc:" prefix.
func (cm *ConfigManager) decryptIfNeeded(value string) (string, error) {
	if !strings.HasPrefix(value, encryptedPrefix) || len(value) == len(encryptedPrefix) {
		// Not encrypted (e.g., manually edited config)
		return value, nil
	}
	return cm.decrypt(value[len(encryptedPrefix):])
}

// --- Encryption key management ---

func getOrCreateEncryptionKey(keyFile string) ([]byte, error) {
	if keyHex := os.Getenv(encryptionKeyEnvVar); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
		}
		return key, nil
	}

	if data, err := os.ReadFile(keyFile); err == nil {
		if key, err := hex.DecodeString(strings.TrimSpace(string(data))); err == nil && len(key) == 32 {
			return key, nil
		}
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate encryption key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyFile), 0755); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(keyFile, []byte(hex.EncodeToString(key)+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("save encryption key: %w", err)
	}
	return key, nil
}

// --- Type conversion helpers ---

func toFloat64(val interface{}) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("expected numeric value, got %T", val)
	}
}

func toInt(val interface{}) (int, error) {
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case float32:
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, err
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected numeric value, got %T", val)
	}
}
