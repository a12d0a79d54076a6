package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func testKey() []byte {
	return []byte("01234567890123456789012345678901") // 32 bytes
}

func tempConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.json")
}

func newTestManager(t *testing.T) (*ConfigManager, string) {
	t.Helper()
	path := tempConfigPath(t)
	cm, err := NewConfigManagerWithKey(path, testKey())
	if err != nil {
		t.Fatalf("NewConfigManagerWithKey: %v", err)
	}
	return cm, path
}

func TestNewConfigManagerWithKey_InvalidKeyLength(t *testing.T) {
	_, err := NewConfigManagerWithKey("test.json", []byte("short"))
	if err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestNewConfigManager_CreatesKeyFile(t *testing.T) {
	t.Setenv(encryptionKeyEnvVar, "")
	dir := t.TempDir()
	cm, err := NewConfigManager(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("NewConfigManager: %v", err)
	}
	if len(cm.encryptionKey) != 32 {
		t.Fatalf("key length = %d, want 32", len(cm.encryptionKey))
	}

	// A second manager in the same directory reuses the key file.
	cm2, err := NewConfigManager(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("NewConfigManager: %v", err)
	}
	if string(cm2.encryptionKey) != string(cm.encryptionKey) {
		t.Error("key not reused from encryption.key")
	}
}

func TestNewConfigManager_KeyFromEnv(t *testing.T) {
	t.Setenv(encryptionKeyEnvVar, "3031323334353637383930313233343536373839303132333435363738393031")
	cm, err := NewConfigManager(tempConfigPath(t))
	if err != nil {
		t.Fatalf("NewConfigManager: %v", err)
	}
	if string(cm.encryptionKey) != string(testKey()) {
		t.Errorf("key = %q, want %q", cm.encryptionKey, testKey())
	}

	t.Setenv(encryptionKeyEnvVar, "abcd")
	if _, err := NewConfigManager(tempConfigPath(t)); err == nil {
		t.Error("expected error for short env key")
	}
}

func TestLoad_CreatesDefaultOnMissing(t *testing.T) {
	cm, path := newTestManager(t)
	if err := cm.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}

	cfg := cm.Get()
	if cfg == nil {
		t.Fatal("Get returned nil")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Errorf("Temperature = %f, want 0.7", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, want 4096", cfg.LLM.MaxTokens)
	}
	if cfg.Database.Path != "./data/giaoan.db" {
		t.Errorf("Database.Path = %q, want ./data/giaoan.db", cfg.Database.Path)
	}
	if cfg.Session.TTLHours != 24 {
		t.Errorf("TTLHours = %d, want 24", cfg.Session.TTLHours)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	cm, path := newTestManager(t)
	if err := cm.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	cm.config.LLM.APIKey = "sk-test-secret-key-12345"
	cm.config.LLM.Endpoint = "https://api.example.com/v1"
	cm.config.Log.ErrorDir = "/var/log/giaoan"

	if err := cm.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cm2, err := NewConfigManagerWithKey(path, testKey())
	if err != nil {
		t.Fatalf("NewConfigManagerWithKey: %v", err)
	}
	if err := cm2.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg := cm2.Get()
	if cfg.LLM.APIKey != "sk-test-secret-key-12345" {
		t.Errorf("LLM.APIKey = %q, want sk-test-secret-key-12345", cfg.LLM.APIKey)
	}
	if cfg.LLM.Endpoint != "https://api.example.com/v1" {
		t.Errorf("LLM.Endpoint = %q", cfg.LLM.Endpoint)
	}
	if cfg.Log.ErrorDir != "/var/log/giaoan" {
		t.Errorf("Log.ErrorDir = %q", cfg.Log.ErrorDir)
	}
}

func TestSave_APIKeyEncryptedOnDisk(t *testing.T) {
	cm, path := newTestManager(t)
	if err := cm.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cm.config.LLM.APIKey = "my-secret-llm-key"
	if err := cm.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	raw := string(data)
	if strings.Contains(raw, "my-secret-llm-key") {
		t.Error("LLM API key found in plaintext on disk")
	}
	if !strings.Contains(raw, encryptedPrefix) {
		t.Error("encrypted prefix not found in file")
	}
	// The in-memory value stays plaintext.
	if cm.Get().LLM.APIKey != "my-secret-llm-key" {
		t.Errorf("in-memory APIKey = %q", cm.Get().LLM.APIKey)
	}
}

func TestUpdate_AppliesAndPersists(t *testing.T) {
	cm, path := newTestManager(t)
	if err := cm.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	updates := map[string]interface{}{
		"server.port":       9090,
		"llm.endpoint":      "https://new-api.example.com",
		"llm.api_key":       "new-key",
		"llm.model_name":    "gpt-4o",
		"llm.temperature":   0.2,
		"llm.max_tokens":    float64(2048),
		"database.path":     "/tmp/plans.db",
		"session.ttl_hours": json.Number("48"),
	}
	if err := cm.Update(updates); err != nil {
		t.Fatalf("Update: %v", err)
	}

	cfg := cm.Get()
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.LLM.ModelName != "gpt-4o" {
		t.Errorf("ModelName = %q", cfg.LLM.ModelName)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("Temperature = %f", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d", cfg.LLM.MaxTokens)
	}
	if cfg.Session.TTLHours != 48 {
		t.Errorf("TTLHours = %d", cfg.Session.TTLHours)
	}

	cm2, _ := NewConfigManagerWithKey(path, testKey())
	if err := cm2.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg2 := cm2.Get()
	if cfg2.LLM.APIKey != "new-key" {
		t.Errorf("persisted APIKey = %q", cfg2.LLM.APIKey)
	}
	if cfg2.Database.Path != "/tmp/plans.db" {
		t.Errorf("persisted Database.Path = %q", cfg2.Database.Path)
	}
}

func TestUpdate_Rejects(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  interface{}
	}{
		{"unknown key", "nonexistent.key", "value"},
		{"port out of range", "server.port", 70000},
		{"negative tokens", "llm.max_tokens", -1},
		{"temperature too high", "llm.temperature", 3.5},
		{"string for int", "session.ttl_hours", "24"},
		{"int for string", "llm.model_name", 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cm, _ := newTestManager(t)
			if err := cm.Load(); err != nil {
				t.Fatalf("Load: %v", err)
			}
			if err := cm.Update(map[string]interface{}{tc.key: tc.val}); err == nil {
				t.Errorf("Update(%s=%v) succeeded, want error", tc.key, tc.val)
			}
		})
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	cm, _ := newTestManager(t)
	if err := cm.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := cm.Get()
	cfg.LLM.ModelName = "modified"
	if cm.Get().LLM.ModelName == "modified" {
		t.Error("Get did not return a copy")
	}
}

func TestGet_NilBeforeLoad(t *testing.T) {
	cm, _ := newTestManager(t)
	if cm.Get() != nil {
		t.Error("Get before Load should return nil")
	}
}

func TestLoad_PlaintextAPIKey(t *testing.T) {
	path := tempConfigPath(t)
	raw := `{"llm": {"api_key": "plain-text-key"}, "server": {"port": 3000}}`
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cm, _ := NewConfigManagerWithKey(path, testKey())
	if err := cm.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := cm.Get()
	if cfg.LLM.APIKey != "plain-text-key" {
		t.Errorf("APIKey = %q, want plain-text-key", cfg.LLM.APIKey)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Server.Port)
	}
	// Missing sections fall back to defaults.
	if cfg.LLM.ModelName != "gpt-4o-mini" {
		t.Errorf("ModelName = %q, want default", cfg.LLM.ModelName)
	}
	if cfg.Log.ErrorDir != "./data/logs" {
		t.Errorf("ErrorDir = %q, want default", cfg.Log.ErrorDir)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := tempConfigPath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cm, _ := NewConfigManagerWithKey(path, testKey())
	if err := cm.Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_WrongKeyFails(t *testing.T) {
	cm, path := newTestManager(t)
	if err := cm.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cm.config.LLM.APIKey = "secret"
	if err := cm.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	other, _ := NewConfigManagerWithKey(path, []byte("abcdefghijabcdefghijabcdefghij12"))
	if err := other.Load(); err == nil {
		t.Fatal("expected decrypt error with wrong key")
	}
}

func TestEncryptDecrypt_EmptyString(t *testing.T) {
	cm, _ := newTestManager(t)
	enc, err := cm.encrypt("")
	if err != nil || enc != "" {
		t.Errorf("encrypt(\"\") = %q, %v", enc, err)
	}
	dec, err := cm.decrypt("")
	if err != nil || dec != "" {
		t.Errorf("decrypt(\"\") = %q, %v", dec, err)
	}
}

// For any non-empty secret, encryptIfNeeded followed by decryptIfNeeded
// yields the original value and never stores it in plaintext.
func TestProperty_EncryptionRoundTrip(t *testing.T) {
	cm, err := NewConfigManagerWithKey("unused.json", testKey())
	if err != nil {
		t.Fatalf("NewConfigManagerWithKey: %v", err)
	}
	rapid.Check(t, func(rt *rapid.T) {
		secret := rapid.StringMatching(`[A-Za-z0-9_\-]{8,64}`).Draw(rt, "secret")
		enc := cm.encryptIfNeeded(secret)
		if !strings.HasPrefix(enc, encryptedPrefix) {
			rt.Fatalf("missing prefix: %q", enc)
		}
		if strings.Contains(enc, secret) {
			rt.Fatalf("ciphertext contains plaintext")
		}
		dec, err := cm.decryptIfNeeded(enc)
		if err != nil {
			rt.Fatalf("decryptIfNeeded: %v", err)
		}
		if dec != secret {
			rt.Fatalf("round trip = %q, want %q", dec, secret)
		}
	})
}

func TestParseValue_FeedsUpdate(t *testing.T) {
	cm, _ := newTestManager(t)
	if err := cm.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	set := map[string]string{
		"server.port":     "9191",
		"llm.temperature": "0.4",
		"llm.model_name":  "12345",
	}
	for k, v := range set {
		if err := cm.Update(map[string]interface{}{k: ParseValue(k, v)}); err != nil {
			t.Fatalf("Update(%s=%s): %v", k, v, err)
		}
	}
	cfg := cm.Get()
	if cfg.Server.Port != 9191 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.LLM.Temperature != 0.4 {
		t.Errorf("Temperature = %f", cfg.LLM.Temperature)
	}
	if cfg.LLM.ModelName != "12345" {
		t.Errorf("ModelName = %q", cfg.LLM.ModelName)
	}

	if err := cm.Update(map[string]interface{}{"session.ttl_hours": ParseValue("session.ttl_hours", "abc")}); err == nil {
		t.Error("expected error for a non-numeric ttl")
	}
}
