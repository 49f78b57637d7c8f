package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mcpchat/internal/domain"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.LLM.Model != "gemini-2.0-flash-001" {
		t.Errorf("Model = %q, want %q", cfg.LLM.Model, "gemini-2.0-flash-001")
	}
	if cfg.LLM.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.LLM.MaxRetries)
	}
	if cfg.Server.Transport != "sse" {
		t.Errorf("Server.Transport = %q, want sse", cfg.Server.Transport)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("Logger.Level = %q, want %q", cfg.Logger.Level, "info")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadNonExistentReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("expected defaults, got provider %q", cfg.LLM.Provider)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
llm:
  model: "gemini-1.5-pro"
  api_key: "from-file"
  max_retries: 4
  temperature: 0
server:
  transport: http
  servers:
    - name: files
      transport: stdio
      command: npx
      args: ["-y", "server-filesystem", "."]
client:
  call_timeout: 15s
logger:
  level: "debug"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "gemini-1.5-pro" {
		t.Errorf("Model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.MaxRetries != 4 {
		t.Errorf("MaxRetries = %d, want 4", cfg.LLM.MaxRetries)
	}
	if cfg.LLM.Temperature == nil || *cfg.LLM.Temperature != 0 {
		t.Errorf("Temperature = %v, want explicit 0", cfg.LLM.Temperature)
	}
	if cfg.Server.Transport != "http" {
		t.Errorf("Server.Transport = %q", cfg.Server.Transport)
	}
	if len(cfg.Server.Servers) != 1 || cfg.Server.Servers[0].Command != "npx" {
		t.Errorf("Servers mismatch: %+v", cfg.Server.Servers)
	}
	if cfg.Client.CallTimeout != 15*time.Second {
		t.Errorf("CallTimeout = %v", cfg.Client.CallTimeout)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q", cfg.Logger.Level)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoadInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  model: x\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0666); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "insecure permissions") {
		t.Fatalf("expected permissions error, got %v", err)
	}
}

func TestLoadValidationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  provider: openai\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Error("validation errors should classify as configuration errors")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv("MCPCHAT_LLM_MODEL", "gemini-2.5-flash")
	t.Setenv("MCPCHAT_LLM_MAX_RETRIES", "0")
	t.Setenv("MCPCHAT_SERVER_TRANSPORT", "http")
	t.Setenv("MCPCHAT_CLIENT_CALL_TIMEOUT", "5s")
	t.Setenv("MCPCHAT_CLIENT_VALIDATE_ARGUMENTS", "true")
	t.Setenv("MCPCHAT_LOGGER_LEVEL", "debug")
	t.Setenv("MCPCHAT_TRACER_ENABLED", "true")
	t.Setenv("MCPCHAT_METRICS_ADDR", "127.0.0.1:9000")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("APIKey = %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gemini-2.5-flash" {
		t.Errorf("Model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.LLM.MaxRetries)
	}
	if cfg.Server.Transport != "http" {
		t.Errorf("Transport = %q", cfg.Server.Transport)
	}
	if cfg.Client.CallTimeout != 5*time.Second {
		t.Errorf("CallTimeout = %v", cfg.Client.CallTimeout)
	}
	if !cfg.Client.ValidateArguments {
		t.Error("ValidateArguments should be true")
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q", cfg.Logger.Level)
	}
	if !cfg.Tracer.Enabled {
		t.Error("Tracer.Enabled should be true")
	}
	if cfg.Metrics.Addr != "127.0.0.1:9000" {
		t.Errorf("Metrics.Addr = %q", cfg.Metrics.Addr)
	}
}

func TestEnvOverrideIgnoresBadDuration(t *testing.T) {
	t.Setenv("MCPCHAT_CLIENT_CALL_TIMEOUT", "soon")
	cfg := Defaults()
	ApplyEnvOverrides(cfg)
	if cfg.Client.CallTimeout != 0 {
		t.Errorf("CallTimeout = %v, want unchanged 0", cfg.Client.CallTimeout)
	}
}

func TestEncryptDecryptValue(t *testing.T) {
	enc, err := EncryptValue("AIza-secret", "passphrase")
	if err != nil {
		t.Fatalf("EncryptValue: %v", err)
	}
	if strings.Contains(enc, "AIza-secret") {
		t.Fatal("ciphertext leaks plaintext")
	}

	got, err := DecryptValue(enc, "passphrase")
	if err != nil {
		t.Fatalf("DecryptValue: %v", err)
	}
	if got != "AIza-secret" {
		t.Errorf("DecryptValue = %q", got)
	}

	if _, err := DecryptValue(enc, "wrong"); err == nil {
		t.Error("expected error with wrong passphrase")
	}
	if _, err := DecryptValue("not-encrypted", "passphrase"); err == nil {
		t.Error("expected error for malformed value")
	}
}

func TestLoadDecryptsSecrets(t *testing.T) {
	enc, err := EncryptValue("AIza-secret", "k3y")
	if err != nil {
		t.Fatal(err)
	}
	tokenEnc, err := EncryptValue("bearer-token", "k3y")
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "llm:\n  api_key: \"enc:" + enc + "\"\nserver:\n  headers:\n    Authorization: \"enc:" + tokenEnc + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigKey, "k3y")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "AIza-secret" {
		t.Errorf("APIKey = %q", cfg.LLM.APIKey)
	}
	if cfg.Server.Headers["Authorization"] != "bearer-token" {
		t.Errorf("Authorization header = %q", cfg.Server.Headers["Authorization"])
	}
}
