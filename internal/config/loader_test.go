package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points HOME and the working directory at a fresh temp dir so no
// real config or .env file leaks into the test.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("TRIBUNAL_HOME", "")
	t.Setenv("TRIBUNAL_CONFIG", "")
	t.Setenv("TRIBUNAL_ENV_FILE", "")
	for _, k := range []string{"MODEL", "TRIBUNAL_MODEL_NAME", "GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY", "SLACK_BOT_TOKEN", "API_KEY", "NAME", "ENABLED", "WORKSPACE"} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
	t.Chdir(tmp)
	return tmp
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Loop.MaxIterations != 5 {
		t.Errorf("expected 5 loop iterations, got %d", cfg.Loop.MaxIterations)
	}
	if cfg.Model.Temperature != 0 {
		t.Errorf("expected temperature 0, got %v", cfg.Model.Temperature)
	}
	if cfg.Retry.InitialDelay != time.Second || cfg.Retry.MaxAttempts != 6 {
		t.Errorf("unexpected retry defaults: %+v", cfg.Retry)
	}
	if cfg.Lookup.Lang != "en" || cfg.Lookup.TopK != 5 || cfg.Lookup.MaxChars != 4000 {
		t.Errorf("unexpected lookup defaults: %+v", cfg.Lookup)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestConfigPathRespectsTribunalConfigAndHome(t *testing.T) {
	t.Setenv("TRIBUNAL_HOME", "/srv/courthome")
	t.Setenv("TRIBUNAL_CONFIG", "~/.tribunal/custom.json")

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if path != filepath.Join("/srv/courthome", ".tribunal", "custom.json") {
		t.Fatalf("unexpected config path: %q", path)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ConfigDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data := `{"model":{"name":"openai/gpt-4o"},"loop":{"maxIterations":3},"providers":{"gemini":{"apiKey":"${COURT_TEST_KEY}"}}}`
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("COURT_TEST_KEY", "from-env-substitution")
	t.Setenv("TRIBUNAL_LOOP_MAX_ITERATIONS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.Name != "openai/gpt-4o" {
		t.Errorf("expected model from file, got %q", cfg.Model.Name)
	}
	if cfg.Loop.MaxIterations != 7 {
		t.Errorf("expected env to override file, got %d", cfg.Loop.MaxIterations)
	}
	if cfg.Providers.Gemini.APIKey != "from-env-substitution" {
		t.Errorf("expected substituted key, got %q", cfg.Providers.Gemini.APIKey)
	}
	if cfg.Lookup.TopK != 5 {
		t.Errorf("expected default topK kept, got %d", cfg.Lookup.TopK)
	}
}

func TestLoadBareModelAndKeyFallbacks(t *testing.T) {
	isolate(t)
	t.Setenv("MODEL", "gemini-2.0-flash")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("OPENROUTER_API_KEY", "or-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.Name != "gemini-2.0-flash" {
		t.Errorf("expected MODEL honoured, got %q", cfg.Model.Name)
	}
	if cfg.Providers.Gemini.APIKey != "g-key" {
		t.Errorf("expected GOOGLE_API_KEY fallback, got %q", cfg.Providers.Gemini.APIKey)
	}
	if cfg.Providers.OpenRouter.APIKey != "or-key" {
		t.Errorf("expected OPENROUTER_API_KEY fallback, got %q", cfg.Providers.OpenRouter.APIKey)
	}

	t.Setenv("TRIBUNAL_MODEL_NAME", "openai/gpt-4o-mini")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.Name != "openai/gpt-4o-mini" {
		t.Errorf("expected prefixed variable to win over MODEL, got %q", cfg.Model.Name)
	}
}

func TestLoadDotEnvInWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("GEMINI_API_KEY=dotenv-key\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("GEMINI_API_KEY") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Providers.Gemini.APIKey != "dotenv-key" {
		t.Fatalf("expected key from .env, got %q", cfg.Providers.Gemini.APIKey)
	}
}

func TestLoadInvalidJSONReturnsError(t *testing.T) {
	home := isolate(t)
	configDir := filepath.Join(home, ConfigDir)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, ConfigFile), []byte(`{"model":`), 0o600); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected JSON error, got nil")
	}
}

func TestSaveAndEnsureDir(t *testing.T) {
	tmpDir := isolate(t)

	cfg := DefaultConfig()
	cfg.Model.Name = "saved-model"
	if err := Save(cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved config file missing: %v", err)
	}
	loaded, err := Load()
	if err != nil {
		t.Fatalf("load saved: %v", err)
	}
	if loaded.Model.Name != "saved-model" {
		t.Fatalf("expected saved model, got %q", loaded.Model.Name)
	}

	newDir := filepath.Join(tmpDir, "nested", "dir")
	if err := EnsureDir(newDir); err != nil {
		t.Fatalf("ensure dir: %v", err)
	}
	if info, err := os.Stat(newDir); err != nil || !info.IsDir() {
		t.Fatalf("expected created directory, err=%v", err)
	}
}

func TestIncludeMerge(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ConfigDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "base.json"), []byte(`{"lookup":{"topK":3,"lang":"de"}}`), 0o600); err != nil {
		t.Fatalf("write base: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte(`{"$include":"base.json","lookup":{"lang":"fr"}}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Lookup.TopK != 3 || cfg.Lookup.Lang != "fr" {
		t.Fatalf("unexpected merged lookup: %+v", cfg.Lookup)
	}
}

func TestSubstituteEnvValuesLeavesUnknownToken(t *testing.T) {
	input := map[string]any{
		"value": "${NOT_SET_VAR}",
	}
	out := substituteEnvValues(input).(map[string]any)
	if out["value"] != "${NOT_SET_VAR}" {
		t.Fatalf("expected unknown env token unchanged, got %v", out["value"])
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Loop.MaxIterations = 0
	cfg.Logging.Format = "xml"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestMaskedHidesSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers.Gemini.APIKey = "AIzaSyExampleKey123"
	cfg.Notify.SlackToken = "short"
	m := cfg.Masked()
	if m.Providers.Gemini.APIKey != "AIza****23" {
		t.Errorf("unexpected mask %q", m.Providers.Gemini.APIKey)
	}
	if m.Notify.SlackToken != "****" {
		t.Errorf("unexpected mask %q", m.Notify.SlackToken)
	}
	if cfg.Providers.Gemini.APIKey != "AIzaSyExampleKey123" {
		t.Error("Masked must not modify the receiver")
	}
}

func TestOutputDirResolvesAgainstWorkspace(t *testing.T) {
	tmp := t.TempDir()
	cfg := DefaultConfig()
	cfg.Paths.Workspace = tmp
	out, err := cfg.OutputDir()
	if err != nil {
		t.Fatalf("output dir: %v", err)
	}
	if out != filepath.Join(tmp, "outputs") {
		t.Fatalf("unexpected output dir %q", out)
	}

	cfg.Paths.OutputDir = filepath.Join(tmp, "abs")
	out, _ = cfg.OutputDir()
	if out != filepath.Join(tmp, "abs") {
		t.Fatalf("expected absolute dir kept, got %q", out)
	}

	root, err := EnsureWorkspace(cfg)
	if err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	if root != tmp {
		t.Fatalf("unexpected root %q", root)
	}
	if info, err := os.Stat(filepath.Join(tmp, "abs")); err != nil || !info.IsDir() {
		t.Fatalf("expected output dir created, err=%v", err)
	}
}

func TestRetryPolicy(t *testing.T) {
	p := DefaultConfig().Retry.Policy()
	if p.MaxAttempts != 6 || p.InitialDelay != time.Second || p.Multiplier != 2 {
		t.Fatalf("unexpected policy %+v", p)
	}
}
