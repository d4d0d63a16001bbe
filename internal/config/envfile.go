package config

import (
	"bufio"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// EnvFileName is the dotenv file kept beside the config file.
const EnvFileName = "env"

// envFileCandidates lists dotenv files in precedence order: TRIBUNAL_ENV_FILE,
// ./.env, the env file in the config file's directory (TRIBUNAL_CONFIG), then
// the one under the tribunal home (TRIBUNAL_HOME). Paths are absolute and
// unique.
func envFileCandidates() []string {
	var raw []string
	if explicit := strings.TrimSpace(os.Getenv("TRIBUNAL_ENV_FILE")); explicit != "" {
		raw = append(raw, explicit)
	}
	raw = append(raw, ".env")
	if cfgPath, err := ConfigPath(); err == nil {
		raw = append(raw, filepath.Join(filepath.Dir(cfgPath), EnvFileName))
	}
	if home, err := resolveHomeDir(); err == nil {
		raw = append(raw, filepath.Join(home, ConfigDir, EnvFileName))
	}

	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// LoadEnvFileCandidates applies every readable candidate env file and returns
// the ones it read. Variables already in the environment win, and so do
// earlier files.
func LoadEnvFileCandidates() []string {
	var loaded []string
	for _, p := range envFileCandidates() {
		if loadEnvFile(p) == nil {
			loaded = append(loaded, p)
		}
	}
	return loaded
}

func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, val, ok := parseEnvLine(sc.Text())
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(key); !set {
			_ = os.Setenv(key, val)
		}
	}
	return sc.Err()
}

// parseEnvLine reads one KEY=value line. Blank lines, comments and lines
// without a key are rejected.
func parseEnvLine(line string) (key, val string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	key, val, found := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		return "", "", false
	}
	return key, trimOptionalQuotes(strings.TrimSpace(val)), true
}

func trimOptionalQuotes(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}
