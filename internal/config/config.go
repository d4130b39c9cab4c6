// Package config resolves service configuration from flags and environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/inabajunmr/autosequence/internal/capture"
)

// Config holds the capture service settings.
type Config struct {
	DBPath      string
	ListenAddr  string
	Port        int
	TLSCertFile string
	TLSKeyFile  string
	MaxEntries  int
	SelfOrigins []string
}

// Default returns the baseline configuration with environment overrides
// applied. Command-line flags layer on top of this in cmd/.
func Default() *Config {
	return &Config{
		DBPath:      GetEnv("AUTOSEQ_DB", "autosequence.db"),
		ListenAddr:  GetEnv("AUTOSEQ_LISTEN", "127.0.0.1"),
		Port:        GetEnvInt("AUTOSEQ_PORT", 8765),
		MaxEntries:  GetEnvInt("AUTOSEQ_MAX_ENTRIES", 50),
		SelfOrigins: selfOriginsFromEnv(),
	}
}

func selfOriginsFromEnv() []string {
	v := os.Getenv("AUTOSEQ_SELF_ORIGINS")
	if v == "" {
		return capture.DefaultSelfOrigins
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetEnv returns an environment variable or a default.
func GetEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// GetEnvInt returns an integer environment variable or a default.
func GetEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
