package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// SafeEnv returns the environment variable value for key, or fallback if empty.
func SafeEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// EnvBool accepts the usual true/false spellings; anything else yields fallback.
func EnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(SafeEnv(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

// EnvDuration parses a Go duration such as "24h".
func EnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(SafeEnv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// EnvList splits a comma separated value, dropping blanks.
func EnvList(key string) []string {
	var out []string
	for _, p := range strings.Split(SafeEnv(key, ""), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
