package config

import (
	"os"
	"strconv"
	"strings"
)

// parseEnv overlays cfg with values from environment variables. The names
// match what the hosting dashboard already exports:
//
//	STORAGE_ROOT        base directory for persisted data
//	FORCE_LOCAL_STORAGE "1"/"true"/"yes" disables the remote backend
//	SUPABASE_URL        remote endpoint base URL
//	SUPABASE_ANON_KEY   remote API key
//	DEFAULT_GOAL        default preference goal (float)
func parseEnv(cfg *Config) {
	if v := os.Getenv("STORAGE_ROOT"); v != "" {
		cfg.StorageRoot = v
	}
	if v := os.Getenv("FORCE_LOCAL_STORAGE"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			cfg.ForceLocal = true
		}
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.RemoteURL = v
	}
	if v := os.Getenv("SUPABASE_ANON_KEY"); v != "" {
		cfg.RemoteKey = v
	}
	if v := os.Getenv("DEFAULT_GOAL"); v != "" {
		if goal, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DefaultGoal = goal
		}
	}
}
