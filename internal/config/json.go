package config

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/betjuliano/sefa-dashboard/internal/flagx"
)

// duration allows JSON to specify intervals either as strings like "5s"
// or as integer nanoseconds.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return errors.New("invalid duration value")
	}
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling; values are
// copied into the runtime Config afterwards.
type JsonConfig struct {
	StorageRoot  string   `json:"storage_root"`
	ForceLocal   *bool    `json:"force_local"`
	RemoteURL    string   `json:"remote_url"`
	RemoteKey    string   `json:"remote_key"`
	DefaultGoal  *float64 `json:"default_goal"`
	ProbeTimeout duration `json:"probe_timeout"`
}

// parseJson overlays cfg with values loaded from the JSON file given via the
// -c/-config flags. If no file is specified, nothing happens. Read or parse
// errors panic; config files are operator input and half-applied settings are
// worse than a crash at startup.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.StorageRoot != "" {
		cfg.StorageRoot = jc.StorageRoot
	}
	if jc.ForceLocal != nil {
		cfg.ForceLocal = *jc.ForceLocal
	}
	if jc.RemoteURL != "" {
		cfg.RemoteURL = jc.RemoteURL
	}
	if jc.RemoteKey != "" {
		cfg.RemoteKey = jc.RemoteKey
	}
	if jc.DefaultGoal != nil {
		cfg.DefaultGoal = *jc.DefaultGoal
	}
	if jc.ProbeTimeout.Duration > 0 {
		cfg.ProbeTimeout = jc.ProbeTimeout.Duration
	}
}
