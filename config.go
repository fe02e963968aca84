package main

import (
	"errors"
	"fmt"
	"strings"
)

const defaultAPIBase = "https://api.itemit.com/v1"

// ErrMissingConfig is returned when a required environment variable is unset.
var ErrMissingConfig = errors.New("missing required environment variables")

// Config is loaded once at startup and handed to the client and handlers.
type Config struct {
	APIBase     string
	APIKey      string
	UserID      string
	UserToken   string
	WorkspaceID string

	Port string
}

// LoadConfig reads the settings through getenv. Every required credential
// that is empty is named in the returned error.
func LoadConfig(getenv func(string) string) (Config, error) {
	cfg := Config{
		APIBase:     getenv("ITEMIT_API_BASE"),
		APIKey:      getenv("ITEMIT_API_KEY"),
		UserID:      getenv("ITEMIT_USER_ID"),
		UserToken:   getenv("ITEMIT_USER_TOKEN"),
		WorkspaceID: getenv("ITEMIT_WORKSPACE_ID"),
		Port:        getenv("PORT"),
	}

	var missing []string
	for _, req := range []struct{ name, value string }{
		{"ITEMIT_API_KEY", cfg.APIKey},
		{"ITEMIT_USER_ID", cfg.UserID},
		{"ITEMIT_USER_TOKEN", cfg.UserToken},
		{"ITEMIT_WORKSPACE_ID", cfg.WorkspaceID},
	} {
		if req.value == "" {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	cfg.APIBase = normalizeBase(cfg.APIBase)
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	return cfg, nil
}

// normalizeBase strips trailing slashes so endpoint paths can be appended.
func normalizeBase(base string) string {
	return strings.TrimRight(base, "/")
}
