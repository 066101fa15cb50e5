package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultEnvVars are the environment variables consulted, in order, when no
// explicit key source is configured.
var DefaultEnvVars = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// ResolverConfig holds the credential resolution sources.
type ResolverConfig struct {
	// APIKey is an explicit key value. Takes precedence over all other sources.
	APIKey string

	// APIKeyFile is a path to a file containing the key.
	APIKeyFile string

	// APIKeyEnv names an environment variable holding the key.
	APIKeyEnv string

	// ConfigDir is the base directory for resolving a relative APIKeyFile.
	ConfigDir string
}

// Resolve resolves an API key credential according to the chain:
// 1. explicit api_key value
// 2. api_key_file (read from file)
// 3. api_key_env (read from the named environment variable)
// 4. default environment variables (GEMINI_API_KEY, GOOGLE_API_KEY)
//
// When no source yields a key a NoOp credential is returned, for endpoints
// that do not require authentication.
func Resolve(cfg ResolverConfig) (Credential, error) {
	key, err := findAPIKey(cfg)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return NoOp{}, nil
	}
	return NewAPIKey(key), nil
}

func findAPIKey(cfg ResolverConfig) (string, error) {
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}

	if cfg.APIKeyFile != "" {
		key, err := readKeyFile(cfg.APIKeyFile, cfg.ConfigDir)
		if err != nil {
			return "", fmt.Errorf("failed to read api key file: %w", err)
		}
		return key, nil
	}

	if cfg.APIKeyEnv != "" {
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return "", fmt.Errorf("environment variable %s is not set", cfg.APIKeyEnv)
		}
		return key, nil
	}

	for _, envVar := range DefaultEnvVars {
		if key := os.Getenv(envVar); key != "" {
			return key, nil
		}
	}
	return "", nil
}

func readKeyFile(path, configDir string) (string, error) {
	if !filepath.IsAbs(path) && configDir != "" {
		path = filepath.Join(configDir, path)
	}

	//nolint:gosec // G304: File path is from trusted configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}
