package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret reads a secret value using the *_FILE convention.
// If envName+"_FILE" is set, reads the secret from that file path.
// Otherwise falls back to the value of envName.
// Returns empty string if neither is set.
// Returns an error if the file cannot be read.
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if filePath := os.Getenv(fileEnv); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, filePath, err)
		}
		return strings.TrimSpace(string(content)), nil
	}

	return os.Getenv(envName), nil
}

// Credentials is a user and password pair read from the environment.
type Credentials struct {
	User string
	Pass string
}

// Set reports whether both parts are present.
func (c Credentials) Set() bool {
	return c.User != "" && c.Pass != ""
}

// ResolveCredentials reads prefix+"_USER" and prefix+"_PASS", each honoring
// the *_FILE convention.
func ResolveCredentials(prefix string) (Credentials, error) {
	user, err := ResolveSecret(prefix + "_USER")
	if err != nil {
		return Credentials{}, err
	}
	pass, err := ResolveSecret(prefix + "_PASS")
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{User: user, Pass: pass}, nil
}
