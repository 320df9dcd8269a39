// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file is one secret: the filename is the key and the trimmed
// contents are the value.
//
// Recognised keys: predictor-api-token, predictor-base-url.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/acceptance-predictor/internal/logging"
)

// DefaultDir is the secrets directory relative to the working directory.
const DefaultDir = ".secrets"

const (
	keyAPIToken = "predictor-api-token"
	keyBaseURL  = "predictor-base-url"
)

// Credentials are the secrets the client understands.
type Credentials struct {
	// APIToken is sent as a bearer token to every backend endpoint.
	APIToken string

	// BaseURL overrides backend.base_url when the service address itself
	// is private.
	BaseURL string
}

// Empty reports whether no credential was found.
func (c Credentials) Empty() bool {
	return c.APIToken == "" && c.BaseURL == ""
}

// Load reads dir and returns the recognised credentials. A missing
// directory is not an error. Unreadable files are logged and skipped.
func Load(dir string, log *slog.Logger) (Credentials, error) {
	raw, err := readDir(dir, log)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{
		APIToken: raw[keyAPIToken],
		BaseURL:  raw[keyBaseURL],
	}, nil
}

// readDir returns every non-empty, non-hidden file in dir keyed by name.
func readDir(dir string, log *slog.Logger) (map[string]string, error) {
	if log == nil {
		log = logging.Discard()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", "name", name, "error", err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}
