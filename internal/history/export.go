// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Export writes the filtered history to <dir>/export.<format> and returns
// the path written.
func (s *Store) Export(ctx context.Context, format string, opts ListOptions) (string, error) {
	records, err := s.List(ctx, opts)
	if err != nil {
		return "", fmt.Errorf("querying for export: %w", err)
	}
	if records == nil {
		records = []Record{}
	}

	var data []byte
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(records)
	case FormatJSON:
		data, err = json.MarshalIndent(records, "", "  ")
	default:
		return "", fmt.Errorf("unknown export format %q (want yaml or json)", format)
	}
	if err != nil {
		return "", fmt.Errorf("marshaling %s: %w", format, err)
	}

	path := filepath.Join(s.dir, "export."+format)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
