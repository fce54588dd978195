// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

package profile

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// LoadCatalogFile reads a catalog JSON file: an array of Item records.
func LoadCatalogFile(path string) ([]Item, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	for i := range items {
		if err := items[i].Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
	}

	return items, nil
}
