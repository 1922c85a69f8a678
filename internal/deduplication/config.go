package deduplication

import (
	"fmt"
	"strings"
)

// Config holds configuration for keep selection
type Config struct {
	// PreferredFolders are path substrings tried in order during the folder stage
	// The first folder found in any candidate path restricts survivors to those paths
	// Default: ["Sent", "Archive"] (authoritative storage locations)
	PreferredFolders []string
}

// DefaultConfig returns the default keep-selection configuration
func DefaultConfig() Config {
	return Config{
		PreferredFolders: []string{"Sent", "Archive"},
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	for i, folder := range c.PreferredFolders {
		if strings.TrimSpace(folder) == "" {
			return fmt.Errorf("preferred_folders[%d] cannot be empty", i)
		}
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf("Config{PreferredFolders: %v}", c.PreferredFolders)
}
