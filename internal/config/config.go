package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for a deduplication run
type Config struct {
	// Workers is the number of message files parsed concurrently
	// Default: runtime.NumCPU(), Range: 1-256
	Workers int `yaml:"workers"`

	// FailOpen determines what happens when a file cannot be parsed as a message
	// If true: skip the file, report it, and continue (it is neither kept nor deleted)
	// If false: abort ingestion on the first unparseable file
	// Default: true
	FailOpen bool `yaml:"fail_open"`

	// OriginMarkerHeader names the header that marks a copy as coming from a
	// secondary export. Copies without it are preferred when choosing what to keep.
	// Default: "X-Gmail-Labels" (stamped by Google Takeout exports)
	OriginMarkerHeader string `yaml:"origin_marker_header"`

	// PreferredFolders are path substrings tried in order when breaking ties.
	// The first one found in any candidate path restricts the survivors to those paths.
	// Default: ["Sent", "Archive"]
	PreferredFolders []string `yaml:"preferred_folders"`

	// ExcludePatterns are glob patterns matched against file base names during
	// enumeration; matching files are not treated as messages
	// Default: maildir bookkeeping files
	ExcludePatterns []string `yaml:"exclude_patterns"`

	// DeleteRate limits deletions per second, 0 = unlimited
	// Useful on network filesystems and FUSE mounts
	// Default: 0, Range: 0-100000
	DeleteRate float64 `yaml:"delete_rate"`

	// AutoApprove skips the interactive confirmation before deletion
	// Default: false
	AutoApprove bool `yaml:"auto_approve"`
}

// DefaultConfig returns the default configuration
//
// These defaults are chosen to:
// - Use every CPU for parsing (the work is I/O and hashing bound)
// - Never lose a message to a parse error (skip and report instead of abort)
// - Always ask before deleting anything
func DefaultConfig() Config {
	return Config{
		Workers:            runtime.NumCPU(),
		FailOpen:           true,
		OriginMarkerHeader: "X-Gmail-Labels",
		PreferredFolders:   []string{"Sent", "Archive"},
		ExcludePatterns: []string{
			".*",            // .uidvalidity, .DS_Store, dotfiles
			"dovecot*",      // dovecot-uidlist, dovecot.index*
			"maildirfolder", // maildir++ marker
			"courierimap*",  // courierimapuiddb, courierimapkeywords
			"subscriptions", // IMAP subscription list
		},
		DeleteRate:  0,
		AutoApprove: false,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.Workers < 1 || c.Workers > 256 {
		return fmt.Errorf("workers must be between 1 and 256 (got %d)", c.Workers)
	}
	if strings.TrimSpace(c.OriginMarkerHeader) == "" {
		return fmt.Errorf("origin_marker_header cannot be empty")
	}
	if strings.ContainsAny(c.OriginMarkerHeader, ": \t") {
		return fmt.Errorf("origin_marker_header %q is not a valid header name", c.OriginMarkerHeader)
	}
	for i, folder := range c.PreferredFolders {
		if folder == "" {
			return fmt.Errorf("preferred_folders[%d] cannot be empty", i)
		}
	}
	for i, pattern := range c.ExcludePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("exclude_patterns[%d] %q: %w", i, pattern, err)
		}
	}
	if c.DeleteRate < 0 || c.DeleteRate > 100000 {
		return fmt.Errorf("delete_rate must be between 0 and 100000 (got %g)", c.DeleteRate)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Workers: %d, FailOpen: %t, OriginMarker: %s, PreferredFolders: %v, "+
			"Exclude: %v, DeleteRate: %g, AutoApprove: %t}",
		c.Workers, c.FailOpen, c.OriginMarkerHeader, c.PreferredFolders,
		c.ExcludePatterns, c.DeleteRate, c.AutoApprove,
	)
}

// LoadFile overlays a YAML config file onto cfg. Keys absent from the file
// keep their current values. Unknown keys are rejected.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing YAML %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays MAILDEDUP_* environment variables onto cfg
//
// Environment variables:
//   - MAILDEDUP_WORKERS: Concurrent parse workers (default: number of CPUs)
//   - MAILDEDUP_FAIL_OPEN: Skip unparseable files instead of aborting (default: true)
//   - MAILDEDUP_ORIGIN_MARKER_HEADER: Header marking secondary-export copies (default: X-Gmail-Labels)
//   - MAILDEDUP_PREFERRED_FOLDERS: Comma-separated tie-break folders (default: Sent,Archive)
//   - MAILDEDUP_EXCLUDE_PATTERNS: Comma-separated base-name globs to skip
//   - MAILDEDUP_DELETE_RATE: Deletions per second, 0 for unlimited (default: 0)
//   - MAILDEDUP_AUTO_APPROVE: Delete without prompting (default: false)
//
// Returns an error if any environment variable has an invalid value.
func ApplyEnv(cfg *Config) error {
	if err := parseEnvInt("MAILDEDUP_WORKERS", &cfg.Workers); err != nil {
		return err
	}
	if err := parseEnvBool("MAILDEDUP_FAIL_OPEN", &cfg.FailOpen); err != nil {
		return err
	}
	if err := parseEnvString("MAILDEDUP_ORIGIN_MARKER_HEADER", &cfg.OriginMarkerHeader); err != nil {
		return err
	}
	if err := parseEnvList("MAILDEDUP_PREFERRED_FOLDERS", &cfg.PreferredFolders); err != nil {
		return err
	}
	if err := parseEnvList("MAILDEDUP_EXCLUDE_PATTERNS", &cfg.ExcludePatterns); err != nil {
		return err
	}
	if err := parseEnvFloat("MAILDEDUP_DELETE_RATE", &cfg.DeleteRate); err != nil {
		return err
	}
	if err := parseEnvBool("MAILDEDUP_AUTO_APPROVE", &cfg.AutoApprove); err != nil {
		return err
	}
	return nil
}

// Load resolves the configuration: defaults, then the YAML file (if path is
// non-empty), then the environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
