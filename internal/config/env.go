package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvFloat parses a float64 from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}

// parseEnvList parses a comma-separated list from an environment variable.
// Blank items are dropped; a value of only separators yields an empty list.
func parseEnvList(key string, dest *[]string) error {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return nil // Use default
	}
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dest = items
	return nil
}
