package utils

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// LoadTOMLFile decodes a TOML file into config. A type or syntax error
// comes back to the caller, which may retry with ParseTOMLWithRecovery.
func LoadTOMLFile(configPath string, config interface{}) error {
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return fmt.Errorf("parsing %s: %w", configPath, err)
	}
	return nil
}

// ParseTOMLWithRecovery decodes a TOML file into an untyped map. Values
// with the wrong type survive here, so the per-section extract helpers can
// salvage whatever is well-formed from a damaged config.
func ParseTOMLWithRecovery(configPath string) (map[string]any, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	parsed := make(map[string]any)
	if _, err := toml.Decode(string(data), &parsed); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath, err)
	}
	return parsed, nil
}

// ExtractSection pulls one TOML table out of recovered data.
func ExtractSection(data map[string]any, sectionName string) (map[string]any, bool) {
	section, ok := data[sectionName].(map[string]any)
	return section, ok
}

// ExtractInt64 reads an integer key, rejecting values of any other type.
func ExtractInt64(data map[string]any, key string) (int, bool) {
	if val, ok := data[key].(int64); ok {
		return int(val), true
	}
	return 0, false
}

// ExtractBool reads a boolean key, rejecting values of any other type.
func ExtractBool(data map[string]any, key string) (bool, bool) {
	if val, ok := data[key].(bool); ok {
		return val, true
	}
	return false, false
}

// ExtractString reads a string key, rejecting values of any other type.
func ExtractString(data map[string]any, key string) (string, bool) {
	if val, ok := data[key].(string); ok {
		return val, true
	}
	return "", false
}
