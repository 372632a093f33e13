/*
Package config manages TOML config for mentionserve services.
*/
package config

import (
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/microwavekid/mentionserve/internal/utils"
	"github.com/microwavekid/mentionserve/pkg/mention"
)

// Config holds the entire config structure
type Config struct {
	Engine    EngineConfig    `toml:"engine"`
	Triggers  TriggersConfig  `toml:"triggers"`
	Directory DirectoryConfig `toml:"directory"`
	CLI       CliConfig       `toml:"cli"`
}

// EngineConfig has core engine options.
type EngineConfig struct {
	DebounceMs       int `toml:"debounce_ms"`
	ResolveTimeoutMs int `toml:"resolve_timeout_ms"`
	MaxCandidates    int `toml:"max_candidates"`
	MaxQuery         int `toml:"max_query"`
}

// TriggersConfig maps categories to their trigger characters. Values are
// one-character strings in the TOML file.
type TriggersConfig struct {
	Stakeholder string `toml:"stakeholder"`
	Deal        string `toml:"deal"`
	Account     string `toml:"account"`
}

// DirectoryConfig holds entity directory options.
type DirectoryConfig struct {
	DataDir    string `toml:"data_dir"`
	RecentSize int    `toml:"recent_size"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit   int  `toml:"default_limit"`
	ShowConfidence bool `toml:"show_confidence"`
	NoFilter       bool `toml:"no_filter"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "mentionserve")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	// Not conventional, fallback from ~/.config if not writable
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "mentionserve")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/mentionserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	var config *Config
	var err error

	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err = LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err = InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			DebounceMs:       100,
			ResolveTimeoutMs: 5000,
			MaxCandidates:    8,
			MaxQuery:         60,
		},
		Triggers: TriggersConfig{
			Stakeholder: "@",
			Deal:        "#",
			Account:     "+",
		},
		Directory: DirectoryConfig{
			DataDir:    "data/",
			RecentSize: 64,
		},
		CLI: CliConfig{
			DefaultLimit:   8,
			ShowConfidence: true,
			NoFilter:       false,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse attempts to salvage whatever sections parse from a
// damaged TOML file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if engineSection, ok := utils.ExtractSection(tempConfig, "engine"); ok {
		extractEngineConfig(engineSection, &config.Engine)
	}
	if triggerSection, ok := utils.ExtractSection(tempConfig, "triggers"); ok {
		extractTriggersConfig(triggerSection, &config.Triggers)
	}
	if dirSection, ok := utils.ExtractSection(tempConfig, "directory"); ok {
		extractDirectoryConfig(dirSection, &config.Directory)
	}
	if cliSection, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(cliSection, &config.CLI)
	}
	return config, nil
}

// extractEngineConfig extracts engine configuration from a map
func extractEngineConfig(data map[string]any, engine *EngineConfig) {
	if val, ok := utils.ExtractInt64(data, "debounce_ms"); ok {
		engine.DebounceMs = val
	}
	if val, ok := utils.ExtractInt64(data, "resolve_timeout_ms"); ok {
		engine.ResolveTimeoutMs = val
	}
	if val, ok := utils.ExtractInt64(data, "max_candidates"); ok {
		engine.MaxCandidates = val
	}
	if val, ok := utils.ExtractInt64(data, "max_query"); ok {
		engine.MaxQuery = val
	}
}

// extractTriggersConfig extracts trigger characters from a map
func extractTriggersConfig(data map[string]any, triggers *TriggersConfig) {
	if val, ok := utils.ExtractString(data, "stakeholder"); ok {
		triggers.Stakeholder = val
	}
	if val, ok := utils.ExtractString(data, "deal"); ok {
		triggers.Deal = val
	}
	if val, ok := utils.ExtractString(data, "account"); ok {
		triggers.Account = val
	}
}

// extractDirectoryConfig extracts directory configuration from a map
func extractDirectoryConfig(data map[string]any, dir *DirectoryConfig) {
	if val, ok := utils.ExtractString(data, "data_dir"); ok {
		dir.DataDir = val
	}
	if val, ok := utils.ExtractInt64(data, "recent_size"); ok {
		dir.RecentSize = val
	}
}

// extractCliConfig extracts CLI config from a map
func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.ExtractBool(data, "show_confidence"); ok {
		cli.ShowConfidence = val
	}
	if val, ok := utils.ExtractBool(data, "no_filter"); ok {
		cli.NoFilter = val
	}
}

// TriggerSet builds the engine trigger set from config. Entries that are
// not exactly one character fall back to the stock mapping with a warning.
func (c *Config) TriggerSet() mention.TriggerSet {
	defaults := DefaultConfig().Triggers
	pairs := map[rune]mention.Category{
		triggerRune(c.Triggers.Stakeholder, defaults.Stakeholder): mention.CategoryStakeholder,
		triggerRune(c.Triggers.Deal, defaults.Deal):               mention.CategoryDeal,
		triggerRune(c.Triggers.Account, defaults.Account):         mention.CategoryAccount,
	}
	if len(pairs) != 3 {
		log.Warnf("Trigger characters collide in config, using defaults")
		return mention.DefaultTriggers()
	}
	return mention.NewTriggerSet(pairs)
}

func triggerRune(value, fallback string) rune {
	if utf8.RuneCountInString(value) == 1 {
		r, _ := utf8.DecodeRuneInString(value)
		return r
	}
	if value != "" {
		log.Warnf("Trigger %q is not a single character, using %q", value, fallback)
	}
	r, _ := utf8.DecodeRuneInString(fallback)
	return r
}

// Debounce returns the engine debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Engine.DebounceMs) * time.Millisecond
}

// ResolveTimeout returns the resolver bound as a duration.
func (c *Config) ResolveTimeout() time.Duration {
	return time.Duration(c.Engine.ResolveTimeoutMs) * time.Millisecond
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	configDir := filepath.Dir(defaultPath)
	if err := utils.EnsureDir(configDir); err != nil {
		return err
	}
	config := DefaultConfig()
	return utils.SaveTOMLFile(config, defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// Update changes engine limits and saves to file
func (c *Config) Update(configPath string, maxCandidates, debounceMs, maxQuery *int) error {
	engine := &c.Engine
	if maxCandidates != nil {
		engine.MaxCandidates = *maxCandidates
	}
	if debounceMs != nil {
		engine.DebounceMs = *debounceMs
	}
	if maxQuery != nil {
		engine.MaxQuery = *maxQuery
	}
	return SaveConfig(c, configPath)
}
