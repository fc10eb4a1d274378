package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the sheetspec configuration
type Config struct {
	Workbook        string   `yaml:"workbook,omitempty"`
	Sheet           string   `yaml:"sheet,omitempty"`
	CollectionName  string   `yaml:"collectionName,omitempty"`
	Timeout         int      `yaml:"timeout,omitempty"` // milliseconds
	Concurrency     int      `yaml:"concurrency,omitempty"`
	Rate            float64  `yaml:"rate,omitempty"` // requests per second, 0 = unlimited
	FollowRedirects *bool    `yaml:"followRedirects,omitempty"`
	MaxRedirects    int      `yaml:"maxRedirects,omitempty"`
	ValidateSSL     *bool    `yaml:"validateSSL,omitempty"`
	Proxy           string   `yaml:"proxy,omitempty"`
	SnippetLength   int      `yaml:"snippetLength,omitempty"`
	Correlate       string   `yaml:"correlate,omitempty"` // url or id
	OutputDir       string   `yaml:"outputDir,omitempty"`
	Reporters       []string `yaml:"reporters,omitempty"`
	History         string   `yaml:"history,omitempty"` // sqlite path or DSN
	Notify          Notify   `yaml:"notify,omitempty"`
	Allure          Allure   `yaml:"allure,omitempty"`
	Verbose         *bool    `yaml:"verbose,omitempty"`
	NoColor         *bool    `yaml:"noColor,omitempty"`
}

// Notify configures chat notifications.
type Notify struct {
	On           string `yaml:"on,omitempty"`
	SlackWebhook string `yaml:"slackWebhook,omitempty"`
	SlackChannel string `yaml:"slackChannel,omitempty"`
	TeamsWebhook string `yaml:"teamsWebhook,omitempty"`
}

// Allure configures the external Allure report generator.
type Allure struct {
	Generate *bool  `yaml:"generate,omitempty"`
	Command  string `yaml:"command,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetAllureGenerate returns whether the Allure HTML report is generated, defaulting to false
func (c *Config) GetAllureGenerate() bool {
	return getBool(c.Allure.Generate, false)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".sheetspec.yaml",
	"sheetspec.yaml",
	".sheetspec.yml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return DefaultConfig().Merge(&file), nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Workbook != "" {
		result.Workbook = other.Workbook
	}
	if other.Sheet != "" {
		result.Sheet = other.Sheet
	}
	if other.CollectionName != "" {
		result.CollectionName = other.CollectionName
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.Concurrency > 0 {
		result.Concurrency = other.Concurrency
	}
	if other.Rate > 0 {
		result.Rate = other.Rate
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.SnippetLength > 0 {
		result.SnippetLength = other.SnippetLength
	}
	if other.Correlate != "" {
		result.Correlate = other.Correlate
	}
	if other.OutputDir != "" {
		result.OutputDir = other.OutputDir
	}
	if other.History != "" {
		result.History = other.History
	}
	if other.Notify.On != "" {
		result.Notify.On = other.Notify.On
	}
	if other.Notify.SlackWebhook != "" {
		result.Notify.SlackWebhook = other.Notify.SlackWebhook
	}
	if other.Notify.SlackChannel != "" {
		result.Notify.SlackChannel = other.Notify.SlackChannel
	}
	if other.Notify.TeamsWebhook != "" {
		result.Notify.TeamsWebhook = other.Notify.TeamsWebhook
	}
	if other.Allure.Command != "" {
		result.Allure.Command = other.Allure.Command
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Allure.Generate != nil {
		result.Allure.Generate = other.Allure.Generate
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Reporters) > 0 {
		result.Reporters = append([]string(nil), other.Reporters...)
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
