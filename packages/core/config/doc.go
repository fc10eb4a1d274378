// Package config handles configuration loading and management for sheetspec.
//
// It provides functionality for:
//   - Loading configuration from .sheetspec.yaml or sheetspec.yaml files
//   - Default configuration values
//   - Merging file settings with command-line overrides
package config
