// Package config loads the layered application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/arbolab/wdtree/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds query-service and command defaults.
type ApplicationConfiguration struct {
	Query QueryConfiguration        `mapstructure:"query"`
	Tree  TreeCommandConfiguration  `mapstructure:"tree"`
	Table TableCommandConfiguration `mapstructure:"table"`
}

// QueryConfiguration configures the SPARQL query service.
type QueryConfiguration struct {
	Endpoint        string   `mapstructure:"endpoint"`
	Languages       []string `mapstructure:"languages"`
	DefaultLanguage string   `mapstructure:"default_language"`
	Claims          []string `mapstructure:"claims"`
	Hierarchy       []string `mapstructure:"hierarchy"`
	Prefetch        *bool    `mapstructure:"prefetch"`
}

// TreeCommandConfiguration defines defaults for the tree command.
type TreeCommandConfiguration struct {
	Format       string `mapstructure:"format"`
	Labels       *bool  `mapstructure:"labels"`
	GroupSingles *bool  `mapstructure:"group_singles"`
	Clipboard    *bool  `mapstructure:"clipboard"`
}

// TableCommandConfiguration defines defaults for the table command.
type TableCommandConfiguration struct {
	Format    string `mapstructure:"format"`
	Labels    *bool  `mapstructure:"labels"`
	Details   *bool  `mapstructure:"details"`
	Clipboard *bool  `mapstructure:"clipboard"`
}

// LoadApplicationConfiguration loads configuration from global and local files.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Query = result.Query.merge(override.Query)
	result.Tree = result.Tree.merge(override.Tree)
	result.Table = result.Table.merge(override.Table)
	return result
}

func (config QueryConfiguration) merge(override QueryConfiguration) QueryConfiguration {
	result := config
	if override.Endpoint != "" {
		result.Endpoint = override.Endpoint
	}
	if len(override.Languages) > 0 {
		result.Languages = append([]string(nil), override.Languages...)
	}
	if override.DefaultLanguage != "" {
		result.DefaultLanguage = override.DefaultLanguage
	}
	if len(override.Claims) > 0 {
		result.Claims = append([]string(nil), override.Claims...)
	}
	if len(override.Hierarchy) > 0 {
		result.Hierarchy = append([]string(nil), override.Hierarchy...)
	}
	if override.Prefetch != nil {
		result.Prefetch = cloneBool(override.Prefetch)
	}
	return result
}

func (config TreeCommandConfiguration) merge(override TreeCommandConfiguration) TreeCommandConfiguration {
	result := config
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Labels != nil {
		result.Labels = cloneBool(override.Labels)
	}
	if override.GroupSingles != nil {
		result.GroupSingles = cloneBool(override.GroupSingles)
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	return result
}

func (config TableCommandConfiguration) merge(override TableCommandConfiguration) TableCommandConfiguration {
	result := config
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Labels != nil {
		result.Labels = cloneBool(override.Labels)
	}
	if override.Details != nil {
		result.Details = cloneBool(override.Details)
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	return result
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
