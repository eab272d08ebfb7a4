package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator"
	"github.com/jo-hoe/imageset/internal/backend/commandstructure"
	"github.com/jo-hoe/imageset/internal/backend/fetcher"
	"github.com/jo-hoe/imageset/internal/backend/runjournal"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxImages  = 1000
	DefaultOutputPath = "random_image.png"
	DefaultPort       = 8080
)

// CommandConfig represents a generic command configuration
type CommandConfig struct {
	Name   string         `yaml:"name" validate:"required"`
	Params map[string]any `yaml:",inline"`
}

type Database struct {
	Type             string `yaml:"type" validate:"required,oneof=sqlite postgres"`
	ConnectionString string `yaml:"connectionString" validate:"required"`
	// CreateSchema creates tb_images whenever a store is opened.
	CreateSchema bool `yaml:"createSchema"`
}

type Source struct {
	BaseURL     string `yaml:"baseUrl" validate:"required,url"`
	ListingPage string `yaml:"listingPage" validate:"required"`
	Suffix      string `yaml:"suffix" validate:"required"`
}

// Redis configures the run journal. An empty Addr disables it.
type Redis struct {
	Addr       string `yaml:"addr"`
	Key        string `yaml:"key"`
	MaxEntries int    `yaml:"maxEntries" validate:"gte=0"`
}

type ServiceConfig struct {
	Port        int             `yaml:"port" validate:"gte=0,lte=65535"`
	LogLevel    string          `yaml:"logLevel" validate:"omitempty,oneof=debug info warn error"`
	Database    Database        `yaml:"database"`
	Source      Source          `yaml:"source"`
	DownloadDir string          `yaml:"downloadDir" validate:"required"`
	MaxImages   int             `yaml:"maxImages" validate:"gte=0"`
	OutputPath  string          `yaml:"outputPath" validate:"required"`
	Redis       Redis           `yaml:"redis"`
	Commands    []CommandConfig `yaml:"commands" validate:"dive"`
}

// DefaultConfig returns the configuration used for keys a file leaves out.
func DefaultConfig() *ServiceConfig {
	return &ServiceConfig{
		Port:     DefaultPort,
		LogLevel: "info",
		Database: Database{
			Type:             "sqlite",
			ConnectionString: "imageset.db",
			CreateSchema:     true,
		},
		Source: Source{
			BaseURL:     fetcher.DefaultBaseURL,
			ListingPage: fetcher.DefaultListingPage,
			Suffix:      fetcher.DefaultSuffix,
		},
		DownloadDir: fetcher.DefaultDownloadDir,
		MaxImages:   DefaultMaxImages,
		OutputPath:  DefaultOutputPath,
		Redis: Redis{
			Key:        runjournal.DefaultKey,
			MaxEntries: runjournal.DefaultMaxEntries,
		},
	}
}

// ConfigPath returns CONFIG_PATH if set, otherwise config.yaml in the
// working directory.
func ConfigPath() (string, error) {
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}
	return filepath.Join(cwd, "config.yaml"), nil
}

// LoadConfig loads configuration from the specified YAML file on top of
// DefaultConfig.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates YAML configuration data.
func ParseConfig(data []byte) (*ServiceConfig, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks field constraints and that every configured command is
// registered.
func (c *ServiceConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for i, cmd := range c.Commands {
		if !commandstructure.DefaultRegistry.IsRegistered(cmd.Name) {
			return fmt.Errorf("invalid command configuration: command at index %d: unknown command %s (registered: %s)",
				i, cmd.Name, strings.Join(commandstructure.DefaultRegistry.RegisteredNames(), ", "))
		}
	}
	return nil
}

// CommandConfigs converts the YAML command list for the command registry.
func (c *ServiceConfig) CommandConfigs() []commandstructure.CommandConfig {
	configs := make([]commandstructure.CommandConfig, 0, len(c.Commands))
	for _, cmd := range c.Commands {
		configs = append(configs, commandstructure.CommandConfig{Name: cmd.Name, Params: cmd.Params})
	}
	return configs
}
